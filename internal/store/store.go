package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/config"
	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/models"
)

// Event is a post-commit "something changed" notification handed to the
// relay. It never participates in the transaction that produced it.
type Event struct {
	Type       models.NotificationType
	ActorID    string
	Recipients []string
	Message    string
	EntityID   string
	Payload    any
}

// Relay receives events after a successful commit. Implementations are
// best-effort: they must never return an error into the write path.
type Relay interface {
	Publish(ctx context.Context, ev Event)
}

// NopRelay drops every event. Used when no live delivery is wired.
type NopRelay struct{}

func (NopRelay) Publish(context.Context, Event) {}

// Store owns the conversation schema and coordinates every multi-entity
// write inside a single transaction.
type Store struct {
	db       *gorm.DB
	uploader media.Uploader
	relay    Relay
	cfg      *config.Config
	log      *zap.SugaredLogger
}

func New(db *gorm.DB, uploader media.Uploader, relay Relay, cfg *config.Config, log *zap.SugaredLogger) *Store {
	if relay == nil {
		relay = NopRelay{}
	}
	return &Store{db: db, uploader: uploader, relay: relay, cfg: cfg, log: log}
}

func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// DB exposes the underlying handle for components that share the schema but
// not the transaction coordinator (the sweeper).
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) notify(ctx context.Context, ev Event) {
	s.relay.Publish(ctx, ev)
}

// uploadAll pushes every file before any row is written; the first failure
// aborts the enclosing transaction so no partial attachment state survives.
func (s *Store) uploadAll(ctx context.Context, files []media.File) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := media.FolderFor(f.ContentType); err != nil {
			return nil, err
		}
		url, err := s.uploader.Upload(ctx, f)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
