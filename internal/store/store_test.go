package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yourorg/amity/internal/config"
	"github.com/yourorg/amity/internal/logger"
	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

// fakeUploader records uploads and can be told to fail after n successes.
type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	failFrom int
}

func (f *fakeUploader) Upload(_ context.Context, file media.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFrom > 0 && len(f.uploaded) >= f.failFrom {
		return "", fmt.Errorf("upload rejected: %s", file.Name)
	}
	url := "https://media.test/" + file.Name
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

// recordingRelay captures post-commit events.
type recordingRelay struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingRelay) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingRelay) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestStore(t *testing.T) (*Store, *fakeUploader, *recordingRelay) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	up := &fakeUploader{}
	relay := &recordingRelay{}
	return New(db, up, relay, config.Default(), logger.Nop()), up, relay
}

func seedUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Name:     name,
		Lastname: "Tester",
		Active:   true,
	}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperr.CodeOf(err))
}
