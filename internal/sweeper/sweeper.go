// Package sweeper deactivates conversations whose hide timer has run out.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/models"
)

type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	log      *zap.SugaredLogger

	now func() time.Time
}

func New(db *gorm.DB, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		db:       db,
		interval: interval,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until ctx is cancelled. An immediate sweep runs on start so a
// restart never leaves expired conversations waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over both conversation kinds. Each row is deactivated
// with a guarded update so a concurrent delete or a second sweeper instance
// cannot double-fire.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	chats := s.sweepChats(ctx, now)
	groups := s.sweepGroups(ctx, now)
	metrics.SweptConversations.WithLabelValues("chat").Add(float64(chats))
	metrics.SweptConversations.WithLabelValues("group").Add(float64(groups))
	if chats+groups > 0 {
		s.log.Infow("swept expired conversations", "chats", chats, "groups", groups)
	}
}

func (s *Sweeper) sweepChats(ctx context.Context, now time.Time) int {
	var expired []models.Chat
	err := s.db.WithContext(ctx).Scopes(models.ActiveOnly).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Find(&expired).Error
	if err != nil {
		s.log.Errorw("sweep: listing expired chats", "error", err)
		return 0
	}

	swept := 0
	for _, chat := range expired {
		res := s.db.WithContext(ctx).Model(&models.Chat{}).
			Where("id = ? AND active = ?", chat.ID, true).
			Updates(map[string]any{"active": false, "expires_at": nil})
		if res.Error != nil {
			s.log.Errorw("sweep: deactivating chat", "chat_id", chat.ID, "error", res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			swept++
		}
	}
	return swept
}

func (s *Sweeper) sweepGroups(ctx context.Context, now time.Time) int {
	var expired []models.Group
	err := s.db.WithContext(ctx).Scopes(models.ActiveOnly).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Find(&expired).Error
	if err != nil {
		s.log.Errorw("sweep: listing expired groups", "error", err)
		return 0
	}

	swept := 0
	for _, group := range expired {
		res := s.db.WithContext(ctx).Model(&models.Group{}).
			Where("id = ? AND active = ?", group.ID, true).
			Updates(map[string]any{"active": false, "expires_at": nil})
		if res.Error != nil {
			s.log.Errorw("sweep: deactivating group", "group_id", group.ID, "error", res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			swept++
		}
	}
	return swept
}
