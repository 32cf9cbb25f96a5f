// Package notify fans conversation events out after commit: a persisted
// notification row per recipient, a live push over the hub, and a Kafka
// record for downstream consumers.
package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/internal/store"
	"github.com/yourorg/amity/internal/ws"
)

const eventNewNotification = "newNotification"

// Publisher is the Kafka-facing slice of the relay.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Relay implements store.Relay. Every leg is best-effort: a failure is
// logged and the remaining legs still run, since the write that produced
// the event already committed.
type Relay struct {
	db   *gorm.DB
	hub  *ws.Hub
	prod Publisher
	log  *zap.SugaredLogger
}

func New(db *gorm.DB, hub *ws.Hub, prod Publisher, log *zap.SugaredLogger) *Relay {
	return &Relay{db: db, hub: hub, prod: prod, log: log}
}

func (r *Relay) Publish(ctx context.Context, ev store.Event) {
	metrics.EventsRelayed.Inc()
	r.persist(ctx, ev)
	r.push(ev)
	r.emit(ctx, ev)
}

func (r *Relay) persist(ctx context.Context, ev store.Event) {
	if len(ev.Recipients) == 0 {
		return
	}
	rows := make([]models.Notification, 0, len(ev.Recipients))
	for _, recipient := range ev.Recipients {
		rows = append(rows, models.Notification{
			ID:              uuid.NewString(),
			RecipientID:     recipient,
			SenderID:        ev.ActorID,
			Type:            ev.Type,
			Message:         ev.Message,
			RelatedEntityID: ev.EntityID,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		r.log.Errorw("persist notifications", "type", ev.Type, "error", err)
	}
}

// pushEventName picks the frame name for the live push; membership changes
// have dedicated client-side handlers, everything else lands on the generic
// notification feed.
func pushEventName(t models.NotificationType) string {
	switch t {
	case models.NotifMemberAdded:
		return ws.EvtUserAddedToGroup
	case models.NotifMemberRemoved:
		return ws.EvtUserRemovedFromGroup
	case models.NotifGroupCreated:
		return ws.EvtGroupCreated
	default:
		return eventNewNotification
	}
}

func (r *Relay) push(ev store.Event) {
	if r.hub == nil {
		return
	}
	r.hub.SendToUsers(ev.Recipients, ws.NewEnvelope(pushEventName(ev.Type), map[string]any{
		"type":            ev.Type,
		"senderId":        ev.ActorID,
		"message":         ev.Message,
		"relatedEntityId": ev.EntityID,
		"payload":         ev.Payload,
	}))
}

func (r *Relay) emit(ctx context.Context, ev store.Event) {
	if r.prod == nil {
		return
	}
	if err := r.prod.Publish(ctx, ev.EntityID, map[string]any{
		"type":       ev.Type,
		"actorId":    ev.ActorID,
		"recipients": ev.Recipients,
		"entityId":   ev.EntityID,
		"message":    ev.Message,
	}); err != nil {
		r.log.Errorw("publish event to kafka", "type", ev.Type, "error", err)
	}
}
