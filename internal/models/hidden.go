package models

import "time"

type ConversationKind string

const (
	KindChat  ConversationKind = "chat"
	KindGroup ConversationKind = "group"
)

// HiddenEntry marks a conversation as hidden for one user. Entries are never
// explicitly removed; a hidden conversation stops being reachable once the
// sweeper deactivates it.
type HiddenEntry struct {
	ID             string           `gorm:"primaryKey;type:uuid"`
	UserID         string           `gorm:"uniqueIndex:idx_hidden_user_conv;type:uuid"`
	ConversationID string           `gorm:"uniqueIndex:idx_hidden_user_conv;type:uuid"`
	Kind           ConversationKind `gorm:"uniqueIndex:idx_hidden_user_conv;type:varchar(8)"`

	CreatedAt time.Time
}
