package models

import "time"

// Chat is a one-to-one conversation. SenderID is the user who opened the
// chat; the send-message permission is tied to that side of the pair.
// Uniqueness per unordered pair is enforced at create time, checked in both
// participant orders.
type Chat struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	SenderID   string `gorm:"index;type:uuid"`
	ReceiverID string `gorm:"index;type:uuid"`
	Active     bool   `gorm:"default:true"`

	// Set by a hide; reaching it is the only trigger that deactivates the
	// chat, via the sweeper.
	ExpiresAt *time.Time

	Sender   User `gorm:"foreignKey:SenderID"`
	Receiver User `gorm:"foreignKey:ReceiverID"`

	Messages []Message

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	ChatID string `gorm:"index;type:uuid"`

	SenderID string `gorm:"type:uuid"`
	// Denormalized for fast receiver-side checks (mark-as-read).
	ReceiverID string `gorm:"type:uuid"`

	Content  string
	IsRead   bool `gorm:"default:false"`
	IsEdited bool `gorm:"default:false"`
	Active   bool `gorm:"default:true"`

	Sender      User         `gorm:"foreignKey:SenderID"`
	Attachments []Attachment `gorm:"foreignKey:MessageID"`
	Likes       []MessageLike

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment is an uploaded file hanging off a direct or group message.
// Exactly one of the two owner FKs is set.
type Attachment struct {
	ID             string  `gorm:"primaryKey;type:uuid"`
	MessageID      *string `gorm:"index;type:uuid"`
	GroupMessageID *string `gorm:"index;type:uuid"`
	URL            string
	Active         bool `gorm:"default:true"`

	CreatedAt time.Time
}

// MessageLike is a direct-chat reaction, unique per (user, message).
type MessageLike struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"uniqueIndex:idx_like_user_message;type:uuid"`
	MessageID string `gorm:"uniqueIndex:idx_like_user_message;type:uuid"`

	CreatedAt time.Time
}
