package models

import "time"

type NotificationType string

const (
	NotifNewMessage          NotificationType = "new_message"
	NotifMessageEdited       NotificationType = "message_edited"
	NotifMessageDeleted      NotificationType = "message_deleted"
	NotifMessageLiked        NotificationType = "message_liked"
	NotifChatCreated         NotificationType = "chat_created"
	NotifGroupCreated        NotificationType = "group_created"
	NotifGroupEdited         NotificationType = "group_edited"
	NotifGroupDeleted        NotificationType = "group_deleted"
	NotifGroupMessage        NotificationType = "group_message"
	NotifGroupMessageEdited  NotificationType = "group_message_edited"
	NotifGroupMessageDeleted NotificationType = "group_message_deleted"
	NotifMemberAdded         NotificationType = "group_member_added"
	NotifMemberRemoved       NotificationType = "group_member_removed"
	NotifMemberLeft          NotificationType = "group_member_left"
)

type Notification struct {
	ID              string           `gorm:"primaryKey;type:uuid"`
	RecipientID     string           `gorm:"index;type:uuid"`
	SenderID        string           `gorm:"type:uuid"`
	Type            NotificationType `gorm:"type:varchar(32)"`
	Message         string
	RelatedEntityID string `gorm:"type:uuid"`
	IsRead          bool   `gorm:"default:false"`

	CreatedAt time.Time
}
