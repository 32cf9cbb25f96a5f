package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleHelper Role = "helper"
	RoleMember Role = "member"
)

// HasAnyRole is the single capability check used at every group
// authorization boundary.
func (r Role) HasAnyRole(required ...Role) bool {
	for _, req := range required {
		if r == req {
			return true
		}
	}
	return false
}

type Group struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Name        string
	Description string
	Active      bool `gorm:"default:true"`
	ExpiresAt   *time.Time

	Members  []GroupMember
	Messages []GroupMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

type GroupMember struct {
	ID      string `gorm:"primaryKey;type:uuid"`
	GroupID string `gorm:"uniqueIndex:idx_group_member;type:uuid"`
	UserID  string `gorm:"uniqueIndex:idx_group_member;type:uuid"`
	Role    Role   `gorm:"type:varchar(16)"`

	User User `gorm:"foreignKey:UserID"`

	CreatedAt time.Time
}

type GroupMessage struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	GroupID  string `gorm:"index;type:uuid"`
	SenderID string `gorm:"type:uuid"`

	Content  string
	IsEdited bool `gorm:"default:false"`
	Active   bool `gorm:"default:true"`

	Sender      User         `gorm:"foreignKey:SenderID"`
	Attachments []Attachment `gorm:"foreignKey:GroupMessageID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
