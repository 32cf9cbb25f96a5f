package models

import "time"

// User rows exist for relational integrity and hidden-conversation state;
// identity and authentication live in an external service.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	Name     string
	Lastname string
	Active   bool `gorm:"default:true"`

	// Bcrypt hash of the reveal password shared by all of this user's
	// hidden conversations. Empty until the first hide.
	HiddenPassword string

	CreatedAt time.Time
	UpdatedAt time.Time
}
