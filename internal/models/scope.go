package models

import "gorm.io/gorm"

// ActiveOnly is the shared soft-delete predicate. Every read path that must
// honor active-only visibility goes through this scope instead of repeating
// the filter inline.
func ActiveOnly(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

// All lists every entity the store migrates, in FK order.
func All() []any {
	return []any{
		&User{},
		&Chat{},
		&Message{},
		&Attachment{},
		&MessageLike{},
		&Group{},
		&GroupMember{},
		&GroupMessage{},
		&HiddenEntry{},
		&Notification{},
	}
}
