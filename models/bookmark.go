package models

import "time"

// Bookmark marks a café saved by a user. The composite unique index makes
// repeated saves idempotent at the store level.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_bookmarks_user_cafe,unique;not null" json:"user_id"`
	CafeID    uint      `gorm:"index:idx_bookmarks_user_cafe,unique;not null" json:"cafe_id"`
	CreatedAt time.Time `json:"created_at"`
	Cafe      Cafe      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"cafe"`
}
