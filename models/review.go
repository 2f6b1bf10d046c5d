package models

import "time"

// Review represents a user's rating and write-up for a café.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CafeID    uint      `gorm:"index;not null" json:"cafe_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1..5
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
