package models

import "time"

// Stamp records one successful passport claim at a café. StampDate holds the
// claim day truncated to midnight; the unique index on (user_id, cafe_id,
// stamp_date) enforces at most one stamp per user per café per day, so the
// duplicate check and the insert collapse into a single conditional write.
type Stamp struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;index:idx_stamps_user_cafe_date,unique;not null" json:"user_id"`
	CafeID    uint      `gorm:"index;index:idx_stamps_user_cafe_date,unique;not null" json:"cafe_id"`
	StampDate time.Time `gorm:"index:idx_stamps_user_cafe_date,unique;type:date;not null" json:"stamp_date"`
	CreatedAt time.Time `json:"created_at"`
	Cafe      Cafe      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"cafe"`
}
