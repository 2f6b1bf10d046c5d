package models

import "time"

// CafeView stores aggregated detail-page view counts per day and café.
type CafeView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_cafe_views_date_cafe,unique;type:date;not null" json:"date"`
	CafeID    uint      `gorm:"index;index:idx_cafe_views_date_cafe,unique;not null" json:"cafe_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
