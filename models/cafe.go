package models

import "time"

// Cafe represents a listed café. Latitude/Longitude are pointers so a café
// created without a pinned location stays distinguishable from one at (0,0).
type Cafe struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Address      string    `gorm:"size:512" json:"address"`
	Description  string    `gorm:"type:text" json:"description"`
	Latitude     *float64  `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude    *float64  `gorm:"type:decimal(10,7)" json:"longitude"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Website      string    `gorm:"size:512" json:"website"`
	OpeningHours string    `gorm:"size:255" json:"opening_hours"`
	PhotoURL     string    `gorm:"size:512" json:"photo_url"`
	CreatedBy    uint      `gorm:"index" json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Reviews      []Review  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
}

// HasLocation reports whether the café has a usable coordinate pair.
func (c *Cafe) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}
