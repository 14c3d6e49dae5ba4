package model

import "time"

// Link maps a unique slug to the original URL and carries its click counter.
type Link struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"size:32;not null;uniqueIndex:idx_links_slug"`
	OriginalURL string    `json:"original_url" gorm:"type:text;not null"`
	ClickCount  int64     `json:"click_count" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;index"`
}
