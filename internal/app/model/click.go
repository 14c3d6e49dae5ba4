package model

import "time"

// Click is one immutable redirect event. EventID deduplicates redelivered events.
type Click struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	EventID   string    `json:"event_id" gorm:"size:36;not null;uniqueIndex:idx_clicks_event_id"`
	LinkID    uint      `json:"-" gorm:"not null;index:idx_clicks_link_clicked_at,priority:1"`
	Timestamp time.Time `json:"timestamp" gorm:"column:clicked_at;not null;index:idx_clicks_link_clicked_at,priority:2"`
	IPAddress string    `json:"ip_address" gorm:"size:45;not null"`
	UserAgent string    `json:"user_agent" gorm:"type:text;not null;default:''"`
	Referrer  *string   `json:"referrer" gorm:"type:text"`
}
