package model

import "time"

// ClickEvent is the message published for a redirect when clicks are recorded asynchronously.
type ClickEvent struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-recorder"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
	ClickMaxDeliver     = 5
)
