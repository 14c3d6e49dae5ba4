package model

// AnalyticsSummary is the per-link report built from stored clicks.
type AnalyticsSummary struct {
	Slug        string           `json:"slug"`
	OriginalURL string           `json:"original_url"`
	TotalClicks int64            `json:"total_clicks"`
	Clicks      []ClickDetail    `json:"clicks"`
	Referrers   map[string]int64 `json:"referrers"`
	DailyClicks []DailyClicks    `json:"daily_clicks"`
}

// ClickDetail exposes one click; Timestamp is RFC 3339.
type ClickDetail struct {
	Timestamp string  `json:"timestamp"`
	IPAddress string  `json:"ip_address"`
	UserAgent string  `json:"user_agent"`
	Referrer  *string `json:"referrer"`
}

type DailyClicks struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}
