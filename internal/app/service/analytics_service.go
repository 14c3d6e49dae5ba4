package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
)

// DirectReferrer labels clicks that arrived without a Referer header.
const DirectReferrer = "direct"

// AnalyticsService builds per-link reports from stored clicks.
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, link *model.Link) (*model.AnalyticsSummary, error)
}

type analyticsService struct {
	clicks repository.ClickRepository
}

func NewAnalyticsService(clicks repository.ClickRepository) AnalyticsService {
	return &analyticsService{clicks: clicks}
}

// GetAnalytics counts the stored clicks rather than trusting link.ClickCount.
func (s *analyticsService) GetAnalytics(ctx context.Context, link *model.Link) (*model.AnalyticsSummary, error) {
	clicks, err := s.clicks.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("list clicks for %s: %w", link.Slug, err)
	}
	total, err := s.clicks.CountByLink(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("count clicks for %s: %w", link.Slug, err)
	}

	summary := &model.AnalyticsSummary{
		Slug:        link.Slug,
		OriginalURL: link.OriginalURL,
		TotalClicks: total,
		Clicks:      make([]model.ClickDetail, 0, len(clicks)),
		Referrers:   make(map[string]int64),
		DailyClicks: []model.DailyClicks{},
	}

	daily := make(map[string]int64)
	for _, c := range clicks {
		summary.Clicks = append(summary.Clicks, model.ClickDetail{
			Timestamp: c.Timestamp.UTC().Format(time.RFC3339),
			IPAddress: c.IPAddress,
			UserAgent: c.UserAgent,
			Referrer:  c.Referrer,
		})
		summary.Referrers[referrerHost(c.Referrer)]++
		daily[c.Timestamp.UTC().Format(time.DateOnly)]++
	}

	for date, count := range daily {
		summary.DailyClicks = append(summary.DailyClicks, model.DailyClicks{Date: date, Count: count})
	}
	sort.Slice(summary.DailyClicks, func(i, j int) bool {
		return summary.DailyClicks[i].Date < summary.DailyClicks[j].Date
	})
	return summary, nil
}

// referrerHost reduces a Referer value to its lower-cased host; unparsable values are kept verbatim.
func referrerHost(ref *string) string {
	if ref == nil || *ref == "" {
		return DirectReferrer
	}
	u, err := url.Parse(*ref)
	if err != nil || u.Host == "" {
		return *ref
	}
	return strings.ToLower(u.Hostname())
}
