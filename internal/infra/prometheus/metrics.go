package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shortlink"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	LinksCreated    prometheus.Counter
	SlugCollisions  prometheus.Counter
	SlugLengthBumps prometheus.Counter
	ClicksRecorded  prometheus.Counter
	ClickCountDrift prometheus.Counter
	CacheResults    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Short links created.",
		}),
		SlugCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slug_collisions_total",
			Help:      "Slug candidates rejected because they already existed.",
		}),
		SlugLengthBumps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slug_length_increases_total",
			Help:      "Times the generator exhausted a length and moved to the next one.",
		}),
		ClicksRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_recorded_total",
			Help:      "Clicks committed together with their counter increment.",
		}),
		ClickCountDrift: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_count_drift_total",
			Help:      "Links whose click_count disagreed with the stored clicks.",
		}),
		CacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_cache_requests_total",
			Help:      "Link cache lookups by result.",
		}, []string{"result"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncLinksCreated() {
	if m != nil {
		m.LinksCreated.Inc()
	}
}

func (m *Metrics) IncSlugCollisions() {
	if m != nil {
		m.SlugCollisions.Inc()
	}
}

func (m *Metrics) IncSlugLengthBumps() {
	if m != nil {
		m.SlugLengthBumps.Inc()
	}
}

func (m *Metrics) IncClicksRecorded() {
	if m != nil {
		m.ClicksRecorded.Inc()
	}
}

func (m *Metrics) AddClickCountDrift(n int) {
	if m != nil && n > 0 {
		m.ClickCountDrift.Add(float64(n))
	}
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheResults.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
	}
}
