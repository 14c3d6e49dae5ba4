package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ClickInput describes one redirect. EventID and Timestamp are optional; an empty
// Referrer is stored as NULL.
type ClickInput struct {
	IPAddress string
	UserAgent string
	Referrer  string
	EventID   string
	Timestamp time.Time
}

// ClickRecorder appends clicks and keeps the link counter in step.
type ClickRecorder interface {
	RecordClick(ctx context.Context, link *model.Link, input ClickInput) (*model.Click, error)
}

type clickRecorder struct {
	store   repository.Store
	logger  *zap.Logger
	metrics *infraPrometheus.Metrics
	now     func() time.Time
}

// NewClickRecorder returns a recorder writing through store.
func NewClickRecorder(store repository.Store, logger *zap.Logger, metrics *infraPrometheus.Metrics) ClickRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickRecorder{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// RecordClick increments click_count and inserts the click in one transaction.
// A redelivered EventID yields repository.ErrDuplicateClick and leaves the counter untouched.
// The caller's link is not modified.
func (r *clickRecorder) RecordClick(ctx context.Context, link *model.Link, input ClickInput) (*model.Click, error) {
	click := &model.Click{
		EventID:   input.EventID,
		LinkID:    link.ID,
		Timestamp: input.Timestamp,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	}
	if click.EventID == "" {
		click.EventID = uuid.NewString()
	}
	if click.Timestamp.IsZero() {
		click.Timestamp = r.now()
	}
	click.Timestamp = click.Timestamp.UTC()
	if ref := strings.TrimSpace(input.Referrer); ref != "" {
		click.Referrer = &ref
	}

	var count int64
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if count, err = tx.Links().IncrementClickCount(ctx, link.ID); err != nil {
			return err
		}
		return tx.Clicks().Create(ctx, click)
	})
	if err != nil {
		return nil, fmt.Errorf("record click for %s: %w", link.Slug, err)
	}

	r.metrics.IncClicksRecorded()
	r.logger.Debug("click recorded",
		zap.String("slug", link.Slug),
		zap.Uint("link_id", link.ID),
		zap.String("event_id", click.EventID),
		zap.Int64("click_count", count),
	)
	return click, nil
}
