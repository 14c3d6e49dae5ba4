package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/cache"
	"github.com/sifan077/shortlink/internal/app/repository"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const reconcileTimeout = 2 * time.Minute

// CounterDrift is one link whose stored counter disagreed with its clicks.
type CounterDrift struct {
	LinkID   uint
	Slug     string
	Recorded int64
	Counted  int64
	Repaired bool
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked int
	Drifted []CounterDrift
}

// CounterReconcilerDeps groups collaborators of the reconciler. Cache is optional; repaired
// links are evicted from it.
type CounterReconcilerDeps struct {
	Store   repository.Store
	Cache   cache.LinkCache
	Logger  *zap.Logger
	Metrics *infraPrometheus.Metrics
}

// CounterReconciler periodically compares click_count with the stored clicks.
type CounterReconciler struct {
	store   repository.Store
	cache   cache.LinkCache
	logger  *zap.Logger
	metrics *infraPrometheus.Metrics
	repair  bool

	schedule string
	cron     *cron.Cron
	running  sync.Mutex
}

// NewCounterReconciler builds a reconciler for cfg.Schedule. Repair is off unless cfg.Repair is set.
func NewCounterReconciler(cfg config.ReconcilerConfig, deps CounterReconcilerDeps) *CounterReconciler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CounterReconciler{
		store:    deps.Store,
		cache:    deps.Cache,
		logger:   logger,
		metrics:  deps.Metrics,
		repair:   cfg.Repair,
		schedule: cfg.Schedule,
	}
}

// Start schedules the job. It returns an error for an unparsable schedule.
func (r *CounterReconciler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { r.run(ctx) }); err != nil {
		return fmt.Errorf("schedule reconciler %q: %w", r.schedule, err)
	}
	r.cron = c
	c.Start()
	r.logger.Info("counter reconciler scheduled",
		zap.String("schedule", r.schedule),
		zap.Bool("repair", r.repair))
	return nil
}

// Stop prevents new runs and waits for a running one to finish.
func (r *CounterReconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *CounterReconciler) run(ctx context.Context) {
	// Overlapping ticks are skipped.
	if !r.running.TryLock() {
		r.logger.Debug("reconciler still running, skipping tick")
		return
	}
	defer r.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	report, err := r.Reconcile(ctx)
	if err != nil {
		r.logger.Error("counter reconciliation failed", zap.Error(err))
		return
	}
	r.logger.Info("counter reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", len(report.Drifted)))
}

// Reconcile checks every link once. The bulk scan only nominates candidates; each one is
// recounted in its own transaction and dropped if it agrees there, so clicks committed
// during the scan are not reported.
func (r *CounterReconciler) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	links, err := r.store.Links().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	counts, err := r.store.Clicks().CountAllByLink(ctx)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}

	report := &ReconcileReport{Checked: len(links)}
	for _, link := range links {
		if link.ClickCount == counts[link.ID] {
			continue
		}

		drift, err := r.recheck(ctx, link.ID)
		if err != nil {
			return nil, err
		}
		if drift == nil {
			continue
		}

		r.logger.Warn("click_count drift detected",
			zap.String("slug", drift.Slug),
			zap.Uint("link_id", drift.LinkID),
			zap.Int64("recorded", drift.Recorded),
			zap.Int64("counted", drift.Counted),
			zap.Bool("repaired", drift.Repaired))
		report.Drifted = append(report.Drifted, *drift)
	}

	r.metrics.AddClickCountDrift(len(report.Drifted))
	return report, nil
}

// recheck recounts one link under its row lock and, in repair mode, writes the counted value.
// It returns nil when the counter agrees with the clicks.
func (r *CounterReconciler) recheck(ctx context.Context, id uint) (*CounterDrift, error) {
	var drift *CounterDrift
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		link, err := tx.Links().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		counted, err := tx.Clicks().CountByLink(ctx, id)
		if err != nil {
			return err
		}
		if link.ClickCount == counted {
			return nil
		}

		drift = &CounterDrift{
			LinkID:   link.ID,
			Slug:     link.Slug,
			Recorded: link.ClickCount,
			Counted:  counted,
		}
		if !r.repair {
			return nil
		}
		if err := tx.Links().UpdateClickCount(ctx, link, counted); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	if errors.Is(err, repository.ErrLinkNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recheck click_count for link %d: %w", id, err)
	}

	if drift != nil && drift.Repaired {
		r.evict(ctx, drift.Slug)
	}
	return drift, nil
}

func (r *CounterReconciler) evict(ctx context.Context, slug string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, slug); err != nil {
		r.logger.Warn("failed to evict repaired link from cache", zap.String("slug", slug), zap.Error(err))
	}
}
