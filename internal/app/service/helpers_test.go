package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"github.com/sifan077/shortlink/internal/infra/sqlite"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := sqlite.AutoMigrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func newTestMetrics() *infraPrometheus.Metrics {
	return infraPrometheus.NewMetrics(prometheus.NewRegistry())
}

func mustCreateLink(t *testing.T, store repository.Store, slug, url string) *model.Link {
	t.Helper()
	link := &model.Link{Slug: slug, OriginalURL: url}
	if err := store.Links().Create(context.Background(), link); err != nil {
		t.Fatalf("create link %s: %v", slug, err)
	}
	return link
}

// scriptedSource returns the given candidates in order, then random slugs.
func scriptedSource(candidates ...string) SlugSource {
	var mu sync.Mutex
	return func(length int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(candidates) == 0 {
			return RandomSlug(length)
		}
		next := candidates[0]
		candidates = candidates[1:]
		return next, nil
	}
}

type mockSlugChecker struct {
	existsFn func(ctx context.Context, slug string) (bool, error)
}

func (m *mockSlugChecker) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, slug)
	}
	return false, nil
}

type mockLinkRepository struct {
	createFn    func(ctx context.Context, link *model.Link) error
	getFn       func(ctx context.Context, slug string) (*model.Link, error)
	listFn      func(ctx context.Context, limit, offset int) ([]model.Link, error)
	slugExistFn func(ctx context.Context, slug string) (bool, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, slug)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id uint) (*model.Link, error) {
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByIDForUpdate(ctx context.Context, id uint) (*model.Link, error) {
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) ListAll(ctx context.Context) ([]model.Link, error) {
	return m.List(ctx, 0, 0)
}

func (m *mockLinkRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.slugExistFn != nil {
		return m.slugExistFn(ctx, slug)
	}
	return false, nil
}

func (m *mockLinkRepository) IncrementClickCount(ctx context.Context, id uint) (int64, error) {
	return 0, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) UpdateClickCount(ctx context.Context, link *model.Link, count int64) error {
	return repository.ErrLinkNotFound
}
