//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) config.PostgresConfig {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("shortlink"),
		tcpostgres.WithUsername("shortlink"),
		tcpostgres.WithPassword("p@ss:word"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	return config.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "shortlink",
		Password: "p@ss:word",
		Database: "shortlink",
		SSLMode:  "disable",
		MaxConns: 10,
	}
}

func newMigratedDB(t *testing.T, cfg config.PostgresConfig) *gorm.DB {
	t.Helper()
	db, err := NewGorm(cfg)
	if err != nil {
		t.Fatalf("NewGorm: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := Migrate(context.Background(), db, zap.NewNop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestPostgresIntegration(t *testing.T) {
	cfg := startPostgres(t)
	db := newMigratedDB(t, cfg)
	ctx := context.Background()

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	// Second run is a no-op.
	if err := Migrate(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	store := repository.NewStore(db)

	t.Run("duplicate slug maps to sentinel", func(t *testing.T) {
		if err := store.Links().Create(ctx, &model.Link{Slug: "pgdup1", OriginalURL: "https://a.example.com"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		err := store.Links().Create(ctx, &model.Link{Slug: "pgdup1", OriginalURL: "https://b.example.com"})
		if !errors.Is(err, repository.ErrDuplicateSlug) {
			t.Fatalf("expected ErrDuplicateSlug, got %v", err)
		}
	})

	t.Run("click_count check constraint", func(t *testing.T) {
		link := &model.Link{Slug: "pgneg1", OriginalURL: "https://c.example.com"}
		if err := store.Links().Create(ctx, link); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.Links().UpdateClickCount(ctx, link, -1); err == nil {
			t.Fatal("expected negative click_count to be rejected")
		}
	})

	t.Run("concurrent increments inside transactions", func(t *testing.T) {
		link := &model.Link{Slug: "pgconc", OriginalURL: "https://d.example.com"}
		if err := store.Links().Create(ctx, link); err != nil {
			t.Fatalf("Create: %v", err)
		}

		const n = 25
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.WithinTx(ctx, func(tx repository.Store) error {
					if _, err := tx.Links().IncrementClickCount(ctx, link.ID); err != nil {
						return err
					}
					return tx.Clicks().Create(ctx, &model.Click{
						EventID:   uuid.NewString(),
						LinkID:    link.ID,
						Timestamp: time.Now().UTC(),
						IPAddress: "10.0.0.1",
					})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("transaction: %v", err)
			}
		}

		stored, err := store.Links().GetByID(ctx, link.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		count, err := store.Clicks().CountByLink(ctx, link.ID)
		if err != nil {
			t.Fatalf("CountByLink: %v", err)
		}
		if stored.ClickCount != n || count != n {
			t.Fatalf("expected %d/%d, got click_count=%d clicks=%d", n, n, stored.ClickCount, count)
		}
	})

	t.Run("row lock inside transaction", func(t *testing.T) {
		link := &model.Link{Slug: "pglock", OriginalURL: "https://e.example.com"}
		if err := store.Links().Create(ctx, link); err != nil {
			t.Fatalf("Create: %v", err)
		}
		err := store.WithinTx(ctx, func(tx repository.Store) error {
			locked, err := tx.Links().GetByIDForUpdate(ctx, link.ID)
			if err != nil {
				return err
			}
			return tx.Links().UpdateClickCount(ctx, locked, 3)
		})
		if err != nil {
			t.Fatalf("locked update: %v", err)
		}
	})
}
