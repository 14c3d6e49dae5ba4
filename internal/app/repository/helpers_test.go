package repository

import (
	"context"
	"testing"

	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/infra/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createLink(t *testing.T, repo LinkRepository, slug string) *model.Link {
	t.Helper()
	link := &model.Link{Slug: slug, OriginalURL: "https://example.com/" + slug}
	if err := repo.Create(context.Background(), link); err != nil {
		t.Fatalf("create %s: %v", slug, err)
	}
	return link
}
