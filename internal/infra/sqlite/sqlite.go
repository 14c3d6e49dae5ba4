package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/shortlink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a gorm.DB on a pure-Go SQLite database at path (":memory:" works).
// SQLite allows a single writer, so the pool is limited to one connection and
// concurrent transactions queue on it.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: retrieve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return db, nil
}

// AutoMigrate creates the links and clicks tables.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.Link{}, &model.Click{}); err != nil {
		return fmt.Errorf("sqlite: auto migrate: %w", err)
	}
	return nil
}
