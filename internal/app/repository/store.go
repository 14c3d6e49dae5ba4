package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store hands out repositories bound to one database handle and runs transactions.
type Store interface {
	Links() LinkRepository
	Clicks() ClickRepository
	// WithinTx runs fn with repositories bound to a single transaction.
	// Returning an error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db     *gorm.DB
	links  LinkRepository
	clicks ClickRepository
}

// NewStore returns a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:     db,
		links:  NewLinkRepository(db),
		clicks: NewClickRepository(db),
	}
}

func (s *gormStore) Links() LinkRepository   { return s.links }
func (s *gormStore) Clicks() ClickRepository { return s.clicks }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
