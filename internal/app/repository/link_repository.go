package repository

import (
	"context"
	"errors"

	"github.com/sifan077/shortlink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetBySlug(ctx context.Context, slug string) (*model.Link, error)
	GetByID(ctx context.Context, id uint) (*model.Link, error)
	// GetByIDForUpdate reads the link and, where the dialect supports it, locks the row
	// until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*model.Link, error)
	List(ctx context.Context, limit, offset int) ([]model.Link, error)
	ListAll(ctx context.Context) ([]model.Link, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	IncrementClickCount(ctx context.Context, id uint) (int64, error)
	UpdateClickCount(ctx context.Context, link *model.Link, count int64) error
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link. Uniqueness is decided by idx_links_slug, never by a prior lookup.
func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *linkRepository) GetBySlug(ctx context.Context, slug string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id uint) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByIDForUpdate(ctx context.Context, id uint) (*model.Link, error) {
	db := r.db.WithContext(ctx)
	// SQLite serialises writers per database and has no row locks.
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var link model.Link
	if err := db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Link
	if err := r.newestFirst(ctx).
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) ListAll(ctx context.Context) ([]model.Link, error) {
	var result []model.Link
	if err := r.newestFirst(ctx).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("slug = ?", slug).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementClickCount adds one inside the database and returns the new value.
func (r *linkRepository) IncrementClickCount(ctx context.Context, id uint) (int64, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&model.Link{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrLinkNotFound
	}

	var count int64
	if err := db.Model(&model.Link{}).
		Where("id = ?", id).
		Select("click_count").
		Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *linkRepository) UpdateClickCount(ctx context.Context, link *model.Link, count int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ?", link.ID).
		UpdateColumn("click_count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	link.ClickCount = count
	return nil
}

func (r *linkRepository) newestFirst(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
}
