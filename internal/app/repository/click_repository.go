package repository

import (
	"context"

	"github.com/sifan077/shortlink/internal/app/model"
	"gorm.io/gorm"
)

// ClickRepository defines the data access contract for click records.
type ClickRepository interface {
	Create(ctx context.Context, click *model.Click) error
	ListByLink(ctx context.Context, linkID uint) ([]model.Click, error)
	CountByLink(ctx context.Context, linkID uint) (int64, error)
	CountAllByLink(ctx context.Context) (map[uint]int64, error)
}

type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository returns a GORM-backed ClickRepository.
func NewClickRepository(db *gorm.DB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, click *model.Click) error {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClick
		}
		return err
	}
	return nil
}

// ListByLink returns the link's clicks, newest first.
func (r *clickRepository) ListByLink(ctx context.Context, linkID uint) ([]model.Click, error) {
	var clicks []model.Click
	if err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("clicked_at DESC").
		Order("id DESC").
		Find(&clicks).Error; err != nil {
		return nil, err
	}
	return clicks, nil
}

func (r *clickRepository) CountByLink(ctx context.Context, linkID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Click{}).
		Where("link_id = ?", linkID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountAllByLink groups stored clicks per link id. Links without clicks are absent.
func (r *clickRepository) CountAllByLink(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		LinkID uint
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Click{}).
		Select("link_id, COUNT(*) AS total").
		Group("link_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.LinkID] = row.Total
	}
	return counts, nil
}
