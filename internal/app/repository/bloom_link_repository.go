package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sifan077/shortlink/internal/app/model"
)

// BloomLinkRepository answers SlugExists from an in-process bloom filter when the filter
// proves the slug was never seen, and defers to the wrapped repository otherwise.
// The filter is a hint: the unique index in Create stays authoritative.
type BloomLinkRepository struct {
	LinkRepository

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBloomLinkRepository wraps inner with a filter sized for capacity slugs at fpRate.
func NewBloomLinkRepository(inner LinkRepository, capacity uint, fpRate float64) *BloomLinkRepository {
	if capacity == 0 {
		capacity = 1_000_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	return &BloomLinkRepository{
		LinkRepository: inner,
		filter:         bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Warm loads every stored slug into the filter.
func (r *BloomLinkRepository) Warm(ctx context.Context) (int, error) {
	links, err := r.LinkRepository.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm slug filter: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range links {
		r.filter.AddString(link.Slug)
	}
	return len(links), nil
}

func (r *BloomLinkRepository) Create(ctx context.Context, link *model.Link) error {
	err := r.LinkRepository.Create(ctx, link)
	if err == nil || errors.Is(err, ErrDuplicateSlug) {
		r.add(link.Slug)
	}
	return err
}

func (r *BloomLinkRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.RLock()
	maybe := r.filter.TestString(slug)
	r.mu.RUnlock()
	if !maybe {
		return false, nil
	}
	return r.LinkRepository.SlugExists(ctx, slug)
}

func (r *BloomLinkRepository) add(slug string) {
	r.mu.Lock()
	r.filter.AddString(slug)
	r.mu.Unlock()
}
