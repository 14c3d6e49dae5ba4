package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/shortlink/internal/app/cache"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	CreateLink(ctx context.Context, originalURL string) (*model.Link, error)
	GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error)
	// ResolveLink is GetLinkBySlug for the redirect path; it may serve from cache.
	ResolveLink(ctx context.Context, slug string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error)
	GetAllLinks(ctx context.Context) ([]model.Link, error)
}

// LinkServiceDeps groups collaborators of the link service. Cache is optional.
type LinkServiceDeps struct {
	Links   repository.LinkRepository
	Slugs   *SlugGenerator
	Cache   cache.LinkCache
	Logger  *zap.Logger
	Metrics *infraPrometheus.Metrics
}

type linkService struct {
	links   repository.LinkRepository
	slugs   *SlugGenerator
	cache   cache.LinkCache
	logger  *zap.Logger
	metrics *infraPrometheus.Metrics
}

// NewLinkService returns a service implementation backed by the given dependencies.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		links:   deps.Links,
		slugs:   deps.Slugs,
		cache:   deps.Cache,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

func (s *linkService) CreateLink(ctx context.Context, originalURL string) (*model.Link, error) {
	normalized, err := NormalizeURL(originalURL)
	if err != nil {
		return nil, err
	}

	var link *model.Link
	_, err = s.slugs.CreateUnique(ctx, func(ctx context.Context, slug string) error {
		candidate := &model.Link{Slug: slug, OriginalURL: normalized}
		if err := s.links.Create(ctx, candidate); err != nil {
			return err
		}
		link = candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.metrics.IncLinksCreated()
	s.logger.Info("link created",
		zap.String("slug", link.Slug),
		zap.Uint("link_id", link.ID),
		zap.String("original_url", link.OriginalURL),
	)
	s.storeInCache(ctx, link)
	return link, nil
}

func (s *linkService) GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error) {
	link, err := s.links.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ResolveLink(ctx context.Context, slug string) (*model.Link, error) {
	if s.cache != nil {
		link, err := s.cache.Get(ctx, slug)
		switch {
		case err == nil:
			s.metrics.ObserveCache(true)
			return link, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn("link cache read failed", zap.String("slug", slug), zap.Error(err))
		}
		s.metrics.ObserveCache(false)
	}

	link, err := s.GetLinkBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.storeInCache(ctx, link)
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error) {
	links, err := s.links.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) GetAllLinks(ctx context.Context) ([]model.Link, error) {
	links, err := s.links.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all links: %w", err)
	}
	return links, nil
}

func (s *linkService) storeInCache(ctx context.Context, link *model.Link) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, link); err != nil {
		s.logger.Warn("link cache write failed", zap.String("slug", link.Slug), zap.Error(err))
	}
}
