package handler

import (
	"context"

	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	"github.com/sifan077/shortlink/internal/app/service"
)

type mockLinkService struct {
	createFn  func(ctx context.Context, originalURL string) (*model.Link, error)
	getFn     func(ctx context.Context, slug string) (*model.Link, error)
	resolveFn func(ctx context.Context, slug string) (*model.Link, error)
	listFn    func(ctx context.Context, limit, offset int) ([]model.Link, error)
	allFn     func(ctx context.Context) ([]model.Link, error)
}

func (m *mockLinkService) CreateLink(ctx context.Context, originalURL string) (*model.Link, error) {
	if m.createFn != nil {
		return m.createFn(ctx, originalURL)
	}
	return &model.Link{Slug: "abc123", OriginalURL: originalURL}, nil
}

func (m *mockLinkService) GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, slug)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkService) ResolveLink(ctx context.Context, slug string) (*model.Link, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, slug)
	}
	return m.GetLinkBySlug(ctx, slug)
}

func (m *mockLinkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkService) GetAllLinks(ctx context.Context) ([]model.Link, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

type mockAnalyticsService struct {
	getFn func(ctx context.Context, link *model.Link) (*model.AnalyticsSummary, error)
}

func (m *mockAnalyticsService) GetAnalytics(ctx context.Context, link *model.Link) (*model.AnalyticsSummary, error) {
	if m.getFn != nil {
		return m.getFn(ctx, link)
	}
	return &model.AnalyticsSummary{Slug: link.Slug, OriginalURL: link.OriginalURL}, nil
}

type mockClickRecorder struct {
	recordFn func(ctx context.Context, link *model.Link, input service.ClickInput) (*model.Click, error)
}

func (m *mockClickRecorder) RecordClick(ctx context.Context, link *model.Link, input service.ClickInput) (*model.Click, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, link, input)
	}
	return &model.Click{}, nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, slug string, input service.ClickInput) (*model.ClickEvent, error)
}

func (m *mockPublisher) Publish(ctx context.Context, slug string, input service.ClickInput) (*model.ClickEvent, error) {
	if m.publishFn != nil {
		return m.publishFn(ctx, slug, input)
	}
	return &model.ClickEvent{ID: input.EventID, Slug: slug}, nil
}
