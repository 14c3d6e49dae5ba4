package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/service"
	"github.com/sifan077/shortlink/internal/http/middleware"
	"go.uber.org/zap"
)

// ClickEventPublisher hands clicks to the asynchronous recorder.
type ClickEventPublisher interface {
	Publish(ctx context.Context, slug string, input service.ClickInput) (*model.ClickEvent, error)
}

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Links     service.LinkService
	Recorder  service.ClickRecorder
	Publisher ClickEventPublisher
}

// RedirectHandler resolves slugs and records the click before redirecting.
type RedirectHandler struct {
	logger    *zap.Logger
	links     service.LinkService
	recorder  service.ClickRecorder
	publisher ClickEventPublisher
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
// A nil Publisher records clicks synchronously.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		links:     deps.Links,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
	}
}

// Register wires the catch-all redirect route; register it after every fixed path.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/:slug", h.Resolve)
}

// Resolve handles GET /:slug
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	slug := c.Params("slug")
	ctx := c.UserContext()

	link, err := h.links.ResolveLink(ctx, slug)
	if err != nil {
		return writeError(c, h.logger, "failed to resolve link", err, zap.String("slug", slug))
	}

	err = h.recordClick(ctx, link, service.ClickInput{
		IPAddress: middleware.ClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  c.Get(fiber.HeaderReferer),
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return writeError(c, h.logger, "failed to record click", err, zap.String("slug", slug))
	}

	h.logger.Debug("redirecting short link", zap.String("slug", slug), zap.String("target", link.OriginalURL))
	return c.Redirect(link.OriginalURL, fiber.StatusFound)
}

// recordClick publishes the click or, without a working publisher, records it inline.
// The event id is shared with the inline fallback so a publish that was stored despite
// an error is deduplicated by the consumer.
func (h *RedirectHandler) recordClick(ctx context.Context, link *model.Link, input service.ClickInput) error {
	if h.publisher != nil {
		_, err := h.publisher.Publish(ctx, link.Slug, input)
		if err == nil {
			return nil
		}
		h.logger.Warn("failed to publish click event, recording inline",
			zap.String("slug", link.Slug), zap.Error(err))
	}

	_, err := h.recorder.RecordClick(ctx, link, input)
	return err
}
