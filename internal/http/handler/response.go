package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	"github.com/sifan077/shortlink/internal/app/service"
	"go.uber.org/zap"
)

// LinkResponse is the API representation of a link.
type LinkResponse struct {
	Slug        string    `json:"slug"`
	OriginalURL string    `json:"original_url"`
	ShortURL    string    `json:"short_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func newLinkResponse(baseURL string, link *model.Link) LinkResponse {
	return LinkResponse{
		Slug:        link.Slug,
		OriginalURL: link.OriginalURL,
		ShortURL:    shortURL(baseURL, link.Slug),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
	}
}

func shortURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/" + slug
}

// writeError maps domain errors to status codes; anything unknown is logged and answered with 500.
func writeError(c *fiber.Ctx, logger *zap.Logger, msg string, err error, fields ...zap.Field) error {
	var invalid *service.InvalidURLError
	switch {
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": invalid.Error(),
		})
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "short link not found",
		})
	}

	logger.Error(msg, append(fields, zap.Error(err))...)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
	})
}
