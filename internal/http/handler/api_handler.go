package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/service"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Links     service.LinkService
	Analytics service.AnalyticsService
	BaseURL   string
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger    *zap.Logger
	links     service.LinkService
	analytics service.AnalyticsService
	baseURL   string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		links:     deps.Links,
		analytics: deps.Analytics,
		baseURL:   deps.BaseURL,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		api.Post("/shorten", h.CreateLink)

		links := api.Group("/links")
		{
			links.Get("/", h.ListLinks)
			links.Get("/:slug", h.GetLink)
			links.Get("/:slug/qrcode", h.QRCode)
		}

		api.Get("/analytics/:slug", h.Analytics)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OriginalURL string `json:"original_url"`
}

// CreateLink handles POST /api/shorten
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.links.CreateLink(c.UserContext(), req.OriginalURL)
	if err != nil {
		return writeError(c, h.logger, "failed to create link", err)
	}

	return c.Status(fiber.StatusCreated).JSON(newLinkResponse(h.baseURL, link))
}

// ListLinks handles GET /api/links. Without limit and offset every link is returned;
// with either, the result is paged (limit defaults to 20, at most 100).
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	if c.Query("limit") == "" && c.Query("offset") == "" {
		links, err := h.links.GetAllLinks(c.UserContext())
		if err != nil {
			return writeError(c, h.logger, "failed to list links", err)
		}
		return c.JSON(fiber.Map{
			"links": h.linkResponses(links),
			"count": len(links),
		})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	links, err := h.links.ListLinks(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "failed to list links", err)
	}

	return c.JSON(fiber.Map{
		"links":  h.linkResponses(links),
		"limit":  limit,
		"offset": offset,
		"count":  len(links),
	})
}

func (h *APIHandler) linkResponses(links []model.Link) []LinkResponse {
	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = newLinkResponse(h.baseURL, &links[i])
	}
	return response
}

// GetLink handles GET /api/links/:slug
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	slug := c.Params("slug")

	link, err := h.links.GetLinkBySlug(c.UserContext(), slug)
	if err != nil {
		return writeError(c, h.logger, "failed to get link", err, zap.String("slug", slug))
	}

	return c.JSON(newLinkResponse(h.baseURL, link))
}

// QRCode handles GET /api/links/:slug/qrcode and renders the short URL as PNG.
func (h *APIHandler) QRCode(c *fiber.Ctx) error {
	slug := c.Params("slug")
	size := c.QueryInt("size", defaultQRSize)
	if size < minQRSize || size > maxQRSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "size must be between " + strconv.Itoa(minQRSize) + " and " + strconv.Itoa(maxQRSize),
		})
	}

	link, err := h.links.GetLinkBySlug(c.UserContext(), slug)
	if err != nil {
		return writeError(c, h.logger, "failed to get link", err, zap.String("slug", slug))
	}

	png, err := qrcode.Encode(shortURL(h.baseURL, link.Slug), qrcode.Medium, size)
	if err != nil {
		return writeError(c, h.logger, "failed to render qr code", err, zap.String("slug", slug))
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	c.Type("png")
	return c.Send(png)
}

// Analytics handles GET /api/analytics/:slug
func (h *APIHandler) Analytics(c *fiber.Ctx) error {
	slug := c.Params("slug")
	ctx := c.UserContext()

	link, err := h.links.GetLinkBySlug(ctx, slug)
	if err != nil {
		return writeError(c, h.logger, "failed to get link", err, zap.String("slug", slug))
	}

	summary, err := h.analytics.GetAnalytics(ctx, link)
	if err != nil {
		return writeError(c, h.logger, "failed to load analytics", err, zap.String("slug", slug))
	}

	return c.JSON(summary)
}
