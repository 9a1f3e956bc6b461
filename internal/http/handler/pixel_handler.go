package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	"github.com/idenegocios/leadpixel/internal/app/service"
	"go.uber.org/zap"
)

// PixelDeps groups dependencies required by pixel management handlers.
type PixelDeps struct {
	Logger *zap.Logger
	Pixels service.PixelService
	// PublicURL is embedded in generated tracking snippets.
	PublicURL string
}

// PixelHandler implements the pixel management API endpoints.
type PixelHandler struct {
	logger    *zap.Logger
	pixels    service.PixelService
	publicURL string
}

// NewPixelHandler creates a pixel handler with the provided dependencies.
func NewPixelHandler(deps PixelDeps) *PixelHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publicURL := deps.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:8080"
	}
	return &PixelHandler{
		logger:    logger,
		pixels:    deps.Pixels,
		publicURL: publicURL,
	}
}

// Register wires pixel management routes onto the provided router.
func (h *PixelHandler) Register(router fiber.Router) {
	pixels := router.Group("/api/pixels")
	{
		pixels.Get("/", h.List)
		pixels.Get("/:id", h.Get)
		pixels.Post("/", h.Create)
		pixels.Put("/:id", h.Update)
		pixels.Delete("/:id", h.Delete)
		pixels.Get("/:id/analytics", h.Analytics)
		pixels.Get("/:id/events", h.Events)
		pixels.Get("/:id/snippet", h.Snippet)
	}
}

// List handles GET /api/pixels
func (h *PixelHandler) List(c *fiber.Ctx) error {
	pixels, err := h.pixels.ListPixels(requestContext(c))
	if err != nil {
		h.logger.Error("failed to list pixels", zap.Error(err))
		status, msg := errorStatus(err)
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	views := make([]model.PixelView, len(pixels))
	for i, p := range pixels {
		views[i] = p.View()
	}
	return c.JSON(views)
}

// Get handles GET /api/pixels/:id
func (h *PixelHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	pixel, err := h.pixels.GetPixel(requestContext(c), id)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to get pixel", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(pixel.View())
}

// CreatePixelRequest represents the request body for creating a pixel.
type CreatePixelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Site        string `json:"site"`
}

// Create handles POST /api/pixels
func (h *PixelHandler) Create(c *fiber.Ctx) error {
	var req CreatePixelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	pixel, err := h.pixels.CreatePixel(requestContext(c), service.CreatePixelInput{
		Name:        req.Name,
		Description: req.Description,
		Site:        req.Site,
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to create pixel", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.Status(fiber.StatusCreated).JSON(pixel.View())
}

// UpdatePixelRequest represents the request body for updating a pixel.
// The id, code and counters are immutable: attempts to set them are ignored.
type UpdatePixelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Site        *string `json:"site"`
}

// Update handles PUT /api/pixels/:id
func (h *PixelHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdatePixelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	pixel, err := h.pixels.UpdatePixel(requestContext(c), id, repository.PixelPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Site:        req.Site,
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to update pixel", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(pixel.View())
}

// Delete handles DELETE /api/pixels/:id
func (h *PixelHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.pixels.DeletePixel(requestContext(c), id); err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to delete pixel", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Analytics handles GET /api/pixels/:id/analytics
func (h *PixelHandler) Analytics(c *fiber.Ctx) error {
	id := c.Params("id")
	timeframe := c.Query("timeframe", "30d")

	report, err := h.pixels.Analytics(requestContext(c), id, timeframe)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to build analytics", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(report)
}

// Events handles GET /api/pixels/:id/events
func (h *PixelHandler) Events(c *fiber.Ctx) error {
	id := c.Params("id")
	limit, offset := repository.NormalizeEventPage(c.QueryInt("limit", 100), c.QueryInt("offset", 0))

	events, total, err := h.pixels.Events(requestContext(c), id, limit, offset)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to list pixel events", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	views := make([]model.PixelEventView, len(events))
	for i, e := range events {
		views[i] = e.View()
	}

	return c.JSON(fiber.Map{
		"events": views,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Snippet handles GET /api/pixels/:id/snippet
func (h *PixelHandler) Snippet(c *fiber.Ctx) error {
	id := c.Params("id")

	snippet, err := h.pixels.Snippet(requestContext(c), id, h.publicURL)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to build snippet", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	c.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	return c.SendString(snippet)
}
