package handler

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/app/service"
	"go.uber.org/zap"
)

// TrackDeps groups dependencies required by the ingestion handler.
type TrackDeps struct {
	Logger *zap.Logger
	Pixels service.PixelService
}

// TrackHandler implements the public pixel ingestion endpoint. This is the
// hot path: every page view on every tracked storefront lands here.
type TrackHandler struct {
	logger *zap.Logger
	pixels service.PixelService
}

// NewTrackHandler creates an ingestion handler with the provided dependencies.
func NewTrackHandler(deps TrackDeps) *TrackHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackHandler{
		logger: logger,
		pixels: deps.Pixels,
	}
}

// Register wires the ingestion routes onto the provided router. Extra
// handlers (rate limiting) run before Track.
func (h *TrackHandler) Register(router fiber.Router, pre ...fiber.Handler) {
	router.Get("/api/ping", h.Ping)
	router.Post("/api/pixel/track", append(pre, h.Track)...)
}

// Ping is a simple liveness endpoint.
func (h *TrackHandler) Ping(c *fiber.Ctx) error {
	msg := os.Getenv("PING_MESSAGE")
	if msg == "" {
		msg = "ping"
	}
	return c.JSON(fiber.Map{"message": msg})
}

// TrackEventRequest represents one call from the client-side snippet. The
// pixelId field carries the pixel code, not its id.
type TrackEventRequest struct {
	PixelID        string         `json:"pixelId"`
	Site           string         `json:"site"`
	EventType      string         `json:"eventType"`
	Timestamp      time.Time      `json:"timestamp"`
	URL            string         `json:"url"`
	Referrer       string         `json:"referrer"`
	UserAgent      string         `json:"userAgent"`
	SessionID      string         `json:"sessionId"`
	AdditionalData map[string]any `json:"additionalData"`
}

// Track handles POST /api/pixel/track
func (h *TrackHandler) Track(c *fiber.Ctx) error {
	var req TrackEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Get(fiber.HeaderUserAgent)
	}

	eventID, err := h.pixels.TrackEvent(requestContext(c), service.TrackEventInput{
		PixelCode:      req.PixelID,
		EventType:      req.EventType,
		URL:            req.URL,
		Referrer:       req.Referrer,
		UserAgent:      userAgent,
		SessionID:      req.SessionID,
		AdditionalData: req.AdditionalData,
		IPAddress:      c.IP(),
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to record pixel event",
				zap.String("pixel_code", req.PixelID),
				zap.String("event_type", req.EventType),
				zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"eventId": eventID,
	})
}
