package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	"github.com/idenegocios/leadpixel/internal/app/service"
	"go.uber.org/zap"
)

// LeadDeps groups dependencies required by lead handlers.
type LeadDeps struct {
	Logger *zap.Logger
	Leads  service.LeadService
}

// LeadHandler implements the lead management API endpoints.
type LeadHandler struct {
	logger *zap.Logger
	leads  service.LeadService
}

// NewLeadHandler creates a lead handler with the provided dependencies.
func NewLeadHandler(deps LeadDeps) *LeadHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{
		logger: logger,
		leads:  deps.Leads,
	}
}

// Register wires lead routes onto the provided router. The stats route must
// precede the id route so "stats" is not captured as an id.
func (h *LeadHandler) Register(router fiber.Router) {
	leads := router.Group("/api/leads")
	{
		leads.Get("/", h.List)
		leads.Get("/stats", h.Stats)
		leads.Get("/:id", h.Get)
		leads.Post("/", h.Create)
		leads.Put("/:id", h.Update)
		leads.Delete("/:id", h.Delete)
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// List handles GET /api/leads
func (h *LeadHandler) List(c *fiber.Ctx) error {
	page, pageSize := service.NormalizePage(c.QueryInt("page", 1), c.QueryInt("pageSize", 10))
	filter := repository.LeadFilter{
		Status: c.Query("status"),
		Source: c.Query("source"),
		Search: c.Query("search"),
	}

	leads, total, err := h.leads.ListLeads(requestContext(c), filter, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list leads", zap.Error(err))
		status, msg := errorStatus(err)
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	views := make([]model.LeadView, len(leads))
	for i, lead := range leads {
		views[i] = lead.View()
	}

	return c.JSON(fiber.Map{
		"leads":    views,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// Stats handles GET /api/leads/stats
func (h *LeadHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.leads.Stats(requestContext(c))
	if err != nil {
		h.logger.Error("failed to compute lead stats", zap.Error(err))
		status, msg := errorStatus(err)
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	return c.JSON(stats)
}

// Get handles GET /api/leads/:id
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	lead, err := h.leads.GetLead(requestContext(c), id)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to get lead", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(lead.View())
}

// CreateLeadRequest represents the request body for creating a lead.
type CreateLeadRequest struct {
	Type        string                `json:"type"`
	Site        model.Site            `json:"site"`
	Data        model.LeadData        `json:"data"`
	Origin      string                `json:"origin"`
	Timestamp   time.Time             `json:"timestamp"`
	Source      string                `json:"source"`
	Status      string                `json:"status"`
	Priority    string                `json:"priority"`
	Notes       string                `json:"notes"`
	AssignedTo  string                `json:"assignedTo"`
	Traffic     model.TrafficData     `json:"traffic"`
	Interaction model.InteractionData `json:"interaction"`
}

// Create handles POST /api/leads
func (h *LeadHandler) Create(c *fiber.Ctx) error {
	var req CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	input := service.CreateLeadInput{
		Type:        req.Type,
		Site:        req.Site,
		Data:        req.Data,
		Origin:      req.Origin,
		Timestamp:   req.Timestamp,
		Source:      req.Source,
		Status:      req.Status,
		Priority:    req.Priority,
		Notes:       req.Notes,
		AssignedTo:  req.AssignedTo,
		Traffic:     req.Traffic,
		Interaction: req.Interaction,
	}

	lead, err := h.leads.CreateLead(requestContext(c), input)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to create lead", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.Status(fiber.StatusCreated).JSON(lead.View())
}

// UpdateLeadRequest represents the request body for updating a lead. Only
// the pipeline fields are recognized; anything else in the payload is
// ignored.
type UpdateLeadRequest struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	Notes      *string `json:"notes"`
	AssignedTo *string `json:"assignedTo"`
}

// Update handles PUT /api/leads/:id
func (h *LeadHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	patch := repository.LeadPatch{
		Status:     req.Status,
		Priority:   req.Priority,
		Notes:      req.Notes,
		AssignedTo: req.AssignedTo,
	}

	lead, err := h.leads.UpdateLead(requestContext(c), id, patch)
	if err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to update lead", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(lead.View())
}

// Delete handles DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.leads.DeleteLead(requestContext(c), id); err != nil {
		status, msg := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to delete lead", zap.String("id", id), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
