package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	"github.com/idenegocios/leadpixel/internal/app/service"
)

// errorStatus maps layered errors onto the HTTP taxonomy. Anything
// unrecognized is an internal error and gets a generic message; the full
// error is logged by the handler, never returned to the caller.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrLeadNotFound):
		return fiber.StatusNotFound, "Lead not found"
	case errors.Is(err, repository.ErrPixelNotFound):
		return fiber.StatusNotFound, "Pixel not found"
	case errors.Is(err, service.ErrPixelInactive):
		return fiber.StatusForbidden, "Pixel is not active"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
