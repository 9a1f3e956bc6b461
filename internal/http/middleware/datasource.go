package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// DataSourceHeader reports which backing data path served the response.
const DataSourceHeader = "X-Data-Source"

const (
	DataSourceStore    = "store"
	DataSourceFallback = "fallback"
)

// DataSource tags every request with the active data path. The mode is
// decided once at boot by the store availability probe; this middleware
// only reports it.
func DataSource(mode string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(DataSourceHeader, mode)
		c.Locals("data_source", mode)
		return c.Next()
	}
}
