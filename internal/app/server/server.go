package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/app/service"
	"github.com/idenegocios/leadpixel/internal/http/handler"
	"github.com/idenegocios/leadpixel/internal/http/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs. Redis may be nil
// (fallback mode without infra); the ingestion route then runs unthrottled.
type Dependencies struct {
	Logger         *zap.Logger
	Redis          *redis.Client
	Leads          service.LeadService
	Pixels         service.PixelService
	DataSourceMode string
	PublicURL      string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.DataSource(s.deps.DataSourceMode))

	leadHandler := handler.NewLeadHandler(handler.LeadDeps{
		Logger: s.deps.Logger,
		Leads:  s.deps.Leads,
	})
	leadHandler.Register(s.app)

	pixelHandler := handler.NewPixelHandler(handler.PixelDeps{
		Logger:    s.deps.Logger,
		Pixels:    s.deps.Pixels,
		PublicURL: s.deps.PublicURL,
	})
	pixelHandler.Register(s.app)

	trackHandler := handler.NewTrackHandler(handler.TrackDeps{
		Logger: s.deps.Logger,
		Pixels: s.deps.Pixels,
	})
	var pre []fiber.Handler
	if s.deps.Redis != nil {
		pre = append(pre, middleware.RateLimit(s.deps.Redis, middleware.TrackRateLimitConfig(), s.deps.Logger))
	}
	trackHandler.Register(s.app, pre...)
}
