package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/idenegocios/leadpixel/internal/http/middleware"
)

func TestServer_PingAndDataSourceHeader(t *testing.T) {
	s := New(Dependencies{DataSourceMode: middleware.DataSourceFallback})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/ping", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(middleware.DataSourceHeader); got != middleware.DataSourceFallback {
		t.Fatalf("expected %s header %q, got %q", middleware.DataSourceHeader, middleware.DataSourceFallback, got)
	}
}

func TestServer_Shutdown(t *testing.T) {
	s := New(Dependencies{DataSourceMode: middleware.DataSourceStore})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
