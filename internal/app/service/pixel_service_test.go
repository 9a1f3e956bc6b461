package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
)

type mockPixelRepository struct {
	listFn            func(ctx context.Context) ([]model.Pixel, error)
	getFn             func(ctx context.Context, id string) (*model.Pixel, error)
	getByCodeFn       func(ctx context.Context, code string) (*model.Pixel, error)
	createFn          func(ctx context.Context, pixel *model.Pixel) error
	updateFn          func(ctx context.Context, id string, patch repository.PixelPatch) (*model.Pixel, error)
	deleteFn          func(ctx context.Context, id string) error
	listCodesFn       func(ctx context.Context) ([]string, error)
	recordEventFn     func(ctx context.Context, event *model.PixelEvent, conversion bool) error
	listEventsFn      func(ctx context.Context, pixelCode string, limit, offset int) ([]model.PixelEvent, int64, error)
	listEventsSinceFn func(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error)
	setVisitorsFn     func(ctx context.Context, pixelID string, count int64) error
}

func (m *mockPixelRepository) List(ctx context.Context) ([]model.Pixel, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPixelRepository) GetByID(ctx context.Context, id string) (*model.Pixel, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrPixelNotFound
}

func (m *mockPixelRepository) GetByCode(ctx context.Context, code string) (*model.Pixel, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, repository.ErrPixelNotFound
}

func (m *mockPixelRepository) Create(ctx context.Context, pixel *model.Pixel) error {
	if m.createFn != nil {
		return m.createFn(ctx, pixel)
	}
	return nil
}

func (m *mockPixelRepository) Update(ctx context.Context, id string, patch repository.PixelPatch) (*model.Pixel, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, repository.ErrPixelNotFound
}

func (m *mockPixelRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPixelRepository) ListCodes(ctx context.Context) ([]string, error) {
	if m.listCodesFn != nil {
		return m.listCodesFn(ctx)
	}
	return nil, nil
}

func (m *mockPixelRepository) RecordEvent(ctx context.Context, event *model.PixelEvent, conversion bool) error {
	if m.recordEventFn != nil {
		return m.recordEventFn(ctx, event, conversion)
	}
	return nil
}

func (m *mockPixelRepository) ListEvents(ctx context.Context, pixelCode string, limit, offset int) ([]model.PixelEvent, int64, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, pixelCode, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockPixelRepository) ListEventsSince(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error) {
	if m.listEventsSinceFn != nil {
		return m.listEventsSinceFn(ctx, pixelCode, since)
	}
	return nil, nil
}

func (m *mockPixelRepository) SetUniqueVisitors(ctx context.Context, pixelID string, count int64) error {
	if m.setVisitorsFn != nil {
		return m.setVisitorsFn(ctx, pixelID, count)
	}
	return nil
}

func newTestPixelService(repo repository.PixelRepository) PixelService {
	return NewPixelService(PixelDeps{Repo: repo})
}

func TestPixelService_CreatePixel(t *testing.T) {
	var captured *model.Pixel
	repo := &mockPixelRepository{
		createFn: func(ctx context.Context, pixel *model.Pixel) error {
			captured = pixel
			return nil
		},
	}

	svc := newTestPixelService(repo)
	pixel, err := svc.CreatePixel(context.Background(), CreatePixelInput{
		Name: "Checkout",
		Site: "Loja Teste",
	})
	if err != nil {
		t.Fatalf("CreatePixel returned error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected repository Create to be called")
	}
	if pixel.Status != model.PixelStatusTesting {
		t.Fatalf("expected new pixels to start in testing, got %q", pixel.Status)
	}
	if !strings.HasPrefix(pixel.ID, "px_") {
		t.Fatalf("expected px_ id prefix, got %q", pixel.ID)
	}
	if !strings.HasPrefix(pixel.Code, pixel.ID+"_") {
		t.Fatalf("expected code to embed the id, got %q", pixel.Code)
	}
	if !strings.Contains(pixel.Code, "loja_teste") {
		t.Fatalf("expected sanitized site in code, got %q", pixel.Code)
	}
}

func TestPixelService_CreatePixel_MissingFields(t *testing.T) {
	svc := newTestPixelService(&mockPixelRepository{})

	_, err := svc.CreatePixel(context.Background(), CreatePixelInput{Name: "Checkout"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPixelService_UpdatePixel_UnknownStatus(t *testing.T) {
	svc := newTestPixelService(&mockPixelRepository{})

	status := "paused"
	_, err := svc.UpdatePixel(context.Background(), "px_1", repository.PixelPatch{Status: &status})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPixelService_TrackEvent(t *testing.T) {
	var captured *model.PixelEvent
	var conversionFlag bool
	repo := &mockPixelRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Pixel, error) {
			return &model.Pixel{ID: "px_1", Code: code, Status: model.PixelStatusActive}, nil
		},
		recordEventFn: func(ctx context.Context, event *model.PixelEvent, conversion bool) error {
			captured = event
			conversionFlag = conversion
			return nil
		},
	}

	svc := newTestPixelService(repo)
	eventID, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_1_site_abcd1234",
		EventType: model.EventTypePageview,
		URL:       "https://loja.example.com/produtos",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("TrackEvent returned error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected RecordEvent to be called")
	}
	if eventID == "" || captured.ID != eventID {
		t.Fatalf("expected generated event id, got %q", eventID)
	}
	if captured.PixelID != "px_1" {
		t.Fatalf("expected event bound to pixel id, got %q", captured.PixelID)
	}
	if captured.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be backfilled")
	}
	if conversionFlag {
		t.Fatal("pageview must not count as a conversion")
	}
}

func TestPixelService_TrackEvent_FormSubmitIsConversion(t *testing.T) {
	var conversionFlag bool
	repo := &mockPixelRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Pixel, error) {
			return &model.Pixel{ID: "px_1", Code: code, Status: model.PixelStatusTesting}, nil
		},
		recordEventFn: func(ctx context.Context, event *model.PixelEvent, conversion bool) error {
			conversionFlag = conversion
			return nil
		},
	}

	svc := newTestPixelService(repo)
	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_1_site_abcd1234",
		EventType: model.EventTypeFormSubmit,
		URL:       "https://loja.example.com/cadastro",
	})
	if err != nil {
		t.Fatalf("TrackEvent returned error: %v", err)
	}
	if !conversionFlag {
		t.Fatal("form_submit must count as a conversion")
	}
}

func TestPixelService_TrackEvent_InactivePixel(t *testing.T) {
	repo := &mockPixelRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Pixel, error) {
			return &model.Pixel{ID: "px_1", Code: code, Status: model.PixelStatusInactive}, nil
		},
		recordEventFn: func(ctx context.Context, event *model.PixelEvent, conversion bool) error {
			t.Fatal("RecordEvent must not be called for inactive pixels")
			return nil
		},
	}

	svc := newTestPixelService(repo)
	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_1_site_abcd1234",
		EventType: model.EventTypePageview,
		URL:       "https://loja.example.com/",
	})
	if !errors.Is(err, ErrPixelInactive) {
		t.Fatalf("expected ErrPixelInactive, got %v", err)
	}
}

func TestPixelService_TrackEvent_UnknownEventType(t *testing.T) {
	svc := newTestPixelService(&mockPixelRepository{})

	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_1_site_abcd1234",
		EventType: "hover",
		URL:       "https://loja.example.com/",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPixelService_TrackEvent_MissingFields(t *testing.T) {
	svc := newTestPixelService(&mockPixelRepository{})

	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		EventType: model.EventTypePageview,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPixelService_TrackEvent_WarmFilterRejectsUnknownCode(t *testing.T) {
	repo := &mockPixelRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Pixel, error) {
			t.Fatal("store lookup must be skipped on a definitive filter miss")
			return nil, nil
		},
	}

	svc := newTestPixelService(repo)
	svc.WarmCodeFilter([]string{"px_1_site_abcd1234"})

	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_9_other_ffff0000",
		EventType: model.EventTypePageview,
		URL:       "https://loja.example.com/",
	})
	if !errors.Is(err, repository.ErrPixelNotFound) {
		t.Fatalf("expected ErrPixelNotFound, got %v", err)
	}
}

func TestPixelService_TrackEvent_ColdFilterNeverRejects(t *testing.T) {
	called := false
	repo := &mockPixelRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Pixel, error) {
			called = true
			return nil, repository.ErrPixelNotFound
		},
	}

	svc := newTestPixelService(repo)
	_, err := svc.TrackEvent(context.Background(), TrackEventInput{
		PixelCode: "px_9_other_ffff0000",
		EventType: model.EventTypePageview,
		URL:       "https://loja.example.com/",
	})
	if !errors.Is(err, repository.ErrPixelNotFound) {
		t.Fatalf("expected ErrPixelNotFound, got %v", err)
	}
	if !called {
		t.Fatal("cold filter must fall through to the store lookup")
	}
}

func TestPixelService_Analytics(t *testing.T) {
	now := time.Now()
	repo := &mockPixelRepository{
		getFn: func(ctx context.Context, id string) (*model.Pixel, error) {
			return &model.Pixel{ID: id, Code: "px_1_site_abcd1234", Status: model.PixelStatusActive}, nil
		},
		listEventsSinceFn: func(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error) {
			return []model.PixelEvent{
				{EventType: model.EventTypePageview, URL: "https://loja.example.com/checkout", Referrer: "", Timestamp: now},
				{EventType: model.EventTypePageview, URL: "https://loja.example.com/checkout?step=2", Referrer: "https://google.com", Timestamp: now},
				{EventType: model.EventTypeFormSubmit, URL: "https://loja.example.com/cadastro", Referrer: "", Timestamp: now},
			}, nil
		},
	}

	svc := newTestPixelService(repo)
	report, err := svc.Analytics(context.Background(), "px_1", "30d")
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	if report.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", report.TotalEvents)
	}
	if report.EventsByType[model.EventTypePageview] != 2 || report.EventsByType[model.EventTypeFormSubmit] != 1 {
		t.Fatalf("unexpected type breakdown: %+v", report.EventsByType)
	}
	// Every known type appears even at zero.
	if _, ok := report.EventsByType[model.EventTypeCTAClick]; !ok {
		t.Fatal("expected cta_click key in type breakdown")
	}
	if report.TopPages["/checkout"] != 2 {
		t.Fatalf("expected query strings stripped from page grouping, got %+v", report.TopPages)
	}
	if report.TopReferrers["Direct"] != 2 {
		t.Fatalf("expected empty referrers grouped as Direct, got %+v", report.TopReferrers)
	}
}

func TestPixelService_Analytics_TimeframeWindow(t *testing.T) {
	var capturedSince time.Time
	repo := &mockPixelRepository{
		getFn: func(ctx context.Context, id string) (*model.Pixel, error) {
			return &model.Pixel{ID: id, Code: "px_1_site_abcd1234"}, nil
		},
		listEventsSinceFn: func(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error) {
			capturedSince = since
			return nil, nil
		},
	}
	svc := newTestPixelService(repo)

	cases := []struct {
		timeframe string
		days      int
	}{
		{"7d", 7},
		{"30d", 30},
		{"1y", 90},
		{"", 90},
	}
	for _, tc := range cases {
		if _, err := svc.Analytics(context.Background(), "px_1", tc.timeframe); err != nil {
			t.Fatalf("Analytics(%q) error: %v", tc.timeframe, err)
		}
		want := time.Now().AddDate(0, 0, -tc.days)
		if diff := capturedSince.Sub(want); diff < -time.Minute || diff > time.Minute {
			t.Fatalf("timeframe %q: expected window near %v, got %v", tc.timeframe, want, capturedSince)
		}
	}
}

func TestPixelService_Snippet(t *testing.T) {
	repo := &mockPixelRepository{
		getFn: func(ctx context.Context, id string) (*model.Pixel, error) {
			return &model.Pixel{ID: id, Code: "px_1_site_abcd1234"}, nil
		},
	}

	svc := newTestPixelService(repo)
	snippet, err := svc.Snippet(context.Background(), "px_1", "https://track.example.com")
	if err != nil {
		t.Fatalf("Snippet returned error: %v", err)
	}
	if !strings.Contains(snippet, "px_1_site_abcd1234") {
		t.Fatal("expected snippet to embed the pixel code")
	}
	if !strings.Contains(snippet, "https://track.example.com") {
		t.Fatal("expected snippet to embed the endpoint")
	}
}

func TestPagePath(t *testing.T) {
	cases := map[string]string{
		"https://loja.example.com/checkout":       "/checkout",
		"https://loja.example.com/checkout?a=1#x": "/checkout",
		"https://loja.example.com":                "/",
		"://bad":                                  "://bad",
	}
	for raw, want := range cases {
		if got := pagePath(raw); got != want {
			t.Fatalf("pagePath(%q) = %q, want %q", raw, got, want)
		}
	}
}
