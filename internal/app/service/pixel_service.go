package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	metrics "github.com/idenegocios/leadpixel/internal/infra/prometheus"
	"go.uber.org/zap"
)

// PixelService defines behaviour-level operations on pixels and their
// event stream.
type PixelService interface {
	ListPixels(ctx context.Context) ([]model.Pixel, error)
	GetPixel(ctx context.Context, id string) (*model.Pixel, error)
	CreatePixel(ctx context.Context, input CreatePixelInput) (*model.Pixel, error)
	UpdatePixel(ctx context.Context, id string, patch repository.PixelPatch) (*model.Pixel, error)
	DeletePixel(ctx context.Context, id string) error
	TrackEvent(ctx context.Context, input TrackEventInput) (string, error)
	Analytics(ctx context.Context, id, timeframe string) (*model.AnalyticsReport, error)
	Events(ctx context.Context, id string, limit, offset int) ([]model.PixelEvent, int64, error)
	Snippet(ctx context.Context, id, endpoint string) (string, error)
	WarmCodeFilter(codes []string)
}

type pixelService struct {
	repo      repository.PixelRepository
	logger    *zap.Logger
	publisher *EventPublisher
	codes     *codeFilter
}

// PixelDeps groups dependencies for the pixel service. Publisher may be nil
// when NATS is not available; ingestion then skips the fan-out.
type PixelDeps struct {
	Repo      repository.PixelRepository
	Logger    *zap.Logger
	Publisher *EventPublisher
}

// NewPixelService returns a service implementation backed by the given
// repository.
func NewPixelService(deps PixelDeps) PixelService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pixelService{
		repo:      deps.Repo,
		logger:    logger,
		publisher: deps.Publisher,
		codes:     newCodeFilter(),
	}
}

// CreatePixelInput captures data required to create a pixel.
type CreatePixelInput struct {
	Name        string
	Description string
	Site        string
}

// TrackEventInput captures one incoming tracking call. PixelCode is the
// wire-level "pixelId": the correlation key is the pixel code, not its id.
type TrackEventInput struct {
	PixelCode      string
	EventType      string
	URL            string
	Referrer       string
	UserAgent      string
	SessionID      string
	AdditionalData map[string]any
	IPAddress      string
	Timestamp      time.Time
}

func (s *pixelService) ListPixels(ctx context.Context) ([]model.Pixel, error) {
	pixels, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pixels: %w", err)
	}
	return pixels, nil
}

func (s *pixelService) GetPixel(ctx context.Context, id string) (*model.Pixel, error) {
	pixel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pixel: %w", err)
	}
	return pixel, nil
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// generateCode derives the public correlation key from a time component and
// the sanitized site, plus a UUID suffix so concurrent creations for the
// same site cannot collide.
func generateCode(id, site string) string {
	sanitized := strings.ToLower(nonAlnum.ReplaceAllString(site, "_"))
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", id, sanitized, suffix)
}

func (s *pixelService) CreatePixel(ctx context.Context, input CreatePixelInput) (*model.Pixel, error) {
	if input.Name == "" || input.Site == "" {
		return nil, fmt.Errorf("%w: missing required fields: name, site", ErrValidation)
	}

	id := fmt.Sprintf("px_%06d", time.Now().Unix()%1000000)
	id = fmt.Sprintf("%s_%s", id, strings.ReplaceAll(uuid.New().String(), "-", "")[:8])

	pixel := &model.Pixel{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Code:        generateCode(id, input.Site),
		Status:      model.PixelStatusTesting,
		Site:        input.Site,
	}

	if err := s.repo.Create(ctx, pixel); err != nil {
		return nil, fmt.Errorf("create pixel: %w", err)
	}

	s.codes.Add(pixel.Code)
	return pixel, nil
}

func (s *pixelService) UpdatePixel(ctx context.Context, id string, patch repository.PixelPatch) (*model.Pixel, error) {
	if patch.Status != nil && !validPixelStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
	}

	pixel, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update pixel: %w", err)
	}
	return pixel, nil
}

func (s *pixelService) DeletePixel(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete pixel: %w", err)
	}
	return nil
}

func (s *pixelService) TrackEvent(ctx context.Context, input TrackEventInput) (string, error) {
	if input.PixelCode == "" || input.EventType == "" || input.URL == "" {
		return "", fmt.Errorf("%w: missing required fields: pixelId, eventType, url", ErrValidation)
	}
	if !validEventType(input.EventType) {
		return "", fmt.Errorf("%w: unknown event type %q", ErrValidation, input.EventType)
	}

	// Definitive bloom-filter misses skip the store round-trip entirely;
	// possible positives still resolve through the repository.
	if !s.codes.MightContain(input.PixelCode) {
		return "", repository.ErrPixelNotFound
	}

	pixel, err := s.repo.GetByCode(ctx, input.PixelCode)
	if err != nil {
		return "", err
	}
	if pixel.Status != model.PixelStatusActive && pixel.Status != model.PixelStatusTesting {
		return "", ErrPixelInactive
	}

	event := &model.PixelEvent{
		ID:        uuid.New().String(),
		PixelID:   pixel.ID,
		PixelCode: pixel.Code,
		EventType: input.EventType,
		URL:       input.URL,
		Referrer:  input.Referrer,
		UserAgent: input.UserAgent,
		SessionID: input.SessionID,
		IPAddress: input.IPAddress,
		Timestamp: input.Timestamp,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if len(input.AdditionalData) > 0 {
		raw, err := json.Marshal(input.AdditionalData)
		if err != nil {
			return "", fmt.Errorf("%w: additionalData is not serializable", ErrValidation)
		}
		event.AdditionalData = string(raw)
	}

	conversion := input.EventType == model.EventTypeFormSubmit
	if err := s.repo.RecordEvent(ctx, event, conversion); err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}

	metrics.EventsIngested.WithLabelValues(event.EventType).Inc()

	// Fan-out is best effort: the event is durable in the store already.
	if s.publisher != nil {
		if err := s.publisher.Publish(event); err != nil {
			s.logger.Warn("failed to publish pixel event",
				zap.String("event_id", event.ID),
				zap.String("pixel_code", event.PixelCode),
				zap.Error(err))
		}
	}

	return event.ID, nil
}

// timeframeDays keeps the permissive reference behaviour: anything other
// than 7d or 30d reads as 90 days.
func timeframeDays(timeframe string) int {
	switch timeframe {
	case "7d":
		return 7
	case "30d":
		return 30
	default:
		return 90
	}
}

// pagePath groups analytics by URL path; malformed URLs fall back to the
// raw string as the grouping key.
func pagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func (s *pixelService) Analytics(ctx context.Context, id, timeframe string) (*model.AnalyticsReport, error) {
	pixel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pixel: %w", err)
	}

	since := time.Now().AddDate(0, 0, -timeframeDays(timeframe))
	events, err := s.repo.ListEventsSince(ctx, pixel.Code, since)
	if err != nil {
		return nil, fmt.Errorf("analytics events: %w", err)
	}

	report := &model.AnalyticsReport{
		Pixel:        pixel.View(),
		Timeframe:    timeframe,
		TotalEvents:  len(events),
		EventsByType: make(map[string]int, len(model.EventTypes)),
		TopPages:     make(map[string]int),
		TopReferrers: make(map[string]int),
	}
	for _, t := range model.EventTypes {
		report.EventsByType[t] = 0
	}
	for _, e := range events {
		report.EventsByType[e.EventType]++
		report.TopPages[pagePath(e.URL)]++
		referrer := e.Referrer
		if referrer == "" {
			referrer = "Direct"
		}
		report.TopReferrers[referrer]++
	}

	return report, nil
}

func (s *pixelService) Events(ctx context.Context, id string, limit, offset int) ([]model.PixelEvent, int64, error) {
	pixel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("get pixel: %w", err)
	}

	events, total, err := s.repo.ListEvents(ctx, pixel.Code, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

func (s *pixelService) Snippet(ctx context.Context, id, endpoint string) (string, error) {
	pixel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get pixel: %w", err)
	}
	return buildSnippet(pixel.Code, endpoint), nil
}

func (s *pixelService) WarmCodeFilter(codes []string) {
	s.codes.Warm(codes)
}

func validPixelStatus(status string) bool {
	switch status {
	case model.PixelStatusActive, model.PixelStatusInactive, model.PixelStatusTesting:
		return true
	}
	return false
}

func validEventType(eventType string) bool {
	for _, t := range model.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
