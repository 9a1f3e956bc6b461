package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
)

// MemoryPixelRepository is the fallback pixel store. The mutex is the single
// mutual-exclusion domain for the whole dataset, so counter increments never
// race even under concurrent ingestion.
type MemoryPixelRepository struct {
	mu     sync.Mutex
	pixels map[string]model.Pixel
	events []model.PixelEvent
}

// NewMemoryPixelRepository returns an empty in-memory PixelRepository.
func NewMemoryPixelRepository() *MemoryPixelRepository {
	return &MemoryPixelRepository{pixels: make(map[string]model.Pixel)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (r *MemoryPixelRepository) List(ctx context.Context) ([]model.Pixel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Pixel, 0, len(r.pixels))
	for _, p := range r.pixels {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryPixelRepository) GetByID(ctx context.Context, id string) (*model.Pixel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pixels[id]
	if !ok {
		return nil, ErrPixelNotFound
	}
	return &p, nil
}

func (r *MemoryPixelRepository) GetByCode(ctx context.Context, code string) (*model.Pixel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pixels {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, ErrPixelNotFound
}

func (r *MemoryPixelRepository) Create(ctx context.Context, pixel *model.Pixel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if pixel.CreatedAt.IsZero() {
		pixel.CreatedAt = now
	}
	pixel.UpdatedAt = now

	r.pixels[pixel.ID] = *pixel
	return nil
}

func (r *MemoryPixelRepository) Update(ctx context.Context, id string, patch PixelPatch) (*model.Pixel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pixels[id]
	if !ok {
		return nil, ErrPixelNotFound
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Site != nil {
		p.Site = *patch.Site
	}
	p.UpdatedAt = time.Now()

	r.pixels[id] = p
	return &p, nil
}

func (r *MemoryPixelRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pixels[id]; !ok {
		return ErrPixelNotFound
	}
	delete(r.pixels, id)

	// Cascade: drop the deleted pixel's events.
	kept := r.events[:0]
	for _, e := range r.events {
		if e.PixelID != id {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

func (r *MemoryPixelRepository) ListCodes(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := make([]string, 0, len(r.pixels))
	for _, p := range r.pixels {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

func (r *MemoryPixelRepository) RecordEvent(ctx context.Context, event *model.PixelEvent, conversion bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pixels[event.PixelID]
	if !ok {
		return ErrPixelNotFound
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events = append(r.events, *event)

	p.TotalHits++
	hit := event.Timestamp
	p.LastHit = &hit
	if conversion {
		p.Conversions++
		visitors := p.UniqueVisitors
		if visitors < 1 {
			visitors = 1
		}
		p.ConversionRate = round2(float64(p.Conversions) * 100 / float64(visitors))
	}

	r.pixels[event.PixelID] = p
	return nil
}

func (r *MemoryPixelRepository) eventsByCode(pixelCode string) []model.PixelEvent {
	out := make([]model.PixelEvent, 0)
	for _, e := range r.events {
		if e.PixelCode == pixelCode {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *MemoryPixelRepository) ListEvents(ctx context.Context, pixelCode string, limit, offset int) ([]model.PixelEvent, int64, error) {
	limit, offset = NormalizeEventPage(limit, offset)

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := r.eventsByCode(pixelCode)
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.PixelEvent{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *MemoryPixelRepository) ListEventsSince(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.PixelEvent, 0)
	for _, e := range r.eventsByCode(pixelCode) {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryPixelRepository) SetUniqueVisitors(ctx context.Context, pixelID string, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pixels[pixelID]
	if !ok {
		return ErrPixelNotFound
	}

	p.UniqueVisitors = count
	visitors := count
	if visitors < 1 {
		visitors = 1
	}
	p.ConversionRate = round2(float64(p.Conversions) * 100 / float64(visitors))

	r.pixels[pixelID] = p
	return nil
}
