package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPixel(t *testing.T, repo *MemoryPixelRepository, id, code string) model.Pixel {
	t.Helper()
	pixel := model.Pixel{
		ID:     id,
		Name:   "Checkout",
		Code:   code,
		Status: model.PixelStatusActive,
		Site:   "loja.example.com",
	}
	require.NoError(t, repo.Create(context.Background(), &pixel))
	return pixel
}

func seedEvent(t *testing.T, repo *MemoryPixelRepository, pixel model.Pixel, id string, ts time.Time, conversion bool) {
	t.Helper()
	eventType := model.EventTypePageview
	if conversion {
		eventType = model.EventTypeFormSubmit
	}
	event := model.PixelEvent{
		ID:        id,
		PixelID:   pixel.ID,
		PixelCode: pixel.Code,
		EventType: eventType,
		URL:       "https://loja.example.com/",
		Timestamp: ts,
	}
	require.NoError(t, repo.RecordEvent(context.Background(), &event, conversion))
}

func TestMemoryPixelRepository_GetByCode(t *testing.T) {
	repo := NewMemoryPixelRepository()
	seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")

	pixel, err := repo.GetByCode(context.Background(), "px_1_loja_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "px_1", pixel.ID)

	_, err = repo.GetByCode(context.Background(), "px_9_other_ffff0000")
	assert.ErrorIs(t, err, ErrPixelNotFound)
}

func TestMemoryPixelRepository_RecordEvent(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")

	ts := time.Now()
	seedEvent(t, repo, pixel, "e1", ts, false)

	got, err := repo.GetByID(context.Background(), "px_1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.TotalHits)
	assert.EqualValues(t, 0, got.Conversions)
	require.NotNil(t, got.LastHit)
	assert.True(t, got.LastHit.Equal(ts))

	// Unknown pixel rejects the event.
	err = repo.RecordEvent(context.Background(), &model.PixelEvent{ID: "e2", PixelID: "missing"}, false)
	assert.ErrorIs(t, err, ErrPixelNotFound)
}

func TestMemoryPixelRepository_RecordEvent_ConversionRate(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")
	ctx := context.Background()

	// With no unique visitors yet the divisor floors at 1.
	seedEvent(t, repo, pixel, "e1", time.Now(), true)
	got, err := repo.GetByID(ctx, "px_1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Conversions)
	assert.InDelta(t, 100.0, got.ConversionRate, 0.001)

	require.NoError(t, repo.SetUniqueVisitors(ctx, "px_1", 4))
	got, err = repo.GetByID(ctx, "px_1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.UniqueVisitors)
	assert.InDelta(t, 25.0, got.ConversionRate, 0.001)

	assert.ErrorIs(t, repo.SetUniqueVisitors(ctx, "missing", 1), ErrPixelNotFound)
}

func TestMemoryPixelRepository_RecordEvent_Concurrent(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")

	const hits = 100
	var wg sync.WaitGroup
	wg.Add(hits)
	for i := 0; i < hits; i++ {
		go func(n int) {
			defer wg.Done()
			event := model.PixelEvent{
				ID:        fmt.Sprintf("e%d", n),
				PixelID:   pixel.ID,
				PixelCode: pixel.Code,
				EventType: model.EventTypePageview,
				Timestamp: time.Now(),
			}
			_ = repo.RecordEvent(context.Background(), &event, false)
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(context.Background(), "px_1")
	require.NoError(t, err)
	assert.EqualValues(t, hits, got.TotalHits)

	_, total, err := repo.ListEvents(context.Background(), pixel.Code, hits, 0)
	require.NoError(t, err)
	assert.EqualValues(t, hits, total)
}

func TestMemoryPixelRepository_ListEvents(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")
	other := seedPixel(t, repo, "px_2", "px_2_outra_ffff0000")

	base := time.Now()
	for i := 0; i < 5; i++ {
		seedEvent(t, repo, pixel, fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Second), false)
	}
	seedEvent(t, repo, other, "o1", base, false)

	ctx := context.Background()

	// Newest first, scoped to the requested code.
	events, total, err := repo.ListEvents(ctx, pixel.Code, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, events, 2)
	assert.Equal(t, "e4", events[0].ID)
	assert.Equal(t, "e3", events[1].ID)

	events, total, err = repo.ListEvents(ctx, pixel.Code, 2, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, events, 1)
	assert.Equal(t, "e0", events[0].ID)

	events, total, err = repo.ListEvents(ctx, pixel.Code, 10, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, events)
}

func TestMemoryPixelRepository_ListEventsSince(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")

	base := time.Now()
	seedEvent(t, repo, pixel, "old", base.Add(-48*time.Hour), false)
	seedEvent(t, repo, pixel, "recent", base, false)
	seedEvent(t, repo, pixel, "edge", base.Add(-24*time.Hour), false)

	events, err := repo.ListEventsSince(context.Background(), pixel.Code, base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Window is inclusive of the boundary.
	assert.Equal(t, "recent", events[0].ID)
	assert.Equal(t, "edge", events[1].ID)
}

func TestMemoryPixelRepository_DeleteCascadesEvents(t *testing.T) {
	repo := NewMemoryPixelRepository()
	pixel := seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")
	other := seedPixel(t, repo, "px_2", "px_2_outra_ffff0000")
	seedEvent(t, repo, pixel, "e1", time.Now(), false)
	seedEvent(t, repo, other, "o1", time.Now(), false)

	ctx := context.Background()
	require.NoError(t, repo.Delete(ctx, "px_1"))

	_, err := repo.GetByID(ctx, "px_1")
	assert.ErrorIs(t, err, ErrPixelNotFound)

	_, total, err := repo.ListEvents(ctx, pixel.Code, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	// Unrelated pixels keep their events.
	_, total, err = repo.ListEvents(ctx, other.Code, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	assert.ErrorIs(t, repo.Delete(ctx, "px_1"), ErrPixelNotFound)
}

func TestMemoryPixelRepository_Update(t *testing.T) {
	repo := NewMemoryPixelRepository()
	seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")

	status := model.PixelStatusInactive
	name := "Checkout v2"
	pixel, err := repo.Update(context.Background(), "px_1", PixelPatch{Status: &status, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, model.PixelStatusInactive, pixel.Status)
	assert.Equal(t, "Checkout v2", pixel.Name)
	// Code is not part of the patch surface.
	assert.Equal(t, "px_1_loja_abcd1234", pixel.Code)

	_, err = repo.Update(context.Background(), "missing", PixelPatch{Status: &status})
	assert.ErrorIs(t, err, ErrPixelNotFound)
}

func TestMemoryPixelRepository_ListCodes(t *testing.T) {
	repo := NewMemoryPixelRepository()
	seedPixel(t, repo, "px_1", "px_1_loja_abcd1234")
	seedPixel(t, repo, "px_2", "px_2_outra_ffff0000")

	codes, err := repo.ListCodes(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"px_1_loja_abcd1234", "px_2_outra_ffff0000"}, codes)
}
