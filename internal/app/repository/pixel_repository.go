package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrPixelNotFound signals that the requested pixel does not exist.
	ErrPixelNotFound = errors.New("pixel not found")
)

// PixelPatch carries the only fields mutable after creation; id, code and
// the derived counters are never writable through Update.
type PixelPatch struct {
	Name        *string
	Description *string
	Status      *string
	Site        *string
}

// Empty reports whether the patch carries no recognized field.
func (p PixelPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.Site == nil
}

// NormalizeEventPage clamps event paging input to the served defaults.
// Handlers apply it before echoing limit/offset, so the response envelope
// always matches the slice returned.
func NormalizeEventPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// PixelRepository defines the data access contract for pixels and their
// append-only event stream.
type PixelRepository interface {
	List(ctx context.Context) ([]model.Pixel, error)
	GetByID(ctx context.Context, id string) (*model.Pixel, error)
	GetByCode(ctx context.Context, code string) (*model.Pixel, error)
	Create(ctx context.Context, pixel *model.Pixel) error
	Update(ctx context.Context, id string, patch PixelPatch) (*model.Pixel, error)
	Delete(ctx context.Context, id string) error
	ListCodes(ctx context.Context) ([]string, error)

	// RecordEvent appends the event and bumps the parent pixel's counters in
	// one transaction. Counter updates are relative SQL expressions, never
	// application-level read-modify-write.
	RecordEvent(ctx context.Context, event *model.PixelEvent, conversion bool) error
	ListEvents(ctx context.Context, pixelCode string, limit, offset int) ([]model.PixelEvent, int64, error)
	ListEventsSince(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error)
	SetUniqueVisitors(ctx context.Context, pixelID string, count int64) error
}

type pixelRepository struct {
	db *gorm.DB
}

// NewPixelRepository returns a GORM-backed PixelRepository.
func NewPixelRepository(db *gorm.DB) PixelRepository {
	return &pixelRepository{db: db}
}

func (r *pixelRepository) List(ctx context.Context) ([]model.Pixel, error) {
	var pixels []model.Pixel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&pixels).Error; err != nil {
		return nil, fmt.Errorf("list pixels: %w", err)
	}
	return pixels, nil
}

func (r *pixelRepository) getBy(ctx context.Context, column, value string) (*model.Pixel, error) {
	var pixel model.Pixel
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&pixel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPixelNotFound
		}
		return nil, err
	}
	return &pixel, nil
}

func (r *pixelRepository) GetByID(ctx context.Context, id string) (*model.Pixel, error) {
	return r.getBy(ctx, "id", id)
}

func (r *pixelRepository) GetByCode(ctx context.Context, code string) (*model.Pixel, error) {
	return r.getBy(ctx, "code", code)
}

func (r *pixelRepository) Create(ctx context.Context, pixel *model.Pixel) error {
	if err := r.db.WithContext(ctx).Create(pixel).Error; err != nil {
		return fmt.Errorf("insert pixel: %w", err)
	}
	return nil
}

func (r *pixelRepository) Update(ctx context.Context, id string, patch PixelPatch) (*model.Pixel, error) {
	values := map[string]interface{}{}
	if patch.Name != nil {
		values["name"] = *patch.Name
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Status != nil {
		values["status"] = *patch.Status
	}
	if patch.Site != nil {
		values["site"] = *patch.Site
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&model.Pixel{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrPixelNotFound
	}

	if len(values) > 0 {
		if err := r.db.WithContext(ctx).Model(&model.Pixel{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return nil, fmt.Errorf("update pixel: %w", err)
		}
	}

	return r.GetByID(ctx, id)
}

func (r *pixelRepository) Delete(ctx context.Context, id string) error {
	// Events go with the pixel via FK cascade.
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Pixel{})
	if res.Error != nil {
		return fmt.Errorf("delete pixel: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPixelNotFound
	}
	return nil
}

func (r *pixelRepository) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&model.Pixel{}).Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("list pixel codes: %w", err)
	}
	return codes, nil
}

func (r *pixelRepository) RecordEvent(ctx context.Context, event *model.PixelEvent, conversion bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("insert pixel event: %w", err)
		}

		updates := map[string]interface{}{
			"total_hits": gorm.Expr("total_hits + 1"),
			"last_hit":   event.Timestamp,
		}
		if conversion {
			updates["conversions"] = gorm.Expr("conversions + 1")
			updates["conversion_rate"] = gorm.Expr("(conversions + 1) * 100.0 / GREATEST(unique_visitors, 1)")
		}

		res := tx.Model(&model.Pixel{}).Where("id = ?", event.PixelID).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("bump pixel counters: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPixelNotFound
		}
		return nil
	})
}

func (r *pixelRepository) ListEvents(ctx context.Context, pixelCode string, limit, offset int) ([]model.PixelEvent, int64, error) {
	limit, offset = NormalizeEventPage(limit, offset)

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.PixelEvent{}).
		Where("pixel_code = ?", pixelCode).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count pixel events: %w", err)
	}

	var events []model.PixelEvent
	if err := r.db.WithContext(ctx).
		Where("pixel_code = ?", pixelCode).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("list pixel events: %w", err)
	}

	return events, total, nil
}

func (r *pixelRepository) ListEventsSince(ctx context.Context, pixelCode string, since time.Time) ([]model.PixelEvent, error) {
	var events []model.PixelEvent
	if err := r.db.WithContext(ctx).
		Where("pixel_code = ? AND timestamp >= ?", pixelCode, since).
		Order("timestamp DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list pixel events since %s: %w", since.Format(time.RFC3339), err)
	}
	return events, nil
}

func (r *pixelRepository) SetUniqueVisitors(ctx context.Context, pixelID string, count int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Pixel{}).
		Where("id = ?", pixelID).
		Updates(map[string]interface{}{
			"unique_visitors": count,
			"conversion_rate": gorm.Expr("conversions * 100.0 / GREATEST(?, 1)", count),
		})
	if res.Error != nil {
		return fmt.Errorf("set unique visitors: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPixelNotFound
	}
	return nil
}
