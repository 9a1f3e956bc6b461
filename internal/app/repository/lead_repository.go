package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLeadNotFound signals that the requested lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
)

// LeadFilter narrows List results. Empty values and the literal "all" mean
// no filtering on that dimension; Search is a case-insensitive substring
// match across nome, whatsapp and cep.
type LeadFilter struct {
	Status string
	Source string
	Search string
}

// LeadPatch carries the only fields mutable after creation. Nil means
// "leave unchanged".
type LeadPatch struct {
	Status     *string
	Priority   *string
	Notes      *string
	AssignedTo *string
}

// Empty reports whether the patch carries no recognized field.
func (p LeadPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.Notes == nil && p.AssignedTo == nil
}

// LeadAggregates holds the raw grouped counts behind the stats report.
type LeadAggregates struct {
	Total    int64
	ByStatus map[string]int64
	BySource map[string]int64
	ByType   map[string]int64
}

// LeadRepository defines the data access contract for leads and their
// traffic/interaction child records.
type LeadRepository interface {
	List(ctx context.Context, filter LeadFilter, page, pageSize int) ([]model.Lead, int64, error)
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	Create(ctx context.Context, lead *model.Lead) error
	Update(ctx context.Context, id string, patch LeadPatch) (*model.Lead, error)
	Delete(ctx context.Context, id string) error
	Aggregates(ctx context.Context) (*LeadAggregates, error)
}

type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository returns a GORM-backed LeadRepository.
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) applyFilter(q *gorm.DB, filter LeadFilter) *gorm.DB {
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Source != "" && filter.Source != "all" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("nome ILIKE ? OR whatsapp ILIKE ? OR cep ILIKE ?", pattern, pattern, pattern)
	}
	return q
}

func (r *leadRepository) List(ctx context.Context, filter LeadFilter, page, pageSize int) ([]model.Lead, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Lead{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	var leads []model.Lead
	// Secondary id ordering keeps pagination deterministic on tied timestamps.
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Lead{}), filter).
		Preload("Traffic").
		Preload("Interaction").
		Order("timestamp DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}

	return leads, total, nil
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	err := r.db.WithContext(ctx).
		Preload("Traffic").
		Preload("Interaction").
		Where("id = ?", id).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) Create(ctx context.Context, lead *model.Lead) error {
	// GORM writes the lead and both child rows inside one transaction, so a
	// failed traffic/interaction insert rolls the lead back too.
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *leadRepository) Update(ctx context.Context, id string, patch LeadPatch) (*model.Lead, error) {
	values := map[string]interface{}{}
	if patch.Status != nil {
		values["status"] = *patch.Status
	}
	if patch.Priority != nil {
		values["priority"] = *patch.Priority
	}
	if patch.Notes != nil {
		values["notes"] = *patch.Notes
	}
	if patch.AssignedTo != nil {
		values["assigned_to"] = *patch.AssignedTo
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&model.Lead{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrLeadNotFound
	}

	if len(values) > 0 {
		if err := r.db.WithContext(ctx).Model(&model.Lead{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return nil, fmt.Errorf("update lead: %w", err)
		}
	}

	return r.GetByID(ctx, id)
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	// Traffic and interaction rows go with the lead via FK cascade.
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Lead{})
	if res.Error != nil {
		return fmt.Errorf("delete lead: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

type groupCount struct {
	Key   string
	Count int64
}

func (r *leadRepository) groupBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&model.Lead{}).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group leads by %s: %w", column, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

func (r *leadRepository) Aggregates(ctx context.Context) (*LeadAggregates, error) {
	byStatus, err := r.groupBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	bySource, err := r.groupBy(ctx, "source")
	if err != nil {
		return nil, err
	}
	byType, err := r.groupBy(ctx, "type")
	if err != nil {
		return nil, err
	}

	agg := &LeadAggregates{
		ByStatus: byStatus,
		BySource: bySource,
		ByType:   byType,
	}
	for _, n := range byStatus {
		agg.Total += n
	}
	return agg, nil
}
