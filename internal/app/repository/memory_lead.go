package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
)

// MemoryLeadRepository is the fallback lead store used when the relational
// database is unreachable at boot. Data lives for the process lifetime only
// and is never reconciled with the database. A single mutex serializes all
// mutation, which is enough for one process.
type MemoryLeadRepository struct {
	mu    sync.Mutex
	leads map[string]model.Lead
}

// NewMemoryLeadRepository returns an empty in-memory LeadRepository.
func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{leads: make(map[string]model.Lead)}
}

func leadMatches(lead model.Lead, filter LeadFilter) bool {
	if filter.Status != "" && filter.Status != "all" && lead.Status != filter.Status {
		return false
	}
	if filter.Source != "" && filter.Source != "all" && lead.Source != filter.Source {
		return false
	}
	if filter.Search != "" {
		term := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(lead.Nome), term) &&
			!strings.Contains(strings.ToLower(lead.Whatsapp), term) &&
			!strings.Contains(strings.ToLower(lead.CEP), term) {
			return false
		}
	}
	return true
}

func (r *MemoryLeadRepository) List(ctx context.Context, filter LeadFilter, page, pageSize int) ([]model.Lead, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]model.Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if leadMatches(lead, filter) {
			matched = append(matched, lead)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []model.Lead{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]model.Lead, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

func (r *MemoryLeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return &lead, nil
}

func (r *MemoryLeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	lead.Traffic.LeadID = lead.ID
	lead.Interaction.LeadID = lead.ID

	r.leads[lead.ID] = *lead
	return nil
}

func (r *MemoryLeadRepository) Update(ctx context.Context, id string, patch LeadPatch) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	if patch.Status != nil {
		lead.Status = *patch.Status
	}
	if patch.Priority != nil {
		lead.Priority = *patch.Priority
	}
	if patch.Notes != nil {
		lead.Notes = *patch.Notes
	}
	if patch.AssignedTo != nil {
		lead.AssignedTo = *patch.AssignedTo
	}
	lead.UpdatedAt = time.Now()

	r.leads[id] = lead
	return &lead, nil
}

func (r *MemoryLeadRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return ErrLeadNotFound
	}
	// Child snapshots are embedded in the stored value, so they vanish with it.
	delete(r.leads, id)
	return nil
}

func (r *MemoryLeadRepository) Aggregates(ctx context.Context) (*LeadAggregates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := &LeadAggregates{
		ByStatus: make(map[string]int64),
		BySource: make(map[string]int64),
		ByType:   make(map[string]int64),
	}
	for _, lead := range r.leads {
		agg.Total++
		agg.ByStatus[lead.Status]++
		agg.BySource[lead.Source]++
		agg.ByType[lead.Type]++
	}
	return agg, nil
}
