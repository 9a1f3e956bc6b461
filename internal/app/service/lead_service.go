package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	metrics "github.com/idenegocios/leadpixel/internal/infra/prometheus"
)

// LeadService defines behaviour-level operations on leads.
type LeadService interface {
	ListLeads(ctx context.Context, filter repository.LeadFilter, page, pageSize int) ([]model.Lead, int64, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	CreateLead(ctx context.Context, input CreateLeadInput) (*model.Lead, error)
	UpdateLead(ctx context.Context, id string, patch repository.LeadPatch) (*model.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.LeadStats, error)
}

type leadService struct {
	repo repository.LeadRepository
}

// NewLeadService returns a service implementation backed by the given repository.
func NewLeadService(repo repository.LeadRepository) LeadService {
	return &leadService{repo: repo}
}

// CreateLeadInput captures one form submission with its browser and session
// snapshots.
type CreateLeadInput struct {
	Type        string
	Site        model.Site
	Data        model.LeadData
	Origin      string
	Timestamp   time.Time
	Source      string
	Status      string
	Priority    string
	Notes       string
	AssignedTo  string
	Traffic     model.TrafficData
	Interaction model.InteractionData
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// NormalizePage clamps pagination input to the bounds the list actually
// serves. Handlers apply it before echoing page/pageSize, so the response
// envelope always matches the slice returned.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *leadService) ListLeads(ctx context.Context, filter repository.LeadFilter, page, pageSize int) ([]model.Lead, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	leads, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

func (s *leadService) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (s *leadService) CreateLead(ctx context.Context, input CreateLeadInput) (*model.Lead, error) {
	if input.Data.Nome == "" {
		return nil, fmt.Errorf("%w: data.nome is required", ErrValidation)
	}

	lead := &model.Lead{
		ID:         uuid.New().String(),
		Type:       input.Type,
		SiteTitle:  input.Site.Title,
		SiteName:   input.Site.Name,
		SiteURL:    input.Site.URL,
		Nome:       input.Data.Nome,
		Whatsapp:   input.Data.Whatsapp,
		CNPJ:       input.Data.CNPJ,
		TipoLoja:   input.Data.TipoLoja,
		CEP:        input.Data.CEP,
		Origin:     input.Origin,
		Timestamp:  input.Timestamp,
		Source:     input.Source,
		Status:     input.Status,
		Priority:   input.Priority,
		Notes:      input.Notes,
		AssignedTo: input.AssignedTo,
		Traffic: model.Traffic{
			Referrer:         input.Traffic.Referrer,
			UserAgent:        input.Traffic.UserAgent,
			Language:         input.Traffic.Language,
			Platform:         input.Traffic.Platform,
			ScreenResolution: input.Traffic.ScreenResolution,
			ViewportSize:     input.Traffic.ViewportSize,
			Timezone:         input.Traffic.Timezone,
			CookiesEnabled:   input.Traffic.CookiesEnabled,
			OnlineStatus:     input.Traffic.OnlineStatus,
			URL:              input.Traffic.URL,
			Pathname:         input.Traffic.Pathname,
			Search:           input.Traffic.Search,
			Hash:             input.Traffic.Hash,
		},
		Interaction: model.Interaction{
			SessionStartTime: input.Interaction.SessionStartTime,
			TimeOnSite:       input.Interaction.TimeOnSite,
			CurrentTimestamp: input.Interaction.CurrentTimestamp,
			SessionID:        input.Interaction.SessionID,
			PageViews:        input.Interaction.PageViews,
			ScrollDepth:      input.Interaction.ScrollDepth,
			TouchDevice:      input.Interaction.TouchDevice,
			ConnectionType:   input.Interaction.ConnectionType,
		},
	}

	if lead.Type == "" {
		lead.Type = "form_with_cnpj"
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	if lead.Priority == "" {
		lead.Priority = model.LeadPriorityMedium
	}
	if lead.Timestamp.IsZero() {
		lead.Timestamp = time.Now()
	}

	if !validLeadStatus(lead.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, lead.Status)
	}
	if !validLeadPriority(lead.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, lead.Priority)
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	metrics.LeadsCreated.Inc()
	return lead, nil
}

func (s *leadService) UpdateLead(ctx context.Context, id string, patch repository.LeadPatch) (*model.Lead, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no updatable fields provided", ErrValidation)
	}
	if patch.Status != nil && !validLeadStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
	}
	if patch.Priority != nil && !validLeadPriority(*patch.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
	}

	lead, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

func (s *leadService) DeleteLead(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return nil
}

func (s *leadService) Stats(ctx context.Context) (*model.LeadStats, error) {
	agg, err := s.repo.Aggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("lead aggregates: %w", err)
	}

	stats := &model.LeadStats{
		TotalLeads:     agg.Total,
		NewLeads:       agg.ByStatus[model.LeadStatusNew],
		ContactedLeads: agg.ByStatus[model.LeadStatusContacted],
		QualifiedLeads: agg.ByStatus[model.LeadStatusQualified],
		ConvertedLeads: agg.ByStatus[model.LeadStatusConverted],
		LostLeads:      agg.ByStatus[model.LeadStatusLost],
		LeadsBySource:  agg.BySource,
		LeadsByType:    agg.ByType,
	}
	if stats.TotalLeads > 0 {
		rate := float64(stats.ConvertedLeads) / float64(stats.TotalLeads) * 100
		stats.ConversionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}

func validLeadStatus(status string) bool {
	for _, s := range model.LeadStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func validLeadPriority(priority string) bool {
	switch priority {
	case model.LeadPriorityLow, model.LeadPriorityMedium, model.LeadPriorityHigh:
		return true
	}
	return false
}
