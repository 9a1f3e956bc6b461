package model

import (
	"encoding/json"
	"time"
)

// Wire shapes for the HTTP/JSON API. Storage columns are snake_case, the
// API speaks camelCase; the conversions live here so handlers and the
// in-memory fallback serialize identically.

// Site identifies the storefront the lead came from.
type Site struct {
	Title string `json:"title"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// LeadData is the submitted form payload.
type LeadData struct {
	Nome     string `json:"nome"`
	Whatsapp string `json:"whatsapp"`
	CNPJ     string `json:"cnpj"`
	TipoLoja string `json:"tipoLoja"`
	CEP      string `json:"cep"`
}

// TrafficData mirrors the traffic child record on the wire.
type TrafficData struct {
	Referrer         string `json:"referrer"`
	UserAgent        string `json:"userAgent"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screenResolution"`
	ViewportSize     string `json:"viewportSize"`
	Timezone         string `json:"timezone"`
	CookiesEnabled   bool   `json:"cookiesEnabled"`
	OnlineStatus     bool   `json:"onlineStatus"`
	URL              string `json:"url"`
	Pathname         string `json:"pathname"`
	Search           string `json:"search"`
	Hash             string `json:"hash"`
}

// InteractionData mirrors the interaction child record on the wire.
type InteractionData struct {
	SessionStartTime time.Time `json:"sessionStartTime"`
	TimeOnSite       int       `json:"timeOnSite"`
	CurrentTimestamp time.Time `json:"currentTimestamp"`
	SessionID        string    `json:"sessionId"`
	PageViews        int       `json:"pageViews"`
	ScrollDepth      int       `json:"scrollDepth"`
	TouchDevice      bool      `json:"touchDevice"`
	ConnectionType   string    `json:"connectionType"`
}

// LeadView is the nested API representation of a lead and its children.
type LeadView struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Site        Site            `json:"site"`
	Data        LeadData        `json:"data"`
	Origin      string          `json:"origin"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Notes       string          `json:"notes,omitempty"`
	AssignedTo  string          `json:"assignedTo,omitempty"`
	Traffic     TrafficData     `json:"traffic"`
	Interaction InteractionData `json:"interaction"`
}

// View flattens the stored lead plus children back into the nested wire shape.
func (l Lead) View() LeadView {
	return LeadView{
		ID:   l.ID,
		Type: l.Type,
		Site: Site{Title: l.SiteTitle, Name: l.SiteName, URL: l.SiteURL},
		Data: LeadData{
			Nome:     l.Nome,
			Whatsapp: l.Whatsapp,
			CNPJ:     l.CNPJ,
			TipoLoja: l.TipoLoja,
			CEP:      l.CEP,
		},
		Origin:     l.Origin,
		Timestamp:  l.Timestamp,
		Source:     l.Source,
		Status:     l.Status,
		Priority:   l.Priority,
		Notes:      l.Notes,
		AssignedTo: l.AssignedTo,
		Traffic: TrafficData{
			Referrer:         l.Traffic.Referrer,
			UserAgent:        l.Traffic.UserAgent,
			Language:         l.Traffic.Language,
			Platform:         l.Traffic.Platform,
			ScreenResolution: l.Traffic.ScreenResolution,
			ViewportSize:     l.Traffic.ViewportSize,
			Timezone:         l.Traffic.Timezone,
			CookiesEnabled:   l.Traffic.CookiesEnabled,
			OnlineStatus:     l.Traffic.OnlineStatus,
			URL:              l.Traffic.URL,
			Pathname:         l.Traffic.Pathname,
			Search:           l.Traffic.Search,
			Hash:             l.Traffic.Hash,
		},
		Interaction: InteractionData{
			SessionStartTime: l.Interaction.SessionStartTime,
			TimeOnSite:       l.Interaction.TimeOnSite,
			CurrentTimestamp: l.Interaction.CurrentTimestamp,
			SessionID:        l.Interaction.SessionID,
			PageViews:        l.Interaction.PageViews,
			ScrollDepth:      l.Interaction.ScrollDepth,
			TouchDevice:      l.Interaction.TouchDevice,
			ConnectionType:   l.Interaction.ConnectionType,
		},
	}
}

// LeadStats is the aggregate report served by GET /api/leads/stats.
type LeadStats struct {
	TotalLeads     int64            `json:"totalLeads"`
	NewLeads       int64            `json:"newLeads"`
	ContactedLeads int64            `json:"contactedLeads"`
	QualifiedLeads int64            `json:"qualifiedLeads"`
	ConvertedLeads int64            `json:"convertedLeads"`
	LostLeads      int64            `json:"lostLeads"`
	ConversionRate float64          `json:"conversionRate"`
	LeadsBySource  map[string]int64 `json:"leadsBySource"`
	LeadsByType    map[string]int64 `json:"leadsByType"`
}

// PixelView is the API representation of a pixel configuration.
type PixelView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Code           string     `json:"code"`
	Status         string     `json:"status"`
	Site           string     `json:"site"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastHit        *time.Time `json:"lastHit"`
	TotalHits      int64      `json:"totalHits"`
	UniqueVisitors int64      `json:"uniqueVisitors"`
	Conversions    int64      `json:"conversions"`
	ConversionRate float64    `json:"conversionRate"`
}

func (p Pixel) View() PixelView {
	return PixelView{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Code:           p.Code,
		Status:         p.Status,
		Site:           p.Site,
		CreatedAt:      p.CreatedAt,
		LastHit:        p.LastHit,
		TotalHits:      p.TotalHits,
		UniqueVisitors: p.UniqueVisitors,
		Conversions:    p.Conversions,
		ConversionRate: p.ConversionRate,
	}
}

// PixelEventView is the API representation of one recorded event. The
// additional-data payload is stored as serialized JSON and surfaced as a map.
type PixelEventView struct {
	ID             string         `json:"id"`
	PixelID        string         `json:"pixelId"`
	EventType      string         `json:"eventType"`
	URL            string         `json:"url"`
	Referrer       string         `json:"referrer"`
	UserAgent      string         `json:"userAgent"`
	SessionID      string         `json:"sessionId,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func (e PixelEvent) View() PixelEventView {
	var extra map[string]any
	if e.AdditionalData != "" {
		// Stored payloads are written by us; a decode failure just means
		// the field is omitted from the view.
		_ = json.Unmarshal([]byte(e.AdditionalData), &extra)
	}
	return PixelEventView{
		ID:             e.ID,
		PixelID:        e.PixelCode,
		EventType:      e.EventType,
		URL:            e.URL,
		Referrer:       e.Referrer,
		UserAgent:      e.UserAgent,
		SessionID:      e.SessionID,
		AdditionalData: extra,
		IPAddress:      e.IPAddress,
		Timestamp:      e.Timestamp,
		CreatedAt:      e.CreatedAt,
	}
}

// AnalyticsReport is served by GET /api/pixels/:id/analytics.
type AnalyticsReport struct {
	Pixel        PixelView      `json:"pixel"`
	Timeframe    string         `json:"timeframe"`
	TotalEvents  int            `json:"totalEvents"`
	EventsByType map[string]int `json:"eventsByType"`
	TopPages     map[string]int `json:"topPages"`
	TopReferrers map[string]int `json:"topReferrers"`
}
