package model

import "time"

// Lead statuses follow the back-office pipeline order.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

const (
	LeadPriorityLow    = "low"
	LeadPriorityMedium = "medium"
	LeadPriorityHigh   = "high"
)

// LeadStatuses lists every valid pipeline status.
var LeadStatuses = []string{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusConverted,
	LeadStatusLost,
}

// Lead is a prospective-retailer signup captured from a storefront form.
// The originating site and the submitted payload are denormalized into
// columns; the browser and session snapshots live in 1:1 child tables.
type Lead struct {
	ID         string    `db:"id" gorm:"primaryKey;size:36"`
	Type       string    `db:"type" gorm:"size:50;not null;default:form_with_cnpj"`
	SiteTitle  string    `db:"site_title" gorm:"size:255"`
	SiteName   string    `db:"site_name" gorm:"size:255;index"`
	SiteURL    string    `db:"site_url" gorm:"size:255"`
	Nome       string    `db:"nome" gorm:"size:255;not null"`
	Whatsapp   string    `db:"whatsapp" gorm:"size:20"`
	CNPJ       string    `db:"cnpj" gorm:"size:20"`
	TipoLoja   string    `db:"tipo_loja" gorm:"size:50"`
	CEP        string    `db:"cep" gorm:"size:20"`
	Origin     string    `db:"origin" gorm:"size:100"`
	Timestamp  time.Time `db:"timestamp" gorm:"not null;index"`
	Source     string    `db:"source" gorm:"size:100;index"`
	Status     string    `db:"status" gorm:"size:20;not null;default:new;index"`
	Priority   string    `db:"priority" gorm:"size:20;not null;default:medium"`
	Notes      string    `db:"notes" gorm:"type:text"`
	AssignedTo string    `db:"assigned_to" gorm:"size:255"`
	CreatedAt  time.Time `db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time `db:"updated_at" gorm:"autoUpdateTime"`

	Traffic     Traffic     `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
	Interaction Interaction `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
}

// Traffic is the browser/environment snapshot taken at submission time.
type Traffic struct {
	ID               uint      `db:"id" gorm:"primaryKey;autoIncrement"`
	LeadID           string    `db:"lead_id" gorm:"size:36;not null;index"`
	Referrer         string    `db:"referrer" gorm:"type:text"`
	UserAgent        string    `db:"user_agent" gorm:"type:text"`
	Language         string    `db:"language" gorm:"size:10"`
	Platform         string    `db:"platform" gorm:"size:50;index"`
	ScreenResolution string    `db:"screen_resolution" gorm:"size:20"`
	ViewportSize     string    `db:"viewport_size" gorm:"size:20"`
	Timezone         string    `db:"timezone" gorm:"size:50"`
	CookiesEnabled   bool      `db:"cookies_enabled"`
	OnlineStatus     bool      `db:"online_status"`
	URL              string    `db:"url" gorm:"type:text"`
	Pathname         string    `db:"pathname" gorm:"size:500"`
	Search           string    `db:"search" gorm:"type:text"`
	Hash             string    `db:"hash" gorm:"size:255"`
	CreatedAt        time.Time `db:"created_at" gorm:"autoCreateTime"`
}

func (Traffic) TableName() string { return "traffic" }

// Interaction is the session behaviour snapshot taken at submission time.
type Interaction struct {
	ID               uint      `db:"id" gorm:"primaryKey;autoIncrement"`
	LeadID           string    `db:"lead_id" gorm:"size:36;not null;index"`
	SessionStartTime time.Time `db:"session_start_time"`
	TimeOnSite       int       `db:"time_on_site"`
	CurrentTimestamp time.Time `db:"interaction_timestamp" gorm:"column:interaction_timestamp"`
	SessionID        string    `db:"session_id" gorm:"size:100;index"`
	PageViews        int       `db:"page_views"`
	ScrollDepth      int       `db:"scroll_depth"`
	TouchDevice      bool      `db:"touch_device"`
	ConnectionType   string    `db:"connection_type" gorm:"size:20"`
	CreatedAt        time.Time `db:"created_at" gorm:"autoCreateTime"`
}

func (Interaction) TableName() string { return "interactions" }
