package model

import "time"

const (
	PixelStatusActive   = "active"
	PixelStatusInactive = "inactive"
	PixelStatusTesting  = "testing"
)

const (
	EventTypePageview   = "pageview"
	EventTypeFormSubmit = "form_submit"
	EventTypeCTAClick   = "cta_click"
	EventTypeCustom     = "custom"
)

// EventTypes lists every accepted pixel event type.
var EventTypes = []string{
	EventTypePageview,
	EventTypeFormSubmit,
	EventTypeCTAClick,
	EventTypeCustom,
}

// Pixel is a tracking-tag configuration bound to one destination site.
// Incoming events correlate via Code, never via ID. The hit counters are
// maintained with relative SQL updates so concurrent ingestion cannot lose
// increments.
type Pixel struct {
	ID             string     `db:"id" gorm:"primaryKey;size:36"`
	Name           string     `db:"name" gorm:"size:255;not null"`
	Description    string     `db:"description" gorm:"type:text"`
	Code           string     `db:"code" gorm:"size:100;uniqueIndex;not null"`
	Status         string     `db:"status" gorm:"size:20;not null;default:testing;index"`
	Site           string     `db:"site" gorm:"size:255;not null;index"`
	TotalHits      int64      `db:"total_hits" gorm:"not null;default:0"`
	UniqueVisitors int64      `db:"unique_visitors" gorm:"not null;default:0"`
	Conversions    int64      `db:"conversions" gorm:"not null;default:0"`
	ConversionRate float64    `db:"conversion_rate" gorm:"type:decimal(5,2);not null;default:0"`
	LastHit        *time.Time `db:"last_hit"`
	CreatedAt      time.Time  `db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time  `db:"updated_at" gorm:"autoUpdateTime"`
}

// PixelEvent is one immutable recorded client action. Rows are only ever
// inserted or cascade-deleted with their parent pixel.
type PixelEvent struct {
	ID             string    `db:"id" json:"id" gorm:"primaryKey;size:36"`
	PixelID        string    `db:"pixel_id" json:"pixel_id" gorm:"size:36;not null;index"`
	PixelCode      string    `db:"pixel_code" json:"pixel_code" gorm:"size:100;not null;index"`
	EventType      string    `db:"event_type" json:"event_type" gorm:"size:20;not null;index"`
	URL            string    `db:"url" json:"url" gorm:"type:text"`
	Referrer       string    `db:"referrer" json:"referrer" gorm:"type:text"`
	UserAgent      string    `db:"user_agent" json:"user_agent" gorm:"type:text"`
	SessionID      string    `db:"session_id" json:"session_id" gorm:"size:100;index"`
	AdditionalData string    `db:"additional_data" json:"additional_data" gorm:"type:text"`
	IPAddress      string    `db:"ip_address" json:"ip_address" gorm:"size:45"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp" gorm:"not null;index"`
	CreatedAt      time.Time `db:"created_at" json:"created_at" gorm:"autoCreateTime"`

	Pixel *Pixel `json:"-" gorm:"foreignKey:PixelID;constraint:OnDelete:CASCADE"`
}

// NATS JetStream wiring for the pixel event fan-out.
const (
	PixelEventStreamName    = "PIXEL_EVENTS"
	PixelEventStreamSubject = "pixels.events"
	PixelEventConsumerName  = "visitor-rollup"
	PixelEventStreamMaxAge  = 90 * 24 * time.Hour
)
