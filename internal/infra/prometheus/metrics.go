package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters scraped via the /metrics server.
var (
	// LeadsCreated counts leads accepted through the capture API.
	LeadsCreated = promauto.NewCounter(prom.CounterOpts{
		Name: "leadpixel_leads_created_total",
		Help: "Number of leads accepted through the capture API.",
	})

	// EventsIngested counts pixel events accepted by the tracking endpoint,
	// labelled by event type.
	EventsIngested = promauto.NewCounterVec(prom.CounterOpts{
		Name: "leadpixel_pixel_events_ingested_total",
		Help: "Number of pixel events accepted by the tracking endpoint.",
	}, []string{"event_type"})
)
