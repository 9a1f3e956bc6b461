package service

import (
	"encoding/json"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/nats-io/nats.go"
)

// EventPublisher fans recorded pixel events out to NATS JetStream for
// downstream consumers. The store write has already happened when Publish
// is called, so a publish failure never loses the event.
type EventPublisher struct {
	js nats.JetStreamContext
}

// NewEventPublisher creates a pixel event publisher.
func NewEventPublisher(js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{js: js}
}

// Publish sends the event to the pixel event stream.
func (p *EventPublisher) Publish(event *model.PixelEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(model.PixelEventStreamSubject, data)
	return err
}
