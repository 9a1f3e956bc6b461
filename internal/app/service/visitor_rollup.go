package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/idenegocios/leadpixel/internal/app/model"
	"github.com/idenegocios/leadpixel/internal/app/repository"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VisitorRollup consumes pixel events from JetStream and maintains each
// pixel's unique-visitor estimate in a Redis HyperLogLog, writing the count
// back to the store. The schema carries unique_visitors but the synchronous
// ingestion path never touches it; this consumer owns it.
type VisitorRollup struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	repo     repository.PixelRepository
	rdb      *redis.Client
	stopChan chan struct{}
}

// NewVisitorRollup creates a unique-visitor rollup consumer.
func NewVisitorRollup(js nats.JetStreamContext, logger *zap.Logger, repo repository.PixelRepository, rdb *redis.Client) *VisitorRollup {
	return &VisitorRollup{
		js:       js,
		logger:   logger,
		repo:     repo,
		rdb:      rdb,
		stopChan: make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *VisitorRollup) Start() error {
	_, err := c.js.StreamInfo(model.PixelEventStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.PixelEventStreamName,
			Subjects: []string{model.PixelEventStreamSubject},
			MaxAge:   model.PixelEventStreamMaxAge,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.PixelEventStreamName, model.PixelEventConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.PixelEventStreamName, &nats.ConsumerConfig{
			Durable:   model.PixelEventConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.PixelEventStreamSubject, model.PixelEventConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

// Stop stops the consume loop after the current fetch completes.
func (c *VisitorRollup) Stop() {
	close(c.stopChan)
}

func (c *VisitorRollup) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		select {
		case <-c.stopChan:
			c.logger.Info("visitor rollup stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch pixel events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
	}
}

func (c *VisitorRollup) handle(ctx context.Context, msg *nats.Msg) {
	var event model.PixelEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("failed to unmarshal pixel event", zap.Error(err))
		msg.Nak()
		return
	}

	// Anonymous events carry no session id and cannot be deduplicated.
	if event.SessionID == "" {
		msg.Ack()
		return
	}

	key := "pixel:uv:" + event.PixelCode
	added, err := c.rdb.PFAdd(ctx, key, event.SessionID).Result()
	if err != nil {
		c.logger.Error("failed to update visitor hll",
			zap.String("pixel_code", event.PixelCode),
			zap.Error(err))
		msg.Nak()
		return
	}
	if added == 0 {
		// Session already counted.
		msg.Ack()
		return
	}

	count, err := c.rdb.PFCount(ctx, key).Result()
	if err != nil {
		c.logger.Error("failed to count visitor hll",
			zap.String("pixel_code", event.PixelCode),
			zap.Error(err))
		msg.Nak()
		return
	}

	if err := c.repo.SetUniqueVisitors(ctx, event.PixelID, count); err != nil {
		c.logger.Error("failed to write unique visitors",
			zap.String("pixel_id", event.PixelID),
			zap.Int64("count", count),
			zap.Error(err))
		msg.Nak()
		return
	}

	c.logger.Debug("unique visitors updated",
		zap.String("pixel_code", event.PixelCode),
		zap.Int64("count", count),
	)

	msg.Ack()
}
