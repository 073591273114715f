package events

import (
	"agora/internal/config"
	"agora/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultChannel = "agora:notifications"

// Publisher pushes notification events onto a redis pub/sub channel for
// realtime consumers. A nil *Publisher is a valid, silent sink.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// New connects to redis. It returns nil, nil when redis is not configured.
func New(cfg config.RedisConfig, logger *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		logger.Info("Redis notifications disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Redis connection established")

	return NewPublisher(client, cfg.Channel, logger), nil
}

// NewPublisher wraps an existing client.
func NewPublisher(client *redis.Client, channel string, logger *zap.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, channel: channel, logger: logger.Named("events")}
}

// Notify publishes the event as JSON.
func (p *Publisher) Notify(ctx context.Context, event models.NotificationEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	p.logger.Debug("notification published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int64("receivers", receivers))
	return nil
}

func (p *Publisher) Channel() string {
	if p == nil {
		return ""
	}
	return p.channel
}

func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
