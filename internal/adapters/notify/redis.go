package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

// DefaultChannel carries team updates between replicas.
const DefaultChannel = "fantasy:team-updates"

// NewRedisClient parses url and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisPublisher is the ledger notifier when several replicas share users.
type RedisPublisher struct {
	client *redis.Client
	cfg    settings
}

// NewRedisPublisher publishes on client.
func NewRedisPublisher(client *redis.Client, opts ...Option) *RedisPublisher {
	return &RedisPublisher{client: client, cfg: newSettings("redis-publisher", opts)}
}

// NotifyUser publishes one message for userID.
func (p *RedisPublisher) NotifyUser(ctx context.Context, userID, eventType string, payload any) error {
	data, err := encode(userID, eventType, payload, p.cfg.now())
	if err != nil {
		metrics.RecordNotification("failed")
		return err
	}
	if err := p.client.Publish(ctx, p.cfg.channel, data).Err(); err != nil {
		metrics.RecordNotification("failed")
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	metrics.RecordNotification("published")
	return nil
}

// Bridge feeds messages from Redis into the local hub.
type Bridge struct {
	client *redis.Client
	hub    *Hub
	cfg    settings
}

// NewBridge subscribes hub to client's notification channel.
func NewBridge(client *redis.Client, hub *Hub, opts ...Option) *Bridge {
	return &Bridge{client: client, hub: hub, cfg: newSettings("redis-bridge", opts)}
}

// Run relays messages until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.cfg.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.channel, err)
	}
	b.cfg.log.Info(ctx, "relaying notifications", logger.String("channel", b.cfg.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(ctx, []byte(msg.Payload))
		}
	}
}

func (b *Bridge) relay(ctx context.Context, raw []byte) {
	m, err := decode(raw)
	if err != nil {
		metrics.RecordNotification("failed")
		b.cfg.log.Warn(ctx, "dropping malformed notification", logger.Error(err))
		return
	}
	if b.hub.Publish(m.UserID, raw) == 0 {
		metrics.RecordNotification("no_subscriber")
		return
	}
	metrics.RecordNotification("delivered")
}
