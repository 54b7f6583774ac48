package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Event tells a listening client that one of its watched rows changed and a
// refetch is in order. The payload carries no row data on purpose.
type Event struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	ID       uint   `json:"id"`
}

const (
	ResourceResumes       = "resumes"
	ResourceSubscriptions = "user_subscriptions"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Publisher pushes change events to the owning account's channel. Publish is
// called only after the underlying write is acknowledged, so per-account
// delivery order matches write order.
type Publisher interface {
	Publish(ctx context.Context, userID uint, event Event) error
}

// ChannelFor names the per-account pub/sub channel.
func ChannelFor(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

type redisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher builds a Publisher on top of Redis pub/sub.
func NewRedisPublisher(client redis.UniversalClient) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, userID uint, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelFor(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notify event: %w", err)
	}
	return nil
}
