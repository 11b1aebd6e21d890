package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// AlertMessage is the payload published for every collection alert
type AlertMessage struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	CustomerID string          `json:"customer_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// RedisAlertPublisher forwards collection alerts to a Redis pub/sub channel
// for downstream notification services
type RedisAlertPublisher struct {
	client  redis.Cmdable
	channel string
}

// NewRedisAlertPublisher creates a RedisAlertPublisher
func NewRedisAlertPublisher(client redis.Cmdable, channel string) *RedisAlertPublisher {
	return &RedisAlertPublisher{client: client, channel: channel}
}

// EventTypes returns the alert event types
func (p *RedisAlertPublisher) EventTypes() []string {
	return []string{receivable.EventTypePromiseBroken, receivable.EventTypeCreditLimitBreached}
}

// Handle publishes the event
func (p *RedisAlertPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	msg, err := NewAlertMessage(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.channel, err)
	}
	return nil
}

// NewAlertMessage builds the published envelope for event
func NewAlertMessage(event shared.DomainEvent) (AlertMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return AlertMessage{}, fmt.Errorf("marshal alert payload: %w", err)
	}
	msg := AlertMessage{
		EventID:    event.EventID().String(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}
	if ce, ok := event.(receivable.CustomerEvent); ok {
		msg.CustomerID = ce.CustomerRef().String()
	}
	return msg, nil
}

var _ shared.EventHandler = (*RedisAlertPublisher)(nil)
