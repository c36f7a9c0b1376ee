// Package notify dispatches enrollment confirmations to the mail sender.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/logging"
)

const EnrollmentConfirmedType = "enrollment_confirmed"

// Confirmation is what the mail sender needs to confirm an enrollment.
type Confirmation struct {
	EnrollmentID uint      `json:"enrollmentId"`
	UserID       uint      `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	EventID      uint      `json:"eventId"`
	EventTitle   string    `json:"eventTitle"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

type Notifier interface {
	EnrollmentConfirmed(ctx context.Context, c Confirmation) error
}

// Envelope wraps every message published to the channel.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher is the subset of *redis.Client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	Client  Publisher
	Channel string
	Now     func() time.Time
}

func NewRedisPublisher(client Publisher, channel string) *RedisPublisher {
	return &RedisPublisher{Client: client, Channel: channel, Now: time.Now}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (p *RedisPublisher) EnrollmentConfirmed(ctx context.Context, c Confirmation) error {
	return p.publish(ctx, EnrollmentConfirmedType, c)
}

func (p *RedisPublisher) publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	msg, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: now().UTC(),
		Payload:   body,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	if err := p.Client.Publish(ctx, p.Channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, p.Channel, err)
	}
	return nil
}

// LogNotifier records confirmations in the log when no broker is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) EnrollmentConfirmed(_ context.Context, c Confirmation) error {
	logging.OrNop(n.Logger).Info("enrollment confirmed",
		zap.Uint("enrollment_id", c.EnrollmentID),
		zap.Uint("user_id", c.UserID),
		zap.Uint("event_id", c.EventID),
		zap.String("event_title", c.EventTitle),
	)
	return nil
}
