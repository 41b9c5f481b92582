// Package events carries cross-process notifications: encoding cache
// invalidation over Redis pub/sub and attendance events over RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Invalidator is implemented by the encoding cache.
type Invalidator interface {
	Invalidate()
}

// InvalidationMessage is published after face data changed.
type InvalidationMessage struct {
	Origin     string    `json:"origin"`
	Reason     string    `json:"reason"`
	EmployeeID int64     `json:"employee_id,omitempty"`
	At         time.Time `json:"at"`
}

// RedisBroadcaster tells other workers to drop their encoding cache.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	origin  string
	log     logrus.FieldLogger
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewRedisBroadcaster creates a broadcaster with a unique origin so a worker
// ignores its own messages.
func NewRedisBroadcaster(client *redis.Client, channel string, log logrus.FieldLogger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// Origin identifies this worker in published messages.
func (b *RedisBroadcaster) Origin() string {
	return b.origin
}

// Publish announces that face data of employeeID changed.
func (b *RedisBroadcaster) Publish(ctx context.Context, reason string, employeeID int64) error {
	payload, err := json.Marshal(InvalidationMessage{
		Origin:     b.origin,
		Reason:     reason,
		EmployeeID: employeeID,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Listen invalidates target for every message from another worker until ctx
// is done.
func (b *RedisBroadcaster) Listen(ctx context.Context, target Invalidator) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload, target)
		}
	}
}

func (b *RedisBroadcaster) handle(payload string, target Invalidator) bool {
	var m InvalidationMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		logging.For(b.log).WithError(err).Warn("ignoring malformed invalidation message")
		return false
	}
	if m.Origin == b.origin {
		return false
	}
	target.Invalidate()
	logging.For(b.log).WithFields(logrus.Fields{
		"reason":      m.Reason,
		"employee_id": m.EmployeeID,
	}).Debug("encoding cache invalidated by peer")
	return true
}
