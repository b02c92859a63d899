package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dashboard event types pushed to connected clients.
const (
	EventTypeAuth    = "auth"    // sign-in / sign-out state change
	EventTypeRecords = "records" // the user's record list changed; reload it
)

// EventChannelPrefix is the Redis channel prefix for per-user dashboard events.
const EventChannelPrefix = "events:user:"

// DashboardEvent is the payload broadcast over Redis and WebSocket.
type DashboardEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action,omitempty"` // e.g. "created", "updated", "deleted", "signed-in"
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// EventConn is the minimal interface a WebSocket connection must satisfy.
type EventConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// EventHub is a registry of connected dashboard clients keyed by user ID.
// A user may have several tabs open, so connections are tracked per socket.
type EventHub struct {
	mu    sync.RWMutex
	conns map[string]map[EventConn]struct{}
}

// EventBus publishes dashboard events to Redis and fans them out to local
// WebSocket connections via a single shared subscriber.
type EventBus struct {
	redis *redis.Client
	hub   *EventHub

	started sync.Once
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{
		redis: client,
		hub:   &EventHub{conns: make(map[string]map[EventConn]struct{})},
	}
}

// Register adds a user's connection to the hub.
func (b *EventBus) Register(userID string, conn EventConn) {
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()
	if b.hub.conns[userID] == nil {
		b.hub.conns[userID] = make(map[EventConn]struct{})
	}
	b.hub.conns[userID][conn] = struct{}{}
}

// Unregister removes a user's connection from the hub.
func (b *EventBus) Unregister(userID string, conn EventConn) {
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()
	if set, ok := b.hub.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(b.hub.conns, userID)
		}
	}
}

// Publish sends an event to Redis for the given user.
func (b *EventBus) Publish(ctx context.Context, event DashboardEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, EventChannelPrefix+event.UserID, data).Err()
}

// FanOut sends an event to all local connections for its user.
func (b *EventBus) FanOut(event DashboardEvent) {
	if event.UserID == "" {
		return
	}

	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()

	for conn := range b.hub.conns[event.UserID] {
		// Non-blocking best-effort send.
		go func(c EventConn) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("error writing dashboard event to websocket: %v", err)
			}
		}(conn)
	}
}

// Start ensures a single shared Redis listener per instance.
func (b *EventBus) Start(ctx context.Context) {
	b.started.Do(func() {
		go b.runSubscriber(ctx)
	})
}

func (b *EventBus) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := b.redis.PSubscribe(ctx, EventChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ Dashboard event subscriber started (pattern: events:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event DashboardEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal dashboard event: %v", err)
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, EventChannelPrefix)
				}

				b.FanOut(event)
			}
		}()
	}
}
