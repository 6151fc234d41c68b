// Package events announces automation outcomes to the UI/analysis layer over
// Redis pub/sub. Publishing is best effort: callers log failures and move on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types double as channel names.
const (
	TypeJobApplied         = "EVENT_JOB_APPLIED"
	TypeUnknownQuestion    = "EVENT_UNKNOWN_QUESTION"
	TypeDiscoveryCompleted = "EVENT_DISCOVERY_COMPLETED"
	TypeStatusMoved        = "EVENT_STATUS_MOVED"
)

// Event is the JSON payload published on the channel named by Type.
type Event struct {
	Type  string    `json:"type"`
	RunID string    `json:"runId,omitempty"`
	JobID string    `json:"jobId,omitempty"`
	At    time.Time `json:"at"`
	Data  any       `json:"data,omitempty"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes each event as JSON on the channel e.Type.
type RedisPublisher struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisPublisher wraps a connected client.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, now: time.Now}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	if err := p.rdb.Publish(ctx, e.Type, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Recorder keeps published events in memory. Tests use it to assert on
// what was announced.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return nil
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
