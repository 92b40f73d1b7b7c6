// Package realtime carries change notifications between the write paths and the
// live views, and fans them out to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Topics mirror the tables whose changes are observed
const (
	TopicSubmissions = "submissions"
	TopicSettings    = "app_settings"
)

// EventType is the kind of row change
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// Event is one row change. Row holds the new row as JSON.
type Event struct {
	Topic  string          `json:"topic"`
	Type   EventType       `json:"type"`
	TeamID string          `json:"team_id,omitempty"`
	Key    string          `json:"key,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
	At     time.Time       `json:"at"`
}

// NewEvent marshals row into an event
func NewEvent(topic string, typ EventType, row interface{}) (Event, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Type: typ, Row: raw, At: time.Now().UTC()}, nil
}

// Feed publishes and subscribes to change events by topic.
// Delivery is at-most-once; subscribers re-read state rather than trusting payloads.
type Feed interface {
	Publish(ctx context.Context, event Event) error

	// Subscribe returns a channel of events for topic and a cancel func that
	// closes it. The channel is also closed when ctx ends.
	Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error)

	Close() error
}
