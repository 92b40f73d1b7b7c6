package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
	"vntrbirds-be/pkg/redis"
)

// RedisFeed fans events out over Redis pub/sub so every instance sees every write
type RedisFeed struct {
	client  *redis.Client
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	cancels map[*func()]struct{}
	closed  bool
}

// NewRedisFeed creates a feed on top of a connected client
func NewRedisFeed(client *redis.Client, log *logger.Logger, m *metrics.Metrics) *RedisFeed {
	return &RedisFeed{
		client:  client,
		logger:  log.Named("feed"),
		metrics: m,
		cancels: make(map[*func()]struct{}),
	}
}

func (f *RedisFeed) channel(topic string) string {
	return f.client.KeyBuilder.KeyFeedChannel(topic)
}

// Publish encodes and publishes event on its topic channel
func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Topic, err)
	}

	if _, err := f.client.Publish(ctx, f.channel(event.Topic), payload); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Topic, err)
	}

	f.metrics.FeedEvent(event.Topic, "published")
	return nil
}

// Subscribe opens a Redis subscription for topic
func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, nil, ErrFeedClosed
	}
	f.mu.Unlock()

	ps, err := f.client.Subscribe(ctx, f.channel(topic))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	f.mu.Lock()
	f.cancels[&cancel] = struct{}{}
	f.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			f.mu.Lock()
			delete(f.cancels, &cancel)
			f.mu.Unlock()
		}()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("Dropping malformed feed message",
						zap.String("topic", topic),
						zap.Error(err))
					continue
				}

				f.metrics.FeedEvent(topic, "received")

				select {
				case out <- event:
				default:
					f.logger.Warn("Feed subscriber is behind, dropping event",
						zap.String("topic", topic))
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close cancels every open subscription. The Redis client is owned by the caller.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	cancels := make([]func(), 0, len(f.cancels))
	for c := range f.cancels {
		cancels = append(cancels, *c)
	}
	f.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	return nil
}
