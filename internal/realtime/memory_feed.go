package realtime

import (
	"context"
	"errors"
	"sync"
)

// subscriberBuffer bounds each subscriber's queue. A full queue drops the event;
// consumers re-aggregate from the store, so a dropped event only delays a view.
const subscriberBuffer = 64

// ErrFeedClosed is returned after Close
var ErrFeedClosed = errors.New("feed is closed")

type memorySub struct {
	ch   chan Event
	once sync.Once
}

func (s *memorySub) close() {
	s.once.Do(func() { close(s.ch) })
}

// MemoryFeed is an in-process Feed used when Redis is not configured
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

// NewMemoryFeed creates an empty in-process feed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[*memorySub]struct{})}
}

// Publish delivers event to every current subscriber of its topic
func (f *MemoryFeed) Publish(ctx context.Context, event Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrFeedClosed
	}

	for sub := range f.subs[event.Topic] {
		select {
		case sub.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for topic
func (f *MemoryFeed) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil, ErrFeedClosed
	}

	sub := &memorySub{ch: make(chan Event, subscriberBuffer)}
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[*memorySub]struct{})
	}
	f.subs[topic][sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[topic], sub)
			f.mu.Unlock()
			sub.close()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel, nil
}

// Close closes every subscriber channel
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	for _, subs := range f.subs {
		for sub := range subs {
			sub.close()
		}
	}
	f.subs = make(map[string]map[*memorySub]struct{})
	return nil
}
