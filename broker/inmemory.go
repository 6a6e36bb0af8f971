package broker

import (
	"context"
	"sync"
)

// InMemory is a Broker implementation with no network and no persistence:
// every Dial into the same Hub sees every other connection's publishes.
// It exists for node and manager tests, standing in for the MQTT broker the
// way a production deployment would use it, without a real daemon.
type InMemory struct {
	hub *hub
}

// hub is the shared switchboard a set of InMemory connections publish
// through and subscribe against.
type hub struct {
	mu   sync.RWMutex
	subs map[*inMemorySubscription]struct{}
}

// NewHub creates an empty in-memory switchboard. Call Dial once per node
// (or test connection) against the same hub to simulate several processes
// sharing one broker.
func NewHub() *Hub {
	return &Hub{h: &hub{subs: make(map[*inMemorySubscription]struct{})}}
}

// Hub is the exported handle tests pass to Dial.
type Hub struct{ h *hub }

// Dial opens a new connection against hub, analogous to connecting to an
// MQTT broker at a URL.
func (hub *Hub) Dial() *InMemory {
	return &InMemory{hub: hub.h}
}

func (b *InMemory) Ping(ctx context.Context) error { return nil }

func (b *InMemory) Publish(ctx context.Context, channel string, payload []byte) error {
	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()
	for sub := range b.hub.subs {
		sub.deliver(channel, payload)
	}
	return nil
}

func (b *InMemory) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	want := make(map[string]struct{}, len(channels))
	for _, c := range channels {
		want[c] = struct{}{}
	}
	sub := &inMemorySubscription{
		hub:     b.hub,
		want:    want,
		ch:      make(chan Message, 64),
		closeCh: make(chan struct{}),
	}
	b.hub.mu.Lock()
	b.hub.subs[sub] = struct{}{}
	b.hub.mu.Unlock()
	return sub, nil
}

func (b *InMemory) Close(ctx context.Context) error { return nil }

type inMemorySubscription struct {
	hub     *hub
	want    map[string]struct{}
	ch      chan Message
	once    sync.Once
	closeCh chan struct{}
}

func (s *inMemorySubscription) deliver(channel string, payload []byte) {
	if _, ok := s.want[channel]; !ok {
		return
	}
	select {
	case s.ch <- Message{Channel: channel, Payload: payload}:
	case <-s.closeCh:
	}
}

func (s *inMemorySubscription) Messages() <-chan Message { return s.ch }

func (s *inMemorySubscription) Unsubscribe(ctx context.Context) error {
	s.hub.mu.Lock()
	delete(s.hub.subs, s)
	s.hub.mu.Unlock()
	s.once.Do(func() {
		close(s.closeCh)
		close(s.ch)
	})
	return nil
}
