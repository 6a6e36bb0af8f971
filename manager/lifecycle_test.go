package manager

import (
	"context"
	"testing"
	"time"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/runtime"
)

func TestCollectHeartbeatsUpdatesLastBeat(t *testing.T) {
	hub := broker.NewHub()
	sub := hub.Dial()
	subscription, err := sub.Subscribe(context.Background(), "heartbeat:ticker")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	m := &Manager{lastBeat: make(map[string]time.Time)}
	m.wg.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	go m.collectHeartbeats(ctx, subscription)

	pub := hub.Dial()
	if err := pub.Publish(context.Background(), "heartbeat:ticker", []byte("ping")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		_, seen := m.lastBeat["ticker"]
		m.mu.Unlock()
		if seen {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.mu.Lock()
	_, seen := m.lastBeat["ticker"]
	m.mu.Unlock()
	if !seen {
		t.Fatal("expected lastBeat to record a heartbeat for ticker")
	}
	cancel()
}

func TestUpdateHealthMarksStaleNodesNoResponse(t *testing.T) {
	m := &Manager{
		lastBeat: map[string]time.Time{
			"fresh": time.Now(),
			"stale": time.Now().Add(-2 * livenessThreshold),
		},
		health: make(map[string]runtime.Health),
	}
	m.wg.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	go m.updateHealth(ctx)

	deadline := time.Now().Add(3 * healthPollInterval)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		_, ok := m.health["fresh"]
		m.mu.Unlock()
		if ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	health := m.Health()
	if health["fresh"] != runtime.HealthRunning {
		t.Fatalf("fresh node health = %v, want HealthRunning", health["fresh"])
	}
	if health["stale"] != runtime.HealthNoResponse {
		t.Fatalf("stale node health = %v, want HealthNoResponse", health["stale"])
	}
}
