package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestPerformanceNodeTickThenImageReportsLatency(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "tick", "output_channel": "img", "message_size": 1}
	made, err := NewPerformanceNode("perf", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewPerformanceNode: %v", err)
	}
	n := made.(*PerformanceNode)

	var matched time.Duration
	matchedCh := make(chan struct{})
	n.onMatch = func(latency time.Duration) {
		matched = latency
		close(matchedCh)
	}

	ctx := context.Background()
	tickEnv := &messages.Envelope{Data: &messages.Tick{Tagged: messages.Tagged{Type: "tick"}, Tick: 0}}
	outputs, err := n.HandleEvent(ctx, "tick", tickEnv)
	if err != nil {
		t.Fatalf("HandleEvent(tick): %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("len(outputs) = %d, want 1", len(outputs))
	}
	img, ok := outputs[0].Envelope.Data.(*messages.Image)
	if !ok {
		t.Fatalf("expected *messages.Image, got %T", outputs[0].Envelope.Data)
	}

	if _, err := n.HandleEvent(ctx, "img", &messages.Envelope{Data: img}); err != nil {
		t.Fatalf("HandleEvent(image): %v", err)
	}

	select {
	case <-matchedCh:
		if matched < 0 {
			t.Fatalf("negative latency: %v", matched)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for onMatch to fire")
	}
}
