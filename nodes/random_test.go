package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestRandomNodeHandleEventEmitsFloat(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "in", "output_channel": "out"}
	made, err := NewRandomNode("rnd", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewRandomNode: %v", err)
	}
	n := made.(*RandomNode)

	tick := &messages.Envelope{Data: &messages.Tick{Tagged: messages.Tagged{Type: "tick"}, Tick: 5}}
	outputs, err := n.HandleEvent(context.Background(), "in", tick)
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("len(outputs) = %d, want 1", len(outputs))
	}
	if outputs[0].Channel != "out" {
		t.Fatalf("Channel = %q, want %q", outputs[0].Channel, "out")
	}
	f, ok := outputs[0].Envelope.Data.(*messages.Float)
	if !ok {
		t.Fatalf("expected *messages.Float, got %T", outputs[0].Envelope.Data)
	}
	if f.Value < 0 || f.Value >= 1 {
		t.Fatalf("Value = %v, want [0,1)", f.Value)
	}
}
