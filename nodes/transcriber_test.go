package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestTranscriberNodeLocalProviderProducesNoOutput(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "in", "output_channel": "out"}
	made, err := NewTranscriberNode("transcriber", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewTranscriberNode: %v", err)
	}
	n := made.(*TranscriberNode)

	env := &messages.Envelope{Data: &messages.Audio{Tagged: messages.Tagged{Type: "audio"}, Audio: []byte{1, 2, 3}}}
	outputs, err := n.HandleEvent(context.Background(), "in", env)
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(outputs) != 0 {
		t.Fatalf("expected no outputs from the local provider's empty transcript, got %+v", outputs)
	}
}

func TestTranscriberNodeRejectsUnknownProvider(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "in", "output_channel": "out", "provider": "nope"}
	if _, err := NewTranscriberNode("transcriber", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args); err == nil {
		t.Fatal("expected an error for an unregistered speech provider")
	}
}
