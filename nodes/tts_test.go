package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestTTSNodeLocalProviderEmitsAudio(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "in", "output_channel": "out"}
	made, err := NewTTSNode("tts", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewTTSNode: %v", err)
	}
	n := made.(*TTSNode)

	env := &messages.Envelope{Data: &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: "hello"}}
	outputs, err := n.HandleEvent(context.Background(), "in", env)
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Channel != "out" {
		t.Fatalf("unexpected outputs: %+v", outputs)
	}
	if _, ok := outputs[0].Envelope.Data.(*messages.Audio); !ok {
		t.Fatalf("expected *messages.Audio, got %T", outputs[0].Envelope.Data)
	}
}
