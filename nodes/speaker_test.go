package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/internal/audio"
	"github.com/bittoy/dataflow/messages"
)

func TestSpeakerNodePlaysAudio(t *testing.T) {
	hub := broker.NewHub()
	made, err := NewSpeakerNodeWithDevice("speaker", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(),
		map[string]interface{}{"input_channel": "in"}, audio.Null{})
	if err != nil {
		t.Fatalf("NewSpeakerNodeWithDevice: %v", err)
	}
	n := made.(*SpeakerNode)

	env := &messages.Envelope{Data: &messages.Audio{Tagged: messages.Tagged{Type: "audio"}, Audio: []byte{1, 2}, SampleRate: 16000}}
	if _, err := n.HandleEvent(context.Background(), "in", env); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestSpeakerNodeIgnoresNonAudioPayload(t *testing.T) {
	hub := broker.NewHub()
	made, err := NewSpeakerNodeWithDevice("speaker", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(),
		map[string]interface{}{"input_channel": "in"}, audio.Null{})
	if err != nil {
		t.Fatalf("NewSpeakerNodeWithDevice: %v", err)
	}
	n := made.(*SpeakerNode)

	env := &messages.Envelope{Data: &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: "x"}}
	outputs, err := n.HandleEvent(context.Background(), "in", env)
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if outputs != nil {
		t.Fatalf("expected no outputs, got %+v", outputs)
	}
}
