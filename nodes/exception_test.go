package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestExceptionNodeAlwaysErrors(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{"input_channel": "in"}
	made, err := NewExceptionNode("boom", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewExceptionNode: %v", err)
	}
	n := made.(*ExceptionNode)

	env := &messages.Envelope{Data: &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: "x"}}
	if _, err := n.HandleEvent(context.Background(), "in", env); err == nil {
		t.Fatal("expected an error from ExceptionNode.HandleEvent")
	}
}
