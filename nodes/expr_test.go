package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestExprNodeRoutesTrueAndFalse(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{
		"input_channel": "in",
		"tag":           "float",
		"expr":          "value > 0.5",
		"true_channel":  "hi",
		"false_channel": "lo",
	}
	made, err := NewExprNode("router", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewExprNode: %v", err)
	}
	n := made.(*ExprNode)

	high := &messages.Envelope{Data: &messages.Float{Tagged: messages.Tagged{Type: "float"}, Value: 0.9}}
	outputs, err := n.HandleEvent(context.Background(), "in", high)
	if err != nil {
		t.Fatalf("HandleEvent(high): %v", err)
	}
	if len(outputs) != 1 || outputs[0].Channel != "hi" {
		t.Fatalf("high case: unexpected outputs: %+v", outputs)
	}

	low := &messages.Envelope{Data: &messages.Float{Tagged: messages.Tagged{Type: "float"}, Value: 0.1}}
	outputs, err = n.HandleEvent(context.Background(), "in", low)
	if err != nil {
		t.Fatalf("HandleEvent(low): %v", err)
	}
	if len(outputs) != 1 || outputs[0].Channel != "lo" {
		t.Fatalf("low case: unexpected outputs: %+v", outputs)
	}
}

func TestExprNodeRejectsInvalidExpr(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{
		"input_channel": "in",
		"tag":           "float",
		"expr":          "value >>> nonsense ~~~",
		"true_channel":  "hi",
	}
	if _, err := NewExprNode("router", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args); err == nil {
		t.Fatal("expected a configuration error for an uncompilable expression")
	}
}

func TestFieldsOfAnyIncludesDataType(t *testing.T) {
	any := &messages.Any{Type: "widget", Fields: map[string]any{"count": 3}}
	fields := fieldsOf(any)
	if fields["data_type"] != "widget" || fields["count"] != 3 {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}
