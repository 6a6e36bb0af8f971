package nodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestRestAPINodePerformsRequestAndDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data_type":"any","greeting":"hello"}`))
	}))
	defer srv.Close()

	hub := broker.NewHub()
	args := map[string]interface{}{
		"input_channel":   "req",
		"output_channel":  "resp",
		"output_type_str": "any",
	}
	made, err := NewRestAPINode("api", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewRestAPINode: %v", err)
	}
	n := made.(*RestAPINode)

	req := &messages.RestRequest{Tagged: messages.Tagged{Type: "rest_request"}, Method: "GET", URL: srv.URL}
	outputs, err := n.HandleEvent(context.Background(), "req", &messages.Envelope{Data: req})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("len(outputs) = %d, want 1", len(outputs))
	}
	resp, ok := outputs[0].Envelope.Data.(*messages.RestResponse)
	if !ok {
		t.Fatalf("expected *messages.RestResponse, got %T", outputs[0].Envelope.Data)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	any, ok := resp.Data.(*messages.Any)
	if !ok {
		t.Fatalf("expected decoded Data to be *messages.Any, got %T", resp.Data)
	}
	if any.Fields["greeting"] != "hello" {
		t.Fatalf("Fields[greeting] = %v, want %q", any.Fields["greeting"], "hello")
	}
}

func TestRestAPINodeRejectsWrongEnvelopeType(t *testing.T) {
	hub := broker.NewHub()
	args := map[string]interface{}{
		"input_channel":   "req",
		"output_channel":  "resp",
		"output_type_str": "any",
	}
	made, err := NewRestAPINode("api", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewRestAPINode: %v", err)
	}
	n := made.(*RestAPINode)

	bad := &messages.Envelope{Data: &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: "x"}}
	if _, err := n.HandleEvent(context.Background(), "req", bad); err == nil {
		t.Fatal("expected an error for a non-RestRequest payload")
	}
}
