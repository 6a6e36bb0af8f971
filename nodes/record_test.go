package nodes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
)

func TestRecordNodeWritesJSONLEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	hub := broker.NewHub()
	noDatetime := false
	args := map[string]interface{}{
		"record_channel_types": map[string]interface{}{"in": "text"},
		"jsonl_file_path":      path,
		"add_datetime":         noDatetime,
	}
	made, err := NewRecordNode("rec", hub.Dial(), messages.DefaultRegistry, zerolog.Nop(), args)
	if err != nil {
		t.Fatalf("NewRecordNode: %v", err)
	}
	n := made.(*RecordNode)

	ctx := context.Background()
	if err := n.Enter(ctx); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	env := &messages.Envelope{Data: &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: "hello"}}
	if _, err := n.HandleEvent(ctx, "in", env); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if err := n.Exit(ctx); err != nil {
		t.Fatalf("Exit: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded struct {
		Channel string `json:"channel"`
		Data    struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw[:len(raw)-1], &decoded); err != nil {
		t.Fatalf("Unmarshal line: %v (raw=%q)", err, raw)
	}
	if decoded.Channel != "in" || decoded.Data.Text != "hello" {
		t.Fatalf("unexpected entry: %+v", decoded)
	}
}

func TestStampPathInsertsBeforeExtension(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := stampPath("out.jsonl", at)
	want := "out_2026-01-02_03-04-05.jsonl"
	if got != want {
		t.Fatalf("stampPath = %q, want %q", got, want)
	}
}
