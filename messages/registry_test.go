package messages

import (
	"encoding/json"
	"testing"
)

func TestRegistryMakeUnknownTag(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Make("nope"); err == nil {
		t.Fatal("expected error for unregistered tag")
	}
}

func TestRegistryHas(t *testing.T) {
	r := NewRegistry()
	if r.Has("tick") {
		t.Fatal("fresh registry should not have tick registered")
	}
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}} })
	if !r.Has("tick") {
		t.Fatal("expected tick to be registered")
	}
}

func TestRegistryDecodeRejectsUnknownFields(t *testing.T) {
	r := NewRegistry()
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}} })

	raw := json.RawMessage(`{"data_type":"tick","tick":3,"surprise":"field"}`)
	if _, err := r.Decode("tick", raw); err == nil {
		t.Fatal("expected closed record to reject unknown fields")
	}
}

func TestRegistryDecodeOpenAllowsExtraFields(t *testing.T) {
	r := NewRegistry()
	r.Register("any", func() DataModel { return &Any{Type: "any"} }, Open())

	raw := json.RawMessage(`{"data_type":"any","x":1,"y":"two"}`)
	data, err := r.Decode("any", raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	any, ok := data.(*Any)
	if !ok {
		t.Fatalf("expected *Any, got %T", data)
	}
	if any.Fields["x"] != float64(1) || any.Fields["y"] != "two" {
		t.Fatalf("unexpected fields: %+v", any.Fields)
	}
}

func TestRegistryDecodeTagMismatch(t *testing.T) {
	r := NewRegistry()
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}} })
	r.Register("text", func() DataModel { return &Text{Tagged: Tagged{Type: "text"}} })

	raw := json.RawMessage(`{"data_type":"text","text":"hi"}`)
	if _, err := r.Decode("tick", raw); err == nil {
		t.Fatal("expected error decoding a text payload as tick")
	}
}

func TestRegistryRegisterOverwriteWarnsNotFails(t *testing.T) {
	r := NewRegistry()
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}} })
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}, Tick: 7} })

	v, err := r.Make("tick")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	tick := v.(*Tick)
	if tick.Tick != 7 {
		t.Fatalf("expected the second registration to win, got Tick=%d", tick.Tick)
	}
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	for _, tag := range []string{"zero", "tick", "float", "text", "image", "audio", "any", "rest_request", "rest_response"} {
		if !DefaultRegistry.Has(tag) {
			t.Errorf("expected DefaultRegistry to have builtin %q registered", tag)
		}
	}
}
