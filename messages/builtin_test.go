package messages

import (
	"encoding/json"
	"testing"
)

func TestHexBytesRoundTrip(t *testing.T) {
	original := HexBytes{0xDE, 0xAD, 0xBE, 0xEF}
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"deadbeef"` {
		t.Fatalf("wire form = %s, want lowercase hex string", raw)
	}

	var decoded HexBytes
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(decoded) != string(original) {
		t.Fatalf("round trip mismatch: got %x, want %x", decoded, original)
	}
}

func TestHexBytesUnmarshalInvalid(t *testing.T) {
	var decoded HexBytes
	if err := json.Unmarshal([]byte(`"not-hex!"`), &decoded); err == nil {
		t.Fatal("expected error decoding invalid hex string")
	}
}

func TestAnyMarshalUnmarshalKeepsFields(t *testing.T) {
	original := Any{Type: "any", Fields: map[string]any{"a": float64(1), "b": "two"}}
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != "any" {
		t.Fatalf("Type = %q, want %q", decoded.Type, "any")
	}
	if decoded.Fields["a"] != float64(1) || decoded.Fields["b"] != "two" {
		t.Fatalf("unexpected fields: %+v", decoded.Fields)
	}
	if _, present := decoded.Fields["data_type"]; present {
		t.Fatal("data_type should not leak into Fields")
	}
}
