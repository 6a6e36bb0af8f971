package messages

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Zero carries no payload fields. Nodes publish it as a pure signal, most
// commonly on heartbeat channels.
type Zero struct {
	Tagged
}

// Tick counts dataflow ticks; the tick reference node publishes one of these
// per timer interval.
type Tick struct {
	Tagged
	Tick int `json:"tick"`
}

// Float carries a single floating point sample.
type Float struct {
	Tagged
	Value float64 `json:"value"`
}

// Text carries a single UTF-8 string field.
type Text struct {
	Tagged
	Text string `json:"text"`
}

// HexBytes is []byte that marshals as a lowercase hex string on the wire
// instead of base64, matching the original's bytes-as-hex convention for
// binary payloads.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decoding hex payload: %w", err)
	}
	*h = decoded
	return nil
}

// Image carries a single still frame, raw bytes plus the dimensions needed
// to interpret them.
type Image struct {
	Tagged
	Image  HexBytes `json:"image"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
}

// Audio carries a chunk of raw audio samples plus the encoding needed to
// interpret them, matching what the listener/speaker reference nodes read
// and write.
type Audio struct {
	Tagged
	Audio      HexBytes `json:"audio"`
	SampleRate int      `json:"sample_rate,omitempty"`
	Channels   int      `json:"channels,omitempty"`
}

// Any is the open record: it keeps every JSON field it was decoded from,
// beyond data_type, in Fields. It is how record/print-style nodes stay
// generic over whatever payload shape a dataflow config throws at them.
type Any struct {
	Type   string
	Fields map[string]any
}

// DataType implements DataModel.
func (a Any) DataType() string { return a.Type }

// MarshalJSON flattens Fields back out alongside data_type.
func (a Any) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Fields)+1)
	for k, v := range a.Fields {
		out[k] = v
	}
	out["data_type"] = a.Type
	return json.Marshal(out)
}

// UnmarshalJSON keeps every field, reserving only data_type for Type.
func (a *Any) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	tag, _ := raw["data_type"].(string)
	delete(raw, "data_type")
	a.Type = tag
	a.Fields = raw
	return nil
}

// registerBuiltins seeds a registry with the records every dataflow can rely
// on without any extra_modules entry.
func registerBuiltins(r *Registry) {
	r.Register("zero", func() DataModel { return &Zero{Tagged: Tagged{Type: "zero"}} })
	r.Register("tick", func() DataModel { return &Tick{Tagged: Tagged{Type: "tick"}} })
	r.Register("float", func() DataModel { return &Float{Tagged: Tagged{Type: "float"}} })
	r.Register("text", func() DataModel { return &Text{Tagged: Tagged{Type: "text"}} })
	r.Register("image", func() DataModel { return &Image{Tagged: Tagged{Type: "image"}} })
	r.Register("audio", func() DataModel { return &Audio{Tagged: Tagged{Type: "audio"}} })
	r.Register("any", func() DataModel { return &Any{Type: "any"} }, Open())
	r.Register("rest_request", func() DataModel { return &RestRequest{Tagged: Tagged{Type: "rest_request"}} }, Open())
	r.Register("rest_response", func() DataModel { return &RestResponse{Tagged: Tagged{Type: "rest_response"}} }, Open())
}
