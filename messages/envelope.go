package messages

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/structs"

	"github.com/bittoy/dataflow/runtime"
)

// Envelope is the {"data": {"data_type": ..., ...}} wrapper every message
// published on a channel carries. It is never constructed empty: Data is
// always a concrete DataModel decoded against a channel's admissible tags.
type Envelope struct {
	Data DataModel
}

type wireEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// EncodeEnvelope serializes env to its wire form.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope payload: %w", err)
	}
	return json.Marshal(wireEnvelope{Data: raw})
}

// DecodeEnvelope parses raw as a {"data": {...}} envelope and decodes its
// payload through reg, requiring the payload's data_type to be one of
// admissible. Any failure — malformed JSON, an inadmissible or unregistered
// tag, or a payload that fails its record's own field decode — comes back
// as a *runtime.SchemaMismatchError so callers don't need to classify the
// cause themselves.
func DecodeEnvelope(raw []byte, reg *Registry, admissible []string) (*Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &runtime.SchemaMismatchError{Err: fmt.Errorf("malformed envelope: %w", err)}
	}
	var disc Tagged
	if err := json.Unmarshal(wire.Data, &disc); err != nil {
		return nil, &runtime.SchemaMismatchError{Err: fmt.Errorf("malformed payload: %w", err)}
	}
	if !tagAdmissible(disc.Type, admissible) {
		return nil, &runtime.SchemaMismatchError{
			Err: fmt.Errorf("data_type %q is not admissible on this channel (want one of %v)", disc.Type, admissible),
		}
	}
	data, err := reg.Decode(disc.Type, wire.Data)
	if err != nil {
		return nil, &runtime.SchemaMismatchError{Err: err}
	}
	return &Envelope{Data: data}, nil
}

func tagAdmissible(tag string, admissible []string) bool {
	for _, a := range admissible {
		if a == tag {
			return true
		}
	}
	return false
}

// Make builds an open Any record from a data_type tag and a set of fields,
// the Go equivalent of the original's create_model-based "construct a
// record from keyword arguments" convenience used by nodes that build
// payloads dynamically from node_args rather than a fixed struct literal.
func Make(tag string, fields map[string]any) DataModel {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &Any{Type: tag, Fields: cp}
}

// MakeFromStruct is Make for callers that already have a typed config or
// result struct in hand, so they need not hand-copy fields into a map. The
// reference nodes in package nodes build typed records directly and do not
// call it. Unexported fields and nil pointers are skipped by structs.Map.
func MakeFromStruct(tag string, v any) DataModel {
	return &Any{Type: tag, Fields: structs.Map(v)}
}

// FieldsOf exposes any record's JSON-visible fields as a plain map, for
// callers (ExprNode, ScriptNode) that need to evaluate an expression or
// script against a closed record's fields rather than an Any's.
func FieldsOf(data DataModel) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
