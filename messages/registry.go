// Package messages implements the dataflow's typed, tagged data model: the
// discriminated-union records nodes exchange, the process-wide registry that
// maps a "data_type" tag to a concrete Go type, and the envelope wire codec
// that wraps every published payload as {"data": {"data_type": ..., ...}}.
package messages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// DataModel is implemented by every record exchanged between nodes. DataType
// returns the record's "data_type" discriminator, the same string it was
// registered under.
type DataModel interface {
	DataType() string
}

// Tagged is embedded by concrete records to satisfy DataModel without each
// one hand-writing a DataType method. The field carries the "data_type" key
// on the wire.
type Tagged struct {
	Type string `json:"data_type"`
}

// DataType implements DataModel.
func (t Tagged) DataType() string { return t.Type }

// descriptor is what the registry keeps per tag: a fresh-value factory and
// whether the record tolerates extra JSON fields beyond what it declares.
type descriptor struct {
	tag  string
	new  func() DataModel
	open bool
}

// Registry maps data_type tags to record constructors. It is safe for
// concurrent use; registration is expected at process/module-init time, and
// Decode/Make happen continuously from node event loops.
type Registry struct {
	mu   sync.RWMutex
	byTag map[string]descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]descriptor)}
}

// RegisterOption configures a single Register call.
type RegisterOption func(*descriptor)

// Open marks a record as accepting JSON fields beyond the ones its Go type
// declares (used by the Any record).
func Open() RegisterOption {
	return func(d *descriptor) { d.open = true }
}

// Register binds tag to a constructor. Re-registering a tag already in use
// overwrites the previous binding and logs a warning instead of failing,
// mirroring the rest of this runtime's load-then-run registries: collisions
// are a deployment mistake worth surfacing, not a reason to refuse to start.
func (r *Registry) Register(tag string, new func() DataModel, opts ...RegisterOption) {
	d := descriptor{tag: tag, new: new}
	for _, opt := range opts {
		opt(&d)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTag[tag]; exists {
		log.Warn().Str("data_type", tag).Msg("overwriting previously registered data model")
	}
	r.byTag[tag] = d
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byTag[tag]
	return ok
}

// Make returns a fresh zero-value instance of the record registered under
// tag, with its Type field already set.
func (r *Registry) Make(tag string) (DataModel, error) {
	r.mu.RLock()
	d, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no data model registered for tag %q", tag)
	}
	return d.new(), nil
}

// Decode unmarshals raw (a JSON object including "data_type") into the
// record registered under tag. Unknown fields are rejected unless the
// record was registered with Open(); a "data_type" inside raw that differs
// from tag is an error, matching the original's Literal discriminator
// semantics. A record whose constructor presets its Type (every Tagged
// record) accepts a raw object with no "data_type"; Any takes its Type only
// from raw, so for Any a missing "data_type" is an error.
func (r *Registry) Decode(tag string, raw json.RawMessage) (DataModel, error) {
	r.mu.RLock()
	d, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no data model registered for tag %q", tag)
	}
	value := d.new()
	dec := json.NewDecoder(bytes.NewReader(raw))
	if !d.open {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(value); err != nil {
		return nil, fmt.Errorf("decoding %q record: %w", tag, err)
	}
	if value.DataType() != tag {
		return nil, fmt.Errorf("record declares data_type %q, expected %q", value.DataType(), tag)
	}
	return value, nil
}

// DefaultRegistry is the process-wide registry used by the built-in records
// and, by default, by every node unless a test supplies its own.
var DefaultRegistry = NewRegistry()

func init() {
	registerBuiltins(DefaultRegistry)
}
