package node

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/runtime"
)

// Constructor builds one instance of a node class. name is the dataflow
// config's node_name; args is its node_args, typically further decoded by
// the constructor itself via mapstructure into that class's own args
// struct.
type Constructor func(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]any) (Node, error)

// Registry maps a node_class string to the constructor that builds it.
// Like messages.Registry, registration is expected at process/module-init
// time; Make happens once per dataflow-config node entry at startup.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty node-class registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register binds class to ctor, overwriting and warning on collision —
// the same append-only-in-spirit, warn-on-overwrite semantics as
// messages.Registry.
func (r *Registry) Register(class string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[class]; exists {
		log.Warn().Str("node_class", class).Msg("overwriting previously registered node class")
	}
	r.ctors[class] = ctor
}

// Make constructs the node_name instance of node_class class.
func (r *Registry) Make(class, name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]any) (Node, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[class]
	r.mu.RUnlock()
	if !ok {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("no node class registered as %q", class))
	}
	return ctor(name, brk, reg, logger, args)
}

// DefaultRegistry is the process-wide node-class registry the reference
// nodes in package nodes register themselves into, and that run-node and
// the manager build dataflows out of unless a test supplies its own.
var DefaultRegistry = NewRegistry()
