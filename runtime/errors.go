// Package runtime holds the error kinds and small shared types used across
// the dataflow packages: channel specs, node health, and the handful of
// named error cases a node or manager can hit.
package runtime

import (
	"errors"
	"fmt"
)

// ErrNodeExitSignal is not a failure: a handler returns it to ask the event
// loop to stop cleanly, the same way a generator return ends an async loop.
// Callers distinguish it from real errors with errors.Is.
var ErrNodeExitSignal = errors.New("node requested exit")

// ConfigurationError reports a dataflow or node configuration that cannot be
// satisfied: an unknown node class, a channel type that no data model is
// registered for, or a malformed node_args block.
type ConfigurationError struct {
	Node string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error for node %q: %v", e.Node, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a ConfigurationError attributed to node.
func NewConfigurationError(node string, err error) *ConfigurationError {
	return &ConfigurationError{Node: node, Err: err}
}

// BrokerUnavailableError reports that a broker connection could not be
// established or failed to answer a liveness ping.
type BrokerUnavailableError struct {
	Addr string
	Err  error
}

func (e *BrokerUnavailableError) Error() string {
	return fmt.Sprintf("broker unavailable at %q: %v", e.Addr, e.Err)
}

func (e *BrokerUnavailableError) Unwrap() error { return e.Err }

// BrokerDisconnectedError reports that a previously live broker connection
// or subscription closed while a node was relying on it.
type BrokerDisconnectedError struct {
	Node string
	Err  error
}

func (e *BrokerDisconnectedError) Error() string {
	return fmt.Sprintf("broker disconnected for node %q: %v", e.Node, e.Err)
}

func (e *BrokerDisconnectedError) Unwrap() error { return e.Err }

// SchemaMismatchError reports that a message arriving on a channel could not
// be decoded as one of that channel's admissible data-model tags: the tag is
// absent from the registry, not declared for the channel, or the payload
// fails the record's own field decode.
type SchemaMismatchError struct {
	Node    string
	Channel string
	Err     error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch on node %q channel %q: %v", e.Node, e.Channel, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// HandlerError reports that a node's event handler returned an error other
// than ErrNodeExitSignal.
type HandlerError struct {
	Node string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler error on node %q: %v", e.Node, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// ChildSpawnFailureError reports that the manager could not fork/exec a
// child process for a declared node.
type ChildSpawnFailureError struct {
	Node string
	Err  error
}

func (e *ChildSpawnFailureError) Error() string {
	return fmt.Sprintf("failed to spawn child process for node %q: %v", e.Node, e.Err)
}

func (e *ChildSpawnFailureError) Unwrap() error { return e.Err }
