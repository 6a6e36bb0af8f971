// Package node implements the node base class: the construct/Enter/event
// loop/Exit lifecycle every reference node in package nodes builds on, plus
// the process-wide node-class registry the manager and run-node use to
// instantiate a node from its config-declared class name.
package node

import (
	"context"

	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/runtime"
)

// Output is one envelope a handler wants published, and the channel to
// publish it on.
type Output struct {
	Channel  string
	Envelope *messages.Envelope
}

// EventHandler is implemented by a node's own type; Base.Run calls it once
// per decoded inbound message and publishes whatever it returns, in order.
// Returning runtime.ErrNodeExitSignal (wrapped or bare) ends the event loop
// without treating it as a failure.
type EventHandler interface {
	HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]Output, error)
}

// Lifecycle lets a node hook extra startup/teardown work around the base
// behavior (connect, subscribe, heartbeat / cancel, unsubscribe, close).
// A node that needs no extra resources can embed *Base and inherit its
// Enter/Exit directly; one that does must chain to its *Base method in
// Enter and call it last in Exit to keep the base guarantees intact.
type Lifecycle interface {
	Enter(ctx context.Context) error
	Exit(ctx context.Context) error
}

// Node is what the registry constructs and run-node drives: a named,
// lifecycle-managed event handler.
type Node interface {
	Lifecycle
	EventHandler
	Name() string
	// Run blocks processing messages until ctx is cancelled, the
	// handler signals exit, or the broker connection is lost.
	Run(ctx context.Context) error
}

// ChannelDescriber is satisfied by *Base (and so by every reference node
// that embeds it), letting a caller like draw-dataflow read a node's
// declared channel wiring without knowing its concrete type.
type ChannelDescriber interface {
	InputChannelTypes() []runtime.ChannelSpec
	OutputChannelTypes() []runtime.ChannelSpec
}
