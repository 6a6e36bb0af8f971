package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("exception_node", NewExceptionNode)
}

// ExceptionArgs is exception_node's node_args.
type ExceptionArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
}

// ExceptionNode fails every message it receives. It exists to exercise
// crash isolation: its own process exits on the first message while every
// sibling node keeps running undisturbed.
type ExceptionNode struct {
	*node.Base
}

// NewExceptionNode satisfies node.Constructor.
func NewExceptionNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a ExceptionArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &ExceptionNode{}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"text"}}}
	var outputs []runtime.ChannelSpec
	if a.OutputChannel != "" {
		outputs = []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"text"}}}
	}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler: it always fails.
func (n *ExceptionNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	return nil, fmt.Errorf("this is an exception from the node")
}
