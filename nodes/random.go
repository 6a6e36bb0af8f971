package nodes

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("random", NewRandomNode)
}

// RandomArgs is random's node_args.
type RandomArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
}

// RandomNode reacts to every tick on its input channel by publishing one
// uniform random float on its output channel, independent of the tick's
// own value.
type RandomNode struct {
	*node.Base
	outputChannel string
}

// NewRandomNode satisfies node.Constructor.
func NewRandomNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a RandomArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &RandomNode{outputChannel: a.OutputChannel}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"tick"}}}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"float"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *RandomNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	out := &messages.Float{Tagged: messages.Tagged{Type: "float"}, Value: rand.Float64()}
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: out}}}, nil
}
