package nodes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
	js "github.com/bittoy/dataflow/utils/js"
)

func init() {
	node.DefaultRegistry.Register("script", NewScriptNode)
}

// ScriptArgs is script's node_args: a JS source defining a handle(data)
// function, the input channel's data model tag, and where to publish
// whatever handle returns (tagged with output_tag).
type ScriptArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	Tag           string `mapstructure:"tag"`
	OutputChannel string `mapstructure:"output_channel"`
	OutputTag     string `mapstructure:"output_tag"`
	Script        string `mapstructure:"script"`
}

// ScriptNode runs a user JS handler over the decoded payload's fields and
// republishes whatever it returns as an Any record — a dataflow-level
// generalization of the teacher's JsTransformNode/JsFilterNode, which run
// the same handle(msg, metadata) shape over a rule-chain message.
type ScriptNode struct {
	*node.Base
	engine        *js.Engine
	outputChannel string
	outputTag     string
}

// NewScriptNode satisfies node.Constructor.
func NewScriptNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a ScriptArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	engine, err := js.NewEngine(a.Script)
	if err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &ScriptNode{engine: engine, outputChannel: a.OutputChannel, outputTag: a.OutputTag}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{a.Tag}}}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{a.OutputTag}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *ScriptNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	fields := fieldsOf(env.Data)
	exported, err := n.engine.Execute(fields)
	if err != nil {
		return nil, err
	}
	out := messages.Make(n.outputTag, exported)
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: out}}}, nil
}
