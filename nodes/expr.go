package nodes

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("expr", NewExprNode)
}

// ExprArgs is expr's node_args: a boolean expression evaluated against the
// decoded payload's fields, and where to send it depending on the result.
type ExprArgs struct {
	InputChannel string `mapstructure:"input_channel"`
	Tag          string `mapstructure:"tag"`
	Expr         string `mapstructure:"expr"`
	TrueChannel  string `mapstructure:"true_channel"`
	FalseChannel string `mapstructure:"false_channel"`
}

// ExprNode routes an unmodified envelope to true_channel or false_channel
// depending on whether expr evaluates truthy against the payload's fields —
// a dataflow-level generalization of the teacher's expr-based filter/switch
// components, which route a rule-chain relation the same way.
type ExprNode struct {
	*node.Base
	program      *vm.Program
	trueChannel  string
	falseChannel string
	tag          string
}

// NewExprNode satisfies node.Constructor.
func NewExprNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a ExprArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	program, err := expr.Compile(a.Expr, expr.AsBool())
	if err != nil {
		return nil, runtime.NewConfigurationError(name, fmt.Errorf("compiling expr %q: %w", a.Expr, err))
	}
	n := &ExprNode{program: program, trueChannel: a.TrueChannel, falseChannel: a.FalseChannel, tag: a.Tag}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{a.Tag}}}
	var outputs []runtime.ChannelSpec
	if a.TrueChannel != "" {
		outputs = append(outputs, runtime.ChannelSpec{Channel: a.TrueChannel, Tags: []string{a.Tag}})
	}
	if a.FalseChannel != "" {
		outputs = append(outputs, runtime.ChannelSpec{Channel: a.FalseChannel, Tags: []string{a.Tag}})
	}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *ExprNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	env_vars := fieldsOf(env.Data)
	result, err := expr.Run(n.program, env_vars)
	if err != nil {
		return nil, fmt.Errorf("evaluating expr: %w", err)
	}
	pass, _ := result.(bool)

	target := n.falseChannel
	if pass {
		target = n.trueChannel
	}
	if target == "" {
		return nil, nil
	}
	return []node.Output{{Channel: target, Envelope: env}}, nil
}

// fieldsOf exposes a record's fields as a plain map for expr to evaluate
// against, via the Any record's own field map when possible and a JSON
// round trip otherwise.
func fieldsOf(data messages.DataModel) map[string]any {
	if any, ok := data.(*messages.Any); ok {
		out := make(map[string]any, len(any.Fields)+1)
		for k, v := range any.Fields {
			out[k] = v
		}
		out["data_type"] = any.Type
		return out
	}
	return messages.FieldsOf(data)
}
