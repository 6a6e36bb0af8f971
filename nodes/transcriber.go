package nodes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/internal/speech"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("transcriber", NewTranscriberNode)
}

// TranscriberArgs is transcriber's node_args.
type TranscriberArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
	Rate          int    `mapstructure:"rate"`
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
}

// TranscriberNode publishes the final transcript of every Audio chunk it
// receives as a Text record.
type TranscriberNode struct {
	*node.Base
	outputChannel string
	rate          int
	provider      speech.Provider
}

// NewTranscriberNode satisfies node.Constructor.
func NewTranscriberNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	a := TranscriberArgs{Rate: defaultSampleRate, Provider: "local"}
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	provider, err := speech.New(a.Provider, a.APIKey)
	if err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &TranscriberNode{outputChannel: a.OutputChannel, rate: a.Rate, provider: provider}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"audio"}}}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"text"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *TranscriberNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	audioMsg, ok := env.Data.(*messages.Audio)
	if !ok {
		return nil, nil
	}
	transcript, err := n.provider.Transcribe(ctx, audioMsg.Audio, n.rate)
	if err != nil {
		return nil, err
	}
	if transcript == "" {
		return nil, nil
	}
	out := &messages.Text{Tagged: messages.Tagged{Type: "text"}, Text: transcript}
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: out}}}, nil
}
