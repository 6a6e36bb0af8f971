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
	node.DefaultRegistry.Register("tts", NewTTSNode)
}

// TTSArgs is tts's node_args.
type TTSArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
	Rate          int    `mapstructure:"rate"`
	Provider      string `mapstructure:"provider"`
	APIKey        string `mapstructure:"api_key"`
}

// TTSNode synthesizes every Text record it receives into an Audio record.
type TTSNode struct {
	*node.Base
	outputChannel string
	rate          int
	provider      speech.Provider
}

// NewTTSNode satisfies node.Constructor.
func NewTTSNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	a := TTSArgs{Rate: defaultSampleRate, Provider: "local"}
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	provider, err := speech.New(a.Provider, a.APIKey)
	if err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &TTSNode{outputChannel: a.OutputChannel, rate: a.Rate, provider: provider}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"text"}}}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"audio"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *TTSNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	textMsg, ok := env.Data.(*messages.Text)
	if !ok {
		return nil, nil
	}
	audio, err := n.provider.Synthesize(ctx, textMsg.Text, n.rate)
	if err != nil {
		return nil, err
	}
	out := &messages.Audio{Tagged: messages.Tagged{Type: "audio"}, Audio: audio, SampleRate: n.rate, Channels: 1}
	return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: out}}}, nil
}
