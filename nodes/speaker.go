package nodes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/internal/audio"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("speaker", NewSpeakerNode)
}

// SpeakerArgs is speaker's node_args.
type SpeakerArgs struct {
	InputChannel string `mapstructure:"input_channel"`
}

// SpeakerNode writes every Audio record it receives to the host playback
// device. It has no output channels.
type SpeakerNode struct {
	*node.Base
	device audio.Device
}

// NewSpeakerNode satisfies node.Constructor, using audio.Null as the
// playback device.
func NewSpeakerNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	return NewSpeakerNodeWithDevice(name, brk, reg, logger, args, audio.Null{})
}

// NewSpeakerNodeWithDevice lets callers supply the playback device
// explicitly.
func NewSpeakerNodeWithDevice(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}, dev audio.Device) (node.Node, error) {
	var a SpeakerArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &SpeakerNode{device: dev}
	inputs := []runtime.ChannelSpec{{Channel: a.InputChannel, Tags: []string{"audio"}}}
	base, err := node.NewBase(name, inputs, nil, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *SpeakerNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	audioMsg, ok := env.Data.(*messages.Audio)
	if !ok {
		return nil, nil
	}
	rate := audioMsg.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	if err := n.device.Play(ctx, rate, audioMsg.Audio); err != nil {
		return nil, err
	}
	return nil, nil
}
