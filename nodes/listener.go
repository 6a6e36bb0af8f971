package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/internal/audio"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("listener", NewListenerNode)
}

const (
	defaultSampleRate = 44100
	defaultFrameSize  = 1024
)

// ListenerArgs is listener's node_args.
type ListenerArgs struct {
	OutputChannel string `mapstructure:"output_channel"`
}

// ListenerNode has no input channels: it captures audio frames from the
// host device and publishes each as an Audio record. Like TickNode it
// drives its own loop rather than reacting to input, so it overrides Run.
type ListenerNode struct {
	*node.Base
	outputChannel string
	device        audio.Device
}

// NewListenerNode satisfies node.Constructor, using audio.Null as the
// capture device. Production wiring swaps in a real audio.Device via
// NewListenerNodeWithDevice.
func NewListenerNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	return NewListenerNodeWithDevice(name, brk, reg, logger, args, audio.Null{})
}

// NewListenerNodeWithDevice lets callers (tests, or a deployment with real
// hardware) supply the capture device explicitly.
func NewListenerNodeWithDevice(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}, dev audio.Device) (node.Node, error) {
	var a ListenerArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &ListenerNode{outputChannel: a.OutputChannel, device: dev}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"audio"}}}
	base, err := node.NewBase(name, nil, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent is unreachable: ListenerNode has no input channels.
func (n *ListenerNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	return nil, fmt.Errorf("listener node has no event handler")
}

// Run overrides Base.Run: it forwards every captured frame as an Audio
// record until ctx is cancelled or the device closes its capture channel.
func (n *ListenerNode) Run(ctx context.Context) error {
	frames, err := n.device.Capture(ctx, defaultSampleRate, defaultFrameSize)
	if err != nil {
		return fmt.Errorf("node %q: starting audio capture: %w", n.Name(), err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			env := &messages.Envelope{Data: &messages.Audio{
				Tagged:     messages.Tagged{Type: "audio"},
				Audio:      frame,
				SampleRate: defaultSampleRate,
				Channels:   1,
			}}
			payload, err := messages.EncodeEnvelope(env)
			if err != nil {
				return err
			}
			if err := n.Base.Publish(ctx, n.outputChannel, payload); err != nil {
				return err
			}
		}
	}
}
