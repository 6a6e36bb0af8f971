package nodes

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/config"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("performance", NewPerformanceNode)
}

// PerformanceArgs is performance's node_args.
type PerformanceArgs struct {
	InputChannel  string `mapstructure:"input_channel"`
	OutputChannel string `mapstructure:"output_channel"`
	MessageSize   int    `mapstructure:"message_size"`
}

// stampKeyLen is how many leading bytes of an image payload are used as the
// key correlating a sent image with its round trip, the same convention
// the original uses via a byte-string prefix.
const stampKeyLen = 16

// PerformanceNode measures round-trip latency through the rest of a
// dataflow: on every tick it emits a message_size-kilobyte random image
// and records its send time, keyed by the image's first stampKeyLen bytes;
// when that same image comes back on its output channel (looped through the
// rest of the graph) it reports the elapsed latency.
type PerformanceNode struct {
	*node.Base
	outputChannel string
	messageSize   int

	mu      sync.Mutex
	sentAt  map[string]time.Time
	onMatch func(latency time.Duration)
}

// NewPerformanceNode satisfies node.Constructor.
func NewPerformanceNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, args map[string]interface{}) (node.Node, error) {
	var a PerformanceArgs
	if err := config.DecodeArgs(args, &a); err != nil {
		return nil, runtime.NewConfigurationError(name, err)
	}
	n := &PerformanceNode{
		outputChannel: a.OutputChannel,
		messageSize:   a.MessageSize,
		sentAt:        make(map[string]time.Time),
		onMatch: func(latency time.Duration) {
			logger.Info().Dur("latency", latency).Msg("measured round-trip latency")
		},
	}
	inputs := []runtime.ChannelSpec{
		{Channel: a.InputChannel, Tags: []string{"tick"}},
		{Channel: a.OutputChannel, Tags: []string{"image"}},
	}
	outputs := []runtime.ChannelSpec{{Channel: a.OutputChannel, Tags: []string{"image"}}}
	base, err := node.NewBase(name, inputs, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent implements node.EventHandler.
func (n *PerformanceNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	switch payload := env.Data.(type) {
	case *messages.Tick:
		size := n.messageSize * 1024
		buf := make([]byte, size)
		_, _ = rand.Read(buf)
		img := &messages.Image{Tagged: messages.Tagged{Type: "image"}, Image: buf}
		n.mu.Lock()
		n.sentAt[stampKey(buf)] = time.Now()
		n.mu.Unlock()
		return []node.Output{{Channel: n.outputChannel, Envelope: &messages.Envelope{Data: img}}}, nil
	case *messages.Image:
		key := stampKey(payload.Image)
		n.mu.Lock()
		sentAt, ok := n.sentAt[key]
		if ok {
			delete(n.sentAt, key)
		}
		n.mu.Unlock()
		if ok {
			n.onMatch(time.Since(sentAt))
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func stampKey(image []byte) string {
	if len(image) < stampKeyLen {
		return string(image)
	}
	return string(image[:stampKeyLen])
}
