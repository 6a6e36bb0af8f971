// Package nodes ships the reference node classes: tick/random generators,
// record/print sinks, the REST bridge and its client, a deliberately
// crashing node for exercising crash isolation, a round-trip latency
// prober, audio capture/playback, speech transcription/synthesis, and two
// extra nodes (script, expr) grounded on the teacher's JS/expression
// components rather than the original Python project.
package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/node"
	"github.com/bittoy/dataflow/runtime"
)

func init() {
	node.DefaultRegistry.Register("tick", NewTickNode)
}

// tickRate is one of TickNode's fixed output channels: a channel name and
// the interval it self-publishes on.
type tickRate struct {
	channel  string
	interval time.Duration
}

// tickSchedule mirrors the original's hard-coded tick rates; it is not
// configurable via node_args because the channel names themselves are the
// contract other nodes subscribe to.
var tickSchedule = []tickRate{
	{"tick/millis/10", 10 * time.Millisecond},
	{"tick/millis/20", 20 * time.Millisecond},
	{"tick/millis/33", 33 * time.Millisecond},
	{"tick/millis/50", 50 * time.Millisecond},
	{"tick/millis/100", 100 * time.Millisecond},
	{"tick/secs/1", time.Second},
}

// TickNode has no input channels: it is the dataflow's clock, publishing an
// incrementing Tick on each of six fixed-rate channels. Its event loop does
// not wait on the broker at all, so it overrides Base.Run rather than
// implementing HandleEvent.
type TickNode struct {
	*node.Base
}

// NewTickNode satisfies node.Constructor. TickNode takes no node_args.
func NewTickNode(name string, brk broker.Broker, reg *messages.Registry, logger zerolog.Logger, _ map[string]interface{}) (node.Node, error) {
	n := &TickNode{}
	outputs := make([]runtime.ChannelSpec, 0, len(tickSchedule))
	for _, r := range tickSchedule {
		outputs = append(outputs, runtime.ChannelSpec{Channel: r.channel, Tags: []string{"tick"}})
	}
	base, err := node.NewBase(name, nil, outputs, reg, brk, logger, n)
	if err != nil {
		return nil, err
	}
	n.Base = base
	return n, nil
}

// HandleEvent is unreachable: TickNode has no input channels to decode
// messages from.
func (n *TickNode) HandleEvent(ctx context.Context, channel string, env *messages.Envelope) ([]node.Output, error) {
	return nil, fmt.Errorf("tick node has no event handler")
}

// Run overrides Base.Run: one goroutine per fixed-rate channel, each
// publishing an incrementing tick count at its own interval until ctx is
// cancelled.
func (n *TickNode) Run(ctx context.Context) error {
	errCh := make(chan error, len(tickSchedule))
	for _, r := range tickSchedule {
		go n.tickAt(ctx, r.channel, r.interval, errCh)
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (n *TickNode) tickAt(ctx context.Context, channel string, interval time.Duration, errCh chan<- error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	count := 0
	for {
		env := &messages.Envelope{Data: &messages.Tick{Tagged: messages.Tagged{Type: "tick"}, Tick: count}}
		payload, err := messages.EncodeEnvelope(env)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		if err := n.Base.Publish(ctx, channel, payload); err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		count++
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
