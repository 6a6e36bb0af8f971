package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittoy/dataflow/broker"
	"github.com/bittoy/dataflow/messages"
	"github.com/bittoy/dataflow/metrics"
	"github.com/bittoy/dataflow/runtime"
)

// heartbeatInterval is how often a live node publishes on its heartbeat
// channel; the manager treats a node as HealthNoResponse once it has missed
// several of these in a row.
const heartbeatInterval = time.Second

// Base implements the construct/Enter/event-loop/Exit lifecycle shared by
// every reference node. A concrete node type embeds *Base and supplies its
// own HandleEvent; NewBase takes that node (as an EventHandler) so Base.Run
// can dispatch back into it.
//
// Construction never touches the network: Enter is the first call that
// pings the broker, subscribes to the declared input channels, and starts
// the heartbeat goroutine. Exit, guaranteed by its caller via defer, always
// cancels the heartbeat, unsubscribes, and closes the broker connection —
// in that order — regardless of how the event loop ended.
type Base struct {
	name    string
	inputs  []runtime.ChannelSpec
	outputs []runtime.ChannelSpec
	admissibleIn map[string][]string

	registry *messages.Registry
	brk      broker.Broker
	logger   zerolog.Logger
	handler  EventHandler

	sub             broker.Subscription
	cancelHeartbeat context.CancelFunc
	wg              sync.WaitGroup
}

// NewBase validates the declared channel types against reg and returns a
// Base ready to Enter. handler is normally the concrete node embedding this
// Base, passed in before that struct's own fields (including the Base
// pointer) are fully assigned — Go allows this because handler.HandleEvent
// is not invoked until Run, by which point construction has finished.
func NewBase(
	name string,
	inputs, outputs []runtime.ChannelSpec,
	reg *messages.Registry,
	brk broker.Broker,
	logger zerolog.Logger,
	handler EventHandler,
) (*Base, error) {
	admissibleIn := make(map[string][]string, len(inputs))
	for _, spec := range inputs {
		for _, tag := range spec.Tags {
			if !reg.Has(tag) {
				return nil, runtime.NewConfigurationError(name, fmt.Errorf("input channel %q declares unregistered data model %q", spec.Channel, tag))
			}
		}
		admissibleIn[spec.Channel] = spec.Tags
	}
	for _, spec := range outputs {
		for _, tag := range spec.Tags {
			if !reg.Has(tag) {
				return nil, runtime.NewConfigurationError(name, fmt.Errorf("output channel %q declares unregistered data model %q", spec.Channel, tag))
			}
		}
	}
	return &Base{
		name:         name,
		inputs:       inputs,
		outputs:      outputs,
		admissibleIn: admissibleIn,
		registry:     reg,
		brk:          brk,
		logger:       logger.With().Str("node", name).Logger(),
		handler:      handler,
	}, nil
}

func (b *Base) Name() string { return b.name }

// Registry returns the data-model registry this node decodes against, for
// nodes (like rest_api) that need to decode a payload outside the normal
// envelope path.
func (b *Base) Registry() *messages.Registry { return b.registry }

// Publish lets a node push an output outside the normal
// decode-handle-publish cycle — TickNode's self-driven timers,
// ListenerNode's capture loop and SpecialPrintNode's shutdown signal all
// publish without returning the message from HandleEvent.
func (b *Base) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.brk.Publish(ctx, channel, payload); err != nil {
		return err
	}
	metrics.ObservePublish(b.name, channel)
	return nil
}

// InputChannelTypes returns the node's declared input channels in
// declaration order.
func (b *Base) InputChannelTypes() []runtime.ChannelSpec { return b.inputs }

// OutputChannelTypes returns the node's declared output channels in
// declaration order.
func (b *Base) OutputChannelTypes() []runtime.ChannelSpec { return b.outputs }

// Enter pings the broker, subscribes to every input channel in one call,
// and starts the heartbeat goroutine.
func (b *Base) Enter(ctx context.Context) error {
	if err := b.brk.Ping(ctx); err != nil {
		return fmt.Errorf("node %q: %w", b.name, err)
	}
	channels := make([]string, 0, len(b.inputs))
	for _, spec := range b.inputs {
		channels = append(channels, spec.Channel)
	}
	sub, err := b.brk.Subscribe(ctx, channels...)
	if err != nil {
		return fmt.Errorf("node %q: subscribing: %w", b.name, err)
	}
	b.sub = sub

	hbCtx, cancel := context.WithCancel(context.Background())
	b.cancelHeartbeat = cancel
	b.wg.Add(1)
	go b.runHeartbeat(hbCtx)

	b.logger.Debug().Msg("node entered")
	return nil
}

// Exit cancels the heartbeat goroutine, unsubscribes, and closes the broker
// connection. It tolerates being called after a failed or partial Enter.
func (b *Base) Exit(ctx context.Context) error {
	if b.cancelHeartbeat != nil {
		b.cancelHeartbeat()
	}
	b.wg.Wait()
	if b.sub != nil {
		if err := b.sub.Unsubscribe(ctx); err != nil {
			b.logger.Warn().Err(err).Msg("unsubscribe failed during exit")
		}
	}
	if err := b.brk.Close(ctx); err != nil {
		return fmt.Errorf("node %q: closing broker: %w", b.name, err)
	}
	b.logger.Debug().Msg("node exited")
	return nil
}

// Run is the event loop: decode one message against its channel's
// admissible tag-set, dispatch it to the handler, and publish whatever
// outputs come back, in order, before waiting on the next message.
func (b *Base) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-b.sub.Messages():
			if !ok {
				return &runtime.BrokerDisconnectedError{Node: b.name, Err: fmt.Errorf("subscription closed")}
			}
			admissible, declared := b.admissibleIn[msg.Channel]
			if !declared {
				b.logger.Warn().Str("channel", msg.Channel).Msg("dropping message on undeclared channel")
				continue
			}
			env, err := messages.DecodeEnvelope(msg.Payload, b.registry, admissible)
			if err != nil {
				var mismatch *runtime.SchemaMismatchError
				if errors.As(err, &mismatch) {
					mismatch.Node = b.name
					mismatch.Channel = msg.Channel
				}
				return err
			}
			handleStart := time.Now()
			outputs, handleErr := b.handler.HandleEvent(ctx, msg.Channel, env)
			metrics.ObserveHandler(b.name, handleStart, handleErr)
			if handleErr != nil {
				if errors.Is(handleErr, runtime.ErrNodeExitSignal) {
					b.logger.Info().Msg("handler requested exit")
					return nil
				}
				return &runtime.HandlerError{Node: b.name, Err: handleErr}
			}
			for _, out := range outputs {
				payload, err := messages.EncodeEnvelope(out.Envelope)
				if err != nil {
					return &runtime.HandlerError{Node: b.name, Err: fmt.Errorf("encoding output for %q: %w", out.Channel, err)}
				}
				if err := b.brk.Publish(ctx, out.Channel, payload); err != nil {
					return fmt.Errorf("node %q: publishing to %q: %w", b.name, out.Channel, err)
				}
				metrics.ObservePublish(b.name, out.Channel)
			}
		}
	}
}

func (b *Base) runHeartbeat(ctx context.Context) {
	defer b.wg.Done()
	channel := "heartbeat:" + b.name
	env := &messages.Envelope{Data: &messages.Zero{Tagged: messages.Tagged{Type: "zero"}}}
	payload, err := messages.EncodeEnvelope(env)
	if err != nil {
		b.logger.Error().Err(err).Msg("encoding heartbeat payload")
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		if err := b.brk.Publish(ctx, channel, payload); err != nil && ctx.Err() == nil {
			b.logger.Warn().Err(err).Msg("heartbeat publish failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
