package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"

	"github.com/bittoy/dataflow/runtime"
)

// qosAtLeastOnce is the QoS level every publish and subscribe uses: the
// runtime's delivery model is "each live node sees every message published
// while it is subscribed", which QoS 1 satisfies without the broker-side
// session bookkeeping QoS 2 would need.
const qosAtLeastOnce = 1

// MQTT is the production Broker, backed by an MQTT connection via
// paho.mqtt.golang. One node or manager instance owns one MQTT connection.
// A node opens one Subscription on it; the manager opens two (heartbeats,
// then shutdown). A lost connection closes only the most recently opened
// Subscription.
type MQTT struct {
	client  mqtt.Client
	connTTL time.Duration

	mu  sync.Mutex
	sub *mqttSubscription
}

// DialMQTT connects to the broker at url (e.g. "tcp://localhost:1883").
// connectTimeout bounds how long the initial handshake may take before it
// is reported as runtime.BrokerUnavailableError.
func DialMQTT(ctx context.Context, url string, connectTimeout time.Duration) (*MQTT, error) {
	clientID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating mqtt client id: %w", err)
	}
	b := &MQTT{connTTL: connectTimeout}
	opts := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID("dataflow-" + clientID.String()).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.mu.Lock()
			sub := b.sub
			b.mu.Unlock()
			if sub != nil {
				sub.closeOnLost()
			}
		})
	b.client = mqtt.NewClient(opts)

	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, &runtime.BrokerUnavailableError{Addr: url, Err: fmt.Errorf("connect timed out after %s", connectTimeout)}
	}
	if err := token.Error(); err != nil {
		return nil, &runtime.BrokerUnavailableError{Addr: url, Err: err}
	}
	return b, nil
}

func (b *MQTT) Ping(ctx context.Context) error {
	if !b.client.IsConnectionOpen() {
		return &runtime.BrokerUnavailableError{Err: fmt.Errorf("connection is not open")}
	}
	return nil
}

func (b *MQTT) Publish(ctx context.Context, channel string, payload []byte) error {
	token := b.client.Publish(channel, qosAtLeastOnce, false, payload)
	if !token.WaitTimeout(b.connTTL) {
		return fmt.Errorf("publish to %q timed out", channel)
	}
	return token.Error()
}

// Subscribe opens a single subscription covering every channel, the way
// every node subscribes to all its declared input channels atomically
// before it starts its event loop.
func (b *MQTT) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	sub := &mqttSubscription{
		client:   b.client,
		channels: append([]string{}, channels...),
		ch:       make(chan Message, 256),
	}
	filters := make(map[string]byte, len(channels))
	for _, c := range channels {
		filters[c] = qosAtLeastOnce
	}
	token := b.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		sub.deliver(Message{Channel: msg.Topic(), Payload: msg.Payload()})
	})
	if !token.WaitTimeout(b.connTTL) {
		return nil, fmt.Errorf("subscribe timed out")
	}
	if err := token.Error(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
	return sub, nil
}

func (b *MQTT) Close(ctx context.Context) error {
	b.client.Disconnect(250)
	return nil
}

type mqttSubscription struct {
	client   mqtt.Client
	channels []string
	ch       chan Message
	once     sync.Once
}

func (s *mqttSubscription) deliver(msg Message) {
	select {
	case s.ch <- msg:
	default:
		// Slow consumer: the event loop is one message at a time by
		// design (spec's single-writer model), so an unbounded
		// backlog here would just hide back-pressure the runtime
		// deliberately does not promise to handle.
	}
}

func (s *mqttSubscription) Messages() <-chan Message { return s.ch }

func (s *mqttSubscription) closeOnLost() {
	s.once.Do(func() { close(s.ch) })
}

func (s *mqttSubscription) Unsubscribe(ctx context.Context) error {
	token := s.client.Unsubscribe(s.channels...)
	token.Wait()
	s.once.Do(func() { close(s.ch) })
	return token.Error()
}
