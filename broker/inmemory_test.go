package broker

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishSubscribe(t *testing.T) {
	hub := NewHub()
	pub := hub.Dial()
	sub := hub.Dial()

	ctx := context.Background()
	subscription, err := sub.Subscribe(ctx, "chan-a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := pub.Publish(ctx, "chan-a", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-subscription.Messages():
		if msg.Channel != "chan-a" || string(msg.Payload) != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryFiltersUnwantedChannels(t *testing.T) {
	hub := NewHub()
	pub := hub.Dial()
	sub := hub.Dial()

	ctx := context.Background()
	subscription, err := sub.Subscribe(ctx, "chan-a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := pub.Publish(ctx, "chan-b", []byte("noise")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-subscription.Messages():
		t.Fatalf("did not expect a message on an unsubscribed channel, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	sub := hub.Dial()

	ctx := context.Background()
	subscription, err := sub.Subscribe(ctx, "chan-a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := subscription.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	_, ok := <-subscription.Messages()
	if ok {
		t.Fatal("expected Messages() channel to be closed after Unsubscribe")
	}
}

func TestInMemoryPing(t *testing.T) {
	hub := NewHub()
	conn := hub.Dial()
	if err := conn.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
