package mq

import (
	"context"
	"testing"
	"time"

	"evo_chat_server/internal/config"
)

// nothing listens on port 1; the reader keeps failing to reach a broker
func unreachableKafka() config.BusConfig {
	return config.BusConfig{
		MessageMode:      "kafka",
		KafkaHostPort:    "127.0.0.1:1",
		KafkaTopic:       "evo-test",
		KafkaGroupPrefix: "evo-test",
		Timeout:          1,
	}
}

func TestKafkaBusCloseWaitsForConsumer(t *testing.T) {
	bus := NewKafkaBus(unreachableKafka(), "n1")
	if err := bus.Subscribe(func(context.Context, *Envelope) {}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Subscribe(func(context.Context, *Envelope) {}); err == nil {
		t.Fatal("a second subscribe should be refused")
	}

	closed := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case <-bus.done:
	default:
		t.Fatal("Close returned while the consumer goroutine was still running")
	}
}

func TestKafkaBusCloseWithoutSubscribe(t *testing.T) {
	bus := NewKafkaBus(unreachableKafka(), "n1")
	closed := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a consumer that never started")
	}
}

func TestPartitionKeyGroupsEvictionsWithTheirRoom(t *testing.T) {
	room := partitionKey(&Envelope{Kind: "room", Target: 42})
	evict := partitionKey(&Envelope{Kind: KindEvict, Target: 42})
	if room != evict {
		t.Fatalf("room key %q, eviction key %q", room, evict)
	}
	if user := partitionKey(&Envelope{Kind: "user", Target: 42}); user == room {
		t.Fatalf("user channel shares the room key %q", user)
	}
}
