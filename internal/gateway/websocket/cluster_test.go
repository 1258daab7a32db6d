package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"

	"evo_chat_server/internal/infrastructure/mq"
)

// fanoutBus hands every envelope to every subscriber synchronously, like kafka or nats
// with one consumer group per node.
type fanoutBus struct {
	mu       sync.Mutex
	handlers []mq.Handler
}

func (b *fanoutBus) Publish(ctx context.Context, env *mq.Envelope) error {
	b.mu.Lock()
	hs := append([]mq.Handler(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range hs {
		h(ctx, env)
	}
	return nil
}

func (b *fanoutBus) Subscribe(h mq.Handler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
	return nil
}

func (b *fanoutBus) Close() error { return nil }

func (s *fakeSink) snapshot() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

// twoNodes starts two gateways sharing a bus, a ledger and a sink.
func twoNodes(t *testing.T) (n1, n2 *Gateway, sink *fakeSink) {
	t.Helper()
	bus := &fanoutBus{}
	ledger := NewMemoryLedger()
	sink = &fakeSink{}
	n1 = NewGateway(Options{NodeID: "n1", Bus: bus, Ledger: ledger, Sink: sink})
	n2 = NewGateway(Options{NodeID: "n2", Bus: bus, Ledger: ledger, Sink: sink})
	for _, g := range []*Gateway{n1, n2} {
		if err := g.Start(); err != nil {
			t.Fatal(err)
		}
	}
	return n1, n2, sink
}

func TestOfflineOnlyWhenLastNodeDisconnects(t *testing.T) {
	n1, n2, sink := twoNodes(t)
	observer := NewConn(0, 8)
	n1.Connect(context.Background(), observer)

	phone, laptop := NewConn(7, 8), NewConn(7, 8)
	n1.Connect(context.Background(), phone)
	n2.Connect(context.Background(), laptop)
	if f := nextFrame(t, observer); f.Event != EventUserStatus {
		t.Fatalf("got %s", f.Event)
	}
	assertSilent(t, observer)

	n2.Disconnect(laptop)
	if calls := sink.snapshot(); len(calls) != 1 || !calls[0].online {
		t.Fatalf("user 7 is still connected on n1, sink calls = %+v", calls)
	}
	assertSilent(t, observer)

	n1.Disconnect(phone)
	calls := sink.snapshot()
	if len(calls) != 2 || calls[1] != (sinkCall{7, false}) {
		t.Fatalf("sink calls = %+v", calls)
	}
	if f := nextFrame(t, observer); f.Event != EventUserStatus {
		t.Fatalf("got %s", f.Event)
	}
}

func TestEvictUserReachesEveryNode(t *testing.T) {
	n1, n2, _ := twoNodes(t)
	alice := NewConn(1, 8)
	carolPhone, carolLaptop := NewConn(3, 8), NewConn(3, 8)
	n1.Connect(context.Background(), alice)
	n1.Connect(context.Background(), carolPhone)
	n2.Connect(context.Background(), carolLaptop)
	for _, c := range []*Conn{alice, carolPhone, carolLaptop} {
		drain(c)
	}
	n1.Join(50, alice)
	n1.Join(50, carolPhone)
	n2.Join(50, carolLaptop)

	n1.EvictUser(context.Background(), 50, 3)
	if n1.inRoom(50, carolPhone) || n2.inRoom(50, carolLaptop) {
		t.Fatal("evicted user still holds a room connection")
	}
	if !n1.inRoom(50, alice) {
		t.Fatal("eviction must not touch other members")
	}

	n1.Emit(context.Background(), Room(50), EventNewMessage, map[string]string{"body": "after the kick"})
	nextFrame(t, alice)
	assertSilent(t, carolPhone)
	assertSilent(t, carolLaptop)

	// typing and call signals from the evicted connection are ignored too
	n2.handleFrame(context.Background(), carolLaptop, []byte(`{"type":"typing","conversationId":"50","isTyping":true}`))
	assertSilent(t, alice)
}

func TestEvictUserWithoutBus(t *testing.T) {
	g := NewGateway(Options{})
	c := NewConn(4, 8)
	g.Connect(context.Background(), c)
	g.Join(8, c)
	g.EvictUser(context.Background(), 8, 4)
	if g.inRoom(8, c) {
		t.Fatal("eviction should apply locally without a bus")
	}
	g.Emit(context.Background(), Room(8), EventNewMessage, struct{}{})
	assertSilent(t, c)
}

func TestStartSweepsRefsLeftByThisNode(t *testing.T) {
	ledger := NewMemoryLedger()
	// a previous run of n1 died holding user 9; n2 still holds user 10
	_, _ = ledger.Attach(context.Background(), "n1", 9, "dead")
	_, _ = ledger.Attach(context.Background(), "n2", 10, "alive")

	sink := &fakeSink{}
	g := NewGateway(Options{NodeID: "n1", Ledger: ledger, Sink: sink})
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	calls := sink.snapshot()
	if len(calls) != 1 || calls[0] != (sinkCall{9, false}) {
		t.Fatalf("sink calls = %+v", calls)
	}
	if on, _ := ledger.Online(context.Background(), 10); !on {
		t.Fatal("another node's refs must survive the sweep")
	}
}

func TestCloseDetachesLocalConnections(t *testing.T) {
	ledger := NewMemoryLedger()
	sink := &fakeSink{}
	g := NewGateway(Options{NodeID: "n1", Ledger: ledger, Sink: sink})
	a, b := NewConn(1, 8), NewConn(2, 8)
	g.Connect(context.Background(), a)
	g.Connect(context.Background(), b)

	g.Close()
	for _, uid := range []int64{1, 2} {
		if on, _ := ledger.Online(context.Background(), uid); on {
			t.Fatalf("user %d still online after Close", uid)
		}
	}
	if len(sink.snapshot()) != 4 {
		t.Fatalf("sink calls = %+v", sink.snapshot())
	}
}

type brokenLedger struct{}

var errLedgerDown = errors.New("ledger down")

func (brokenLedger) Attach(context.Context, string, int64, string) (bool, error) {
	return false, errLedgerDown
}

func (brokenLedger) Detach(context.Context, string, int64, string) (bool, error) {
	return false, errLedgerDown
}

func (brokenLedger) Online(context.Context, int64) (bool, error) { return false, errLedgerDown }

func (brokenLedger) Sweep(context.Context, string) ([]int64, error) { return nil, errLedgerDown }

func TestLedgerFailureFallsBackToNodeView(t *testing.T) {
	sink := &fakeSink{}
	g := NewGateway(Options{NodeID: "n1", Ledger: brokenLedger{}, Sink: sink})
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	c := NewConn(6, 8)
	g.Connect(context.Background(), c)
	g.Disconnect(c)
	calls := sink.snapshot()
	if len(calls) != 2 || calls[0] != (sinkCall{6, true}) || calls[1] != (sinkCall{6, false}) {
		t.Fatalf("sink calls = %+v", calls)
	}
}

func TestMemoryLedgerEdges(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	tests := []struct {
		name   string
		op     func() (bool, error)
		want   bool
		online bool
	}{
		{"first ref", func() (bool, error) { return l.Attach(ctx, "n1", 1, "a") }, true, true},
		{"same ref again", func() (bool, error) { return l.Attach(ctx, "n1", 1, "a") }, false, true},
		{"second node", func() (bool, error) { return l.Attach(ctx, "n2", 1, "b") }, false, true},
		{"unknown ref", func() (bool, error) { return l.Detach(ctx, "n2", 1, "zz") }, false, true},
		{"one left", func() (bool, error) { return l.Detach(ctx, "n1", 1, "a") }, false, true},
		{"last ref", func() (bool, error) { return l.Detach(ctx, "n2", 1, "b") }, true, false},
		{"already gone", func() (bool, error) { return l.Detach(ctx, "n2", 1, "b") }, false, false},
	}
	for _, tt := range tests {
		got, err := tt.op()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: edge = %v, want %v", tt.name, got, tt.want)
		}
		if on, _ := l.Online(ctx, 1); on != tt.online {
			t.Fatalf("%s: online = %v, want %v", tt.name, on, tt.online)
		}
	}
}
