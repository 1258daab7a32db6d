package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evo_chat_server/internal/config"

	"github.com/gorilla/websocket"
)

// heartbeatServer serves user 7 with a one second ping and a two second idle timeout.
func heartbeatServer(t *testing.T) (*Gateway, *fakeSink, string) {
	t.Helper()
	sink := &fakeSink{}
	g := NewGateway(Options{
		NodeID: "n1",
		Sink:   sink,
		Conf:   config.GatewayConfig{PingInterval: 1, PongWait: 2, WriteWait: 1},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Serve(w, r, 7); err != nil {
			t.Logf("upgrade: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return g, sink, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, within time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestSilentClientTimesOut(t *testing.T) {
	g, sink, url := heartbeatServer(t)
	// never reading means pings are never answered
	dial(t, url)

	if !waitFor(t, time.Second, func() bool { return g.Tracker().IsOnline(7) }) {
		t.Fatal("connection never registered")
	}
	if !waitFor(t, 5*time.Second, func() bool { return !g.Tracker().IsOnline(7) }) {
		t.Fatal("idle connection was not dropped after the pong deadline")
	}
	calls := sink.snapshot()
	if len(calls) != 2 || calls[0] != (sinkCall{7, true}) || calls[1] != (sinkCall{7, false}) {
		t.Fatalf("timeout should fire the offline edge, sink calls = %+v", calls)
	}
}

func TestAnsweringClientStaysConnected(t *testing.T) {
	g, sink, url := heartbeatServer(t)
	conn := dial(t, url)
	// the default ping handler answers while the read loop runs
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !waitFor(t, time.Second, func() bool { return g.Tracker().IsOnline(7) }) {
		t.Fatal("connection never registered")
	}
	time.Sleep(3500 * time.Millisecond)
	if !g.Tracker().IsOnline(7) {
		t.Fatal("pongs should extend the read deadline")
	}
	if calls := sink.snapshot(); len(calls) != 1 {
		t.Fatalf("sink calls = %+v", calls)
	}
}

func TestClientCloseDisconnects(t *testing.T) {
	g, sink, url := heartbeatServer(t)
	conn := dial(t, url)
	if !waitFor(t, time.Second, func() bool { return g.Tracker().IsOnline(7) }) {
		t.Fatal("connection never registered")
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	if !waitFor(t, 2*time.Second, func() bool { return len(sink.snapshot()) == 2 }) {
		t.Fatalf("close should fire the offline edge, sink calls = %+v", sink.snapshot())
	}
}

func TestDurationsDefaults(t *testing.T) {
	tests := []struct {
		name              string
		conf              config.GatewayConfig
		ping, pong, write time.Duration
	}{
		{"zero", config.GatewayConfig{}, 30 * time.Second, 60 * time.Second, 10 * time.Second},
		{"pong not above ping", config.GatewayConfig{PingInterval: 5, PongWait: 5}, 5 * time.Second, 10 * time.Second, 10 * time.Second},
		{"explicit", config.GatewayConfig{PingInterval: 1, PongWait: 2, WriteWait: 1}, time.Second, 2 * time.Second, time.Second},
	}
	for _, tt := range tests {
		g := NewGateway(Options{Conf: tt.conf})
		ping, pong, write := g.durations()
		if ping != tt.ping || pong != tt.pong || write != tt.write {
			t.Fatalf("%s: got %v %v %v", tt.name, ping, pong, write)
		}
	}
}
