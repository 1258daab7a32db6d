package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"evo_chat_server/internal/config"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsBus fanout over a core NATS subject. Core subscriptions without a queue group deliver
// every message to every node.
type NatsBus struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNatsBus connects to natsServers.
func NewNatsBus(conf config.BusConfig, nodeID string) (*NatsBus, error) {
	if len(conf.NatsServers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	timeout := conf.Timeout * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	nc, err := nats.Connect(strings.Join(conf.NatsServers, ","),
		nats.Name("evo-gateway-"+nodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NatsBus{nc: nc, subject: conf.NatsSubject}, nil
}

func (b *NatsBus) Publish(ctx context.Context, env *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

func (b *NatsBus) Subscribe(h Handler) error {
	sub, err := b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			zap.L().Warn("nats: drop malformed envelope", zap.Error(err))
			return
		}
		h(context.Background(), &env)
	})
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	b.sub = sub
	return nil
}

func (b *NatsBus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.nc.Drain()
}

func formatTarget(id int64) string {
	return strconv.FormatInt(id, 10)
}
