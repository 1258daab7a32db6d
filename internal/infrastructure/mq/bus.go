// Package mq is the cross-node fanout transport of the session gateway.
// Every node publishes committed events as envelopes and every node consumes all envelopes,
// delivering each one to the connections it holds locally.
package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"evo_chat_server/internal/config"
)

// Envelope one realtime event addressed to a room, a user channel or everyone.
type Envelope struct {
	Kind        string          `json:"kind"` // room | user | global
	Target      int64           `json:"target,string"`
	Event       string          `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	ExcludeUser int64           `json:"excludeUser,string,omitempty"`
	Origin      string          `json:"origin"` // publishing node
	Ts          int64           `json:"ts"`     // unix millis
}

// KindEvict control envelope: drop a user's connections from the room named by Target.
// Payload carries the user.
const KindEvict = "evict"

// partitionKey keeps a room's events and its evictions on one ordered stream.
func partitionKey(env *Envelope) string {
	kind := env.Kind
	if kind == KindEvict {
		kind = "room"
	}
	return kind + ":" + formatTarget(env.Target)
}

// Handler consumes one envelope. It must not block for long: it runs on the bus consumer goroutine.
type Handler func(ctx context.Context, env *Envelope)

// Bus publish/subscribe transport.
type Bus interface {
	Publish(ctx context.Context, env *Envelope) error
	// Subscribe starts consumption in the background; call once.
	Subscribe(h Handler) error
	Close() error
}

// New builds the bus selected by busConfig.messageMode.
func New(conf config.BusConfig, nodeID string) (Bus, error) {
	switch conf.MessageMode {
	case "", "channel":
		return NewChannelBus(0), nil
	case "kafka":
		return NewKafkaBus(conf, nodeID), nil
	case "nats":
		return NewNatsBus(conf, nodeID)
	default:
		return nil, fmt.Errorf("unknown bus mode %q", conf.MessageMode)
	}
}
