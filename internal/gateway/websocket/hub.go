package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"evo_chat_server/internal/config"
	"evo_chat_server/internal/dto/respond"
	"evo_chat_server/internal/infrastructure/mq"

	"go.uber.org/zap"
)

// Gateway session gateway of one node.
// Emit publishes on the bus; the bus subscription delivers to the connections held here.
// Without a bus, Emit delivers locally and synchronously.
//
// Presence has two views. The Tracker knows this node's connections and routes user channel
// frames. The PresenceLedger knows every node's connections and decides the ONLINE/OFFLINE
// edges, which are then persisted and broadcast. When the ledger errors, the node view is
// used for that one edge and the failure is logged.
type Gateway struct {
	nodeID  string
	bus     mq.Bus
	tracker *Tracker
	ledger  PresenceLedger
	sink    PresenceSink
	guard   JoinGuard
	conf    config.GatewayConfig

	mu    sync.RWMutex
	conns map[*Conn]struct{}
	rooms map[int64]map[*Conn]struct{}
}

// Options collaborators of a Gateway; all optional.
type Options struct {
	NodeID string
	Bus    mq.Bus
	Ledger PresenceLedger // defaults to a private MemoryLedger
	Sink   PresenceSink
	Guard  JoinGuard
	Conf   config.GatewayConfig
}

func NewGateway(opts Options) *Gateway {
	ledger := opts.Ledger
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Gateway{
		nodeID:  opts.NodeID,
		bus:     opts.Bus,
		tracker: NewTracker(),
		ledger:  ledger,
		sink:    opts.Sink,
		guard:   opts.Guard,
		conf:    opts.Conf,
		conns:   make(map[*Conn]struct{}),
		rooms:   make(map[int64]map[*Conn]struct{}),
	}
}

// SetPresenceSink and SetJoinGuard wire services created after the gateway.
func (g *Gateway) SetPresenceSink(sink PresenceSink) { g.sink = sink }

func (g *Gateway) SetJoinGuard(guard JoinGuard) { g.guard = guard }

// Start clears what a previous run of this node left in the ledger, then subscribes to the bus.
func (g *Gateway) Start() error {
	g.sweep(context.Background())
	if g.bus == nil {
		return nil
	}
	return g.bus.Subscribe(g.deliver)
}

// Close disconnects every local connection, so their refs leave the ledger before the
// process exits. Call it before closing the bus.
func (g *Gateway) Close() {
	g.mu.RLock()
	conns := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()
	for _, c := range conns {
		g.Disconnect(c)
	}
}

func (g *Gateway) sweep(ctx context.Context) {
	gone, err := g.ledger.Sweep(ctx, g.nodeID)
	if err != nil {
		zap.L().Warn("presence ledger sweep failed", zap.String("node", g.nodeID), zap.Error(err))
		return
	}
	for _, uid := range gone {
		g.presenceChanged(ctx, uid, "")
	}
	if len(gone) > 0 {
		zap.L().Info("stale presence swept", zap.String("node", g.nodeID), zap.Int("users", len(gone)))
	}
}

// Tracker exposes presence state of this node.
func (g *Gateway) Tracker() *Tracker {
	return g.tracker
}

// Connect registers c. An identified connection joins its user channel and, if it is the
// user's first connection anywhere in the cluster, turns the user ONLINE.
// Anonymous connections are presence-inert.
func (g *Gateway) Connect(ctx context.Context, c *Conn) {
	g.mu.Lock()
	g.conns[c] = struct{}{}
	g.mu.Unlock()

	if c.UserID == 0 {
		return
	}
	localFirst := g.tracker.Add(c)
	first, err := g.ledger.Attach(ctx, g.nodeID, c.UserID, c.ID)
	if err != nil {
		zap.L().Warn("presence ledger attach failed, using the node view",
			zap.Int64("user_id", c.UserID), zap.String("conn", c.ID), zap.Error(err))
		first = localFirst
	}
	if first {
		g.presenceChanged(ctx, c.UserID, c.ID)
	}
}

// Join adds c to a conversation room. Idempotent.
func (g *Gateway) Join(conversationID int64, c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.conns[c]; !ok {
		return
	}
	room, ok := g.rooms[conversationID]
	if !ok {
		room = make(map[*Conn]struct{})
		g.rooms[conversationID] = room
	}
	room[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

// Leave removes c from a room.
func (g *Gateway) Leave(conversationID int64, c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaveLocked(conversationID, c)
}

func (g *Gateway) leaveLocked(conversationID int64, c *Conn) {
	if room, ok := g.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(g.rooms, conversationID)
		}
	}
	delete(c.rooms, conversationID)
}

func (g *Gateway) inRoom(conversationID int64, c *Conn) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[conversationID][c]
	return ok
}

// Disconnect tears c down: rooms, user channel and, on the user's last connection in the
// cluster, presence. Safe to call any number of times from any goroutine.
func (g *Gateway) Disconnect(c *Conn) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}

		g.mu.Lock()
		for id := range c.rooms {
			g.leaveLocked(id, c)
		}
		_, known := g.conns[c]
		delete(g.conns, c)
		g.mu.Unlock()

		if !known || c.UserID == 0 {
			return
		}
		ctx := context.Background()
		localLast := g.tracker.Remove(c)
		last, err := g.ledger.Detach(ctx, g.nodeID, c.UserID, c.ID)
		if err != nil {
			zap.L().Warn("presence ledger detach failed, using the node view",
				zap.Int64("user_id", c.UserID), zap.String("conn", c.ID), zap.Error(err))
			last = localLast
		}
		if last {
			g.presenceChanged(ctx, c.UserID, c.ID)
		}
	})
}

// presenceChanged broadcasts the user's state and persists it. The state written is the
// ledger's current one, so a reconnect racing the last disconnect never leaves a stale OFFLINE.
func (g *Gateway) presenceChanged(ctx context.Context, userID int64, connID string) {
	online, err := g.ledger.Online(ctx, userID)
	if err != nil {
		online = g.tracker.IsOnline(userID)
	}
	g.Emit(ctx, Global(), EventUserStatus, respond.UserStatusEvent{UserID: userID, IsOnline: online})

	if g.sink == nil {
		return
	}
	ref := ""
	if online {
		ref = LedgerRef(g.nodeID, connID)
	}
	if err := g.sink.SetOnline(context.WithoutCancel(ctx), userID, online, ref); err != nil {
		zap.L().Warn("presence write failed, state stays stale until reconnect",
			zap.Int64("user_id", userID), zap.Bool("online", online), zap.Error(err))
	}
}

// EvictUser removes every connection of userID from a conversation room, on every node.
// Called when the user stops being a participant; a later join frame is refused by the guard.
func (g *Gateway) EvictUser(ctx context.Context, conversationID, userID int64) {
	data, err := json.Marshal(eviction{UserID: userID})
	if err != nil {
		return
	}
	g.publish(ctx, &mq.Envelope{
		Kind:    mq.KindEvict,
		Target:  conversationID,
		Payload: data,
		Origin:  g.nodeID,
		Ts:      time.Now().UnixMilli(),
	})
}

func (g *Gateway) evictLocal(conversationID, userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.rooms[conversationID] {
		if c.UserID == userID {
			g.leaveLocked(conversationID, c)
		}
	}
}

// Emit sends an event to scope. Failures are logged, never returned.
func (g *Gateway) Emit(ctx context.Context, scope Scope, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("emit: marshal payload", zap.String("event", event), zap.Error(err))
		return
	}
	env := &mq.Envelope{
		Kind:        string(scope.Kind),
		Target:      scope.ID,
		Event:       event,
		Payload:     data,
		ExcludeUser: scope.ExcludeUser,
		Origin:      g.nodeID,
		Ts:          time.Now().UnixMilli(),
	}
	g.publish(ctx, env)
}

func (g *Gateway) publish(ctx context.Context, env *mq.Envelope) {
	if g.bus == nil {
		g.deliver(ctx, env)
		return
	}
	// the write behind this envelope has committed: publish even if the request is gone
	if err := g.bus.Publish(context.WithoutCancel(ctx), env); err != nil {
		zap.L().Warn("emit: publish failed", zap.String("event", env.Event),
			zap.String("scope", env.Kind), zap.Int64("target", env.Target), zap.Error(err))
	}
}

// Typing relays a typing indicator to the other members of the room.
func (g *Gateway) Typing(ctx context.Context, conversationID, userID int64, isTyping bool) {
	scope := Room(conversationID)
	scope.ExcludeUser = userID
	g.Emit(ctx, scope, EventTyping, respond.TypingEvent{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	})
}

// deliver pushes env to the matching local connections.
func (g *Gateway) deliver(_ context.Context, env *mq.Envelope) {
	if env.Kind == mq.KindEvict {
		var ev eviction
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			zap.L().Warn("deliver: malformed eviction", zap.Error(err))
			return
		}
		g.evictLocal(env.Target, ev.UserID)
		return
	}

	frame, err := json.Marshal(outFrame{Event: env.Event, Data: env.Payload})
	if err != nil {
		zap.L().Error("deliver: marshal frame", zap.Error(err))
		return
	}

	var targets []*Conn
	switch ScopeKind(env.Kind) {
	case ScopeRoom:
		g.mu.RLock()
		for c := range g.rooms[env.Target] {
			targets = append(targets, c)
		}
		g.mu.RUnlock()
	case ScopeUser:
		targets = g.tracker.Connections(env.Target)
	case ScopeGlobal:
		g.mu.RLock()
		for c := range g.conns {
			targets = append(targets, c)
		}
		g.mu.RUnlock()
	default:
		zap.L().Warn("deliver: unknown scope", zap.String("kind", env.Kind))
		return
	}

	for _, c := range targets {
		if env.ExcludeUser != 0 && c.UserID == env.ExcludeUser {
			continue
		}
		c.enqueue(frame)
	}
}

// handleFrame processes one inbound client frame.
func (g *Gateway) handleFrame(ctx context.Context, c *Conn, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.sendEvent(EventError, map[string]string{"message": "malformed frame"})
		return
	}
	switch f.Type {
	case FrameJoin:
		if f.ConversationID == 0 {
			return
		}
		if !g.mayJoin(ctx, c, f.ConversationID) {
			c.sendEvent(EventError, map[string]string{"message": "not a participant", "conversationId": formatID(f.ConversationID)})
			return
		}
		g.Join(f.ConversationID, c)
	case FrameLeave:
		g.Leave(f.ConversationID, c)
	case FrameTyping:
		if c.UserID == 0 || !g.inRoom(f.ConversationID, c) {
			return
		}
		g.Typing(ctx, f.ConversationID, c.UserID, f.IsTyping)
	case FrameCallSignal:
		if c.UserID == 0 || !g.inRoom(f.ConversationID, c) {
			return
		}
		scope := Room(f.ConversationID)
		scope.ExcludeUser = c.UserID
		g.Emit(ctx, scope, EventCallSignal, respond.CallSignalEvent{
			ConversationID: f.ConversationID,
			FromUserID:     c.UserID,
			Payload:        f.Payload,
		})
	case FramePing:
		c.sendEvent(EventPong, struct{}{})
	default:
		zap.L().Debug("ws: unknown frame", zap.String("type", f.Type), zap.String("conn", c.ID))
	}
}

func (g *Gateway) mayJoin(ctx context.Context, c *Conn, conversationID int64) bool {
	if g.guard == nil {
		return true
	}
	ok, err := g.guard.IsParticipant(ctx, conversationID, c.UserID)
	if err != nil {
		zap.L().Warn("ws: join check failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return false
	}
	return ok
}
