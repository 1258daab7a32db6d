package websocket

import (
	"sort"
	"sync"
)

// Tracker Presence Tracker: user id -> live connections on this node.
// Add and Remove report the OFFLINE->ONLINE and ONLINE->OFFLINE edges under one lock,
// so concurrent connects and disconnects of one user from several devices cannot both
// observe "first" or both observe "last".
type Tracker struct {
	mu    sync.Mutex
	conns map[int64]map[*Conn]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{conns: make(map[int64]map[*Conn]struct{})}
}

// Add registers c; first is true when c is the user's only connection.
func (t *Tracker) Add(c *Conn) (first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.conns[c.UserID]
	if !ok {
		set = make(map[*Conn]struct{})
		t.conns[c.UserID] = set
	}
	set[c] = struct{}{}
	return len(set) == 1
}

// Remove drops c; last is true when the user has no connection left.
// Removing an unknown connection reports false.
func (t *Tracker) Remove(c *Conn) (last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.conns[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(t.conns, c.UserID)
		return true
	}
	return false
}

func (t *Tracker) IsOnline(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns[userID]) > 0
}

// Connections snapshot of userID's connections.
func (t *Tracker) Connections(userID int64) []*Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.conns[userID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// OnlineIDs users with at least one connection here, ascending.
func (t *Tracker) OnlineIDs() []int64 {
	t.mu.Lock()
	ids := make([]int64, 0, len(t.conns))
	for id := range t.conns {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
