package websocket

import (
	"context"
	"strings"
	"sync"
)

// PresenceLedger cluster-wide connection refs per user. The ONLINE and OFFLINE edges come
// from here, not from the node-local Tracker: a user is OFFLINE only when no node holds a
// connection for them.
type PresenceLedger interface {
	// Attach records node/connID for userID; first is true when it is the user's only ref.
	Attach(ctx context.Context, node string, userID int64, connID string) (first bool, err error)
	// Detach drops the ref; last is true when the user has no ref left on any node.
	// Detaching an unknown ref reports false.
	Detach(ctx context.Context, node string, userID int64, connID string) (last bool, err error)
	Online(ctx context.Context, userID int64) (bool, error)
	// Sweep drops every ref a node left behind (crash, kill -9) and returns the users
	// that went OFFLINE because of it.
	Sweep(ctx context.Context, node string) ([]int64, error)
}

// LedgerRef member stored for one connection.
func LedgerRef(node, connID string) string {
	return node + "/" + connID
}

// MemoryLedger in-process PresenceLedger. Gateways sharing one instance behave as one cluster.
type MemoryLedger struct {
	mu   sync.Mutex
	refs map[int64]map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{refs: make(map[int64]map[string]struct{})}
}

func (l *MemoryLedger) Attach(_ context.Context, node string, userID int64, connID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.refs[userID]
	if !ok {
		set = make(map[string]struct{})
		l.refs[userID] = set
	}
	ref := LedgerRef(node, connID)
	if _, dup := set[ref]; dup {
		return false, nil
	}
	set[ref] = struct{}{}
	return len(set) == 1, nil
}

func (l *MemoryLedger) Detach(_ context.Context, node string, userID int64, connID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.refs[userID]
	if !ok {
		return false, nil
	}
	ref := LedgerRef(node, connID)
	if _, ok := set[ref]; !ok {
		return false, nil
	}
	delete(set, ref)
	if len(set) == 0 {
		delete(l.refs, userID)
		return true, nil
	}
	return false, nil
}

func (l *MemoryLedger) Online(_ context.Context, userID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.refs[userID]) > 0, nil
}

func (l *MemoryLedger) Sweep(_ context.Context, node string) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := node + "/"
	var gone []int64
	for uid, set := range l.refs {
		for ref := range set {
			if strings.HasPrefix(ref, prefix) {
				delete(set, ref)
			}
		}
		if len(set) == 0 {
			delete(l.refs, uid)
			gone = append(gone, uid)
		}
	}
	return gone, nil
}
