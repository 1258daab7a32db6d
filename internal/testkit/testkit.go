// Package testkit builds in-memory stores and recording collaborators for service and handler tests.
package testkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"evo_chat_server/internal/config"
	"evo_chat_server/internal/dao/db"
	"evo_chat_server/internal/dao/db/repository"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
)

// NewRepos opens a private in-memory sqlite database with the full schema.
func NewRepos(t testing.TB) *repository.Repositories {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", SqlitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepositories(gdb)
}

// CreateUser inserts a user "name#tag" with password "secret1".
func CreateUser(t testing.TB, repos *repository.Repositories, name, tag string) *model.User {
	t.Helper()
	u := &model.User{
		DisplayName: name,
		Tag:         tag,
		Email:       model.NameKeyOf(name) + tag + "@evo.test",
		RawPassword: "secret1",
	}
	if err := repos.User.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s#%s: %v", name, tag, err)
	}
	return u
}

// MakeFriends stores an accepted friend request between a and b.
func MakeFriends(t testing.TB, repos *repository.Repositories, a, b int64) *model.FriendRequest {
	t.Helper()
	ctx := context.Background()
	req := &model.FriendRequest{SenderID: a, ReceiverID: b, Status: model.FriendPending}
	if err := repos.FriendRequest.Create(ctx, req); err != nil {
		t.Fatalf("create friend request: %v", err)
	}
	if err := repos.FriendRequest.SetStatus(ctx, req.ID, model.FriendAccepted); err != nil {
		t.Fatalf("accept friend request: %v", err)
	}
	req.Status = model.FriendAccepted
	return req
}

// Event one recorded emission.
type Event struct {
	Scope   ws.Scope
	Name    string
	Payload any
}

// Eviction one recorded EvictUser call.
type Eviction struct {
	ConversationID int64
	UserID         int64
}

// Recorder is an Emitter that keeps every event and eviction in memory.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	evictions []Eviction
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, scope ws.Scope, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Scope: scope, Name: event, Payload: payload})
}

func (r *Recorder) EvictUser(_ context.Context, conversationID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions = append(r.evictions, Eviction{ConversationID: conversationID, UserID: userID})
}

// Evictions snapshot of every EvictUser call.
func (r *Recorder) Evictions() []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Eviction(nil), r.evictions...)
}

// Events snapshot of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named events with the given name, in emission order.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// To events with the given name sent to one user channel.
func (r *Recorder) To(userID int64, name string) []Event {
	var out []Event
	for _, e := range r.Named(name) {
		if e.Scope.Kind == ws.ScopeUser && e.Scope.ID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.evictions = nil
	r.mu.Unlock()
}

// Tick sleeps past the sqlite clock resolution so consecutive store timestamps differ.
func Tick() {
	time.Sleep(2 * time.Millisecond)
}
