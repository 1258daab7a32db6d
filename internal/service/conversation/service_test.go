package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"evo_chat_server/internal/dao/db/repository"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/message"
	"evo_chat_server/internal/service/reaction"
	"evo_chat_server/internal/testkit"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
)

func newService(t *testing.T) (*repository.Repositories, *testkit.Recorder, *conversationService) {
	t.Helper()
	repos := testkit.NewRepos(t)
	rec := testkit.NewRecorder()
	return repos, rec, NewConversationService(repos, rec)
}

func send(t *testing.T, repos *repository.Repositories, rec *testkit.Recorder, convID, senderID int64, body string) {
	t.Helper()
	svc := message.NewMessageService(repos, rec, reaction.NewReactionService(repos, rec))
	if _, err := svc.Send(context.Background(), message.SendInput{ConversationID: convID, SenderID: senderID, Body: body}); err != nil {
		t.Fatalf("send %q: %v", body, err)
	}
}

func TestCreateDirectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")

	first, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateDirect: %v", err)
	}
	second, err := svc.CreateDirect(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("CreateDirect again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same conversation, got %d and %d", first.ID, second.ID)
	}
	n, err := repos.Message.CountByConversation(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one welcome message, got %d", n)
	}
	latest, _ := repos.Message.Latest(ctx, first.ID)
	if latest.Body != constants.WELCOME_MESSAGE || latest.SenderID != nil {
		t.Fatalf("unexpected welcome message %+v", latest)
	}
	if len(rec.To(alice.ID, ws.EventConversationAdded)) != 1 || len(rec.To(bob.ID, ws.EventConversationAdded)) != 1 {
		t.Fatalf("both users should get conversation_added once")
	}
	if len(rec.To(bob.ID, ws.EventConversationUpdated)) != 1 {
		t.Fatalf("reopening should signal conversation_updated")
	}
}

func TestCreateDirectReopensClearedConversation(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	conv, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	testkit.Tick()
	if err := svc.Clear(ctx, conv.ID, alice.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if list, _ := svc.ListForUser(ctx, alice.ID); len(list) != 0 {
		t.Fatalf("cleared conversation should be hidden, got %d", len(list))
	}
	if _, err := svc.CreateDirect(ctx, alice.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := svc.ListForUser(ctx, alice.ID); len(list) != 1 {
		t.Fatalf("reopened conversation should be visible again")
	}
}

func TestCreateRequiresEligibility(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")

	_, err := svc.Create(ctx, alice.ID, "", []int64{bob.ID})
	if errorx.GetCode(err) != errorx.CodeNotEligible {
		t.Fatalf("expected eligibility error, got %v", err)
	}

	testkit.MakeFriends(t, repos, alice.ID, bob.ID)
	conv, err := svc.Create(ctx, alice.ID, "", []int64{bob.ID, alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("Create after friendship: %v", err)
	}
	if conv.IsGroup || conv.DirectKey == nil {
		t.Fatalf("expected a direct conversation, got %+v", conv)
	}
}

func TestClearHidesUntilNextMessage(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	testkit.MakeFriends(t, repos, alice.ID, bob.ID)
	conv, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	send(t, repos, rec, conv.ID, bob.ID, "salut")
	testkit.Tick()

	if err := svc.Clear(ctx, conv.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	if ev := rec.Evictions(); len(ev) != 0 {
		t.Fatalf("clearing keeps alice a participant, got evictions %+v", ev)
	}
	if list, _ := svc.ListForUser(ctx, alice.ID); len(list) != 0 {
		t.Fatalf("alice cleared the conversation, got %d entries", len(list))
	}
	if list, _ := svc.ListForUser(ctx, bob.ID); len(list) != 1 {
		t.Fatalf("bob's view must not change")
	}
	if n, _ := repos.Message.CountByConversation(ctx, conv.ID); n != 2 {
		t.Fatalf("clear must not delete messages, have %d", n)
	}

	testkit.Tick()
	send(t, repos, rec, conv.ID, bob.ID, "tu es là ?")
	list, err := svc.ListForUser(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("a new message should bring the conversation back")
	}
	item := list[0]
	if item.LastMessage == nil || item.LastMessage.Body != "tu es là ?" {
		t.Fatalf("unexpected preview %+v", item.LastMessage)
	}
	if item.Name != "Bob" || item.OtherUserID == nil || *item.OtherUserID != bob.ID {
		t.Fatalf("direct entry should show the counterpart, got %+v", item)
	}
	if item.UnreadCount != 2 || item.MemberCount != 2 {
		t.Fatalf("unread=%d members=%d", item.UnreadCount, item.MemberCount)
	}
}

func TestClearRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	eve := testkit.CreateUser(t, repos, "Eve", "6666")
	conv, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx, conv.ID, eve.ID); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Clear(ctx, 42, alice.ID); !errorx.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListAnonymizesBlockedCounterpart(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	if _, err := svc.CreateDirect(ctx, alice.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if err := repos.User.SetPresence(ctx, bob.ID, true, "conn-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := repos.User.UpdateProfile(ctx, bob.ID, map[string]any{"avatar_url": "https://cdn/bob.png"}); err != nil {
		t.Fatal(err)
	}

	list, _ := svc.ListForUser(ctx, alice.ID)
	if !list[0].IsOnline || list[0].AvatarURL == "" {
		t.Fatalf("expected live profile before the block, got %+v", list[0])
	}

	if _, err := repos.Block.Insert(ctx, &model.Block{BlockerID: bob.ID, BlockedID: alice.ID}); err != nil {
		t.Fatal(err)
	}
	list, _ = svc.ListForUser(ctx, alice.ID)
	got := list[0]
	if got.Name != constants.ANONYMOUS_DISPLAY_NAME || got.AvatarURL != "" || got.IsOnline {
		t.Fatalf("expected anonymized entry, got %+v", got)
	}
}

func TestListOrdersByLastActivity(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	carol := testkit.CreateUser(t, repos, "Carol", "1234")
	testkit.MakeFriends(t, repos, alice.ID, bob.ID)

	withBob, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	testkit.Tick()
	group, err := svc.CreateGroup(ctx, alice.ID, "Projet", []int64{bob.ID, carol.ID})
	if err != nil {
		t.Fatal(err)
	}
	list, _ := svc.ListForUser(ctx, alice.ID)
	if len(list) != 2 || list[0].ID != group.ID {
		t.Fatalf("newest conversation first, got %+v", list)
	}
	if list[0].Role != string(model.RoleAdmin) || list[0].MemberCount != 3 {
		t.Fatalf("group entry role=%s members=%d", list[0].Role, list[0].MemberCount)
	}

	testkit.Tick()
	send(t, repos, rec, withBob.ID, bob.ID, "coucou")
	list, _ = svc.ListForUser(ctx, alice.ID)
	if list[0].ID != withBob.ID {
		t.Fatalf("conversation with the latest message should come first")
	}
}

func TestDestroyGroup(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	carol := testkit.CreateUser(t, repos, "Carol", "1234")
	group, err := svc.CreateGroup(ctx, alice.ID, "Projet", []int64{bob.ID, carol.ID})
	if err != nil {
		t.Fatal(err)
	}
	send(t, repos, rec, group.ID, bob.ID, "hello")

	if err := svc.Destroy(ctx, group.ID, bob.ID); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("only admins destroy, got %v", err)
	}
	rec.Reset()
	if err := svc.Destroy(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	for _, u := range []*model.User{alice, bob, carol} {
		if len(rec.To(u.ID, ws.EventConversationRemoved)) != 1 {
			t.Fatalf("user %s should get conversation_removed", u.DisplayName)
		}
	}
	if ev := rec.Evictions(); len(ev) != 3 {
		t.Fatalf("every former member leaves the room, got %+v", ev)
	}
	if n, _ := repos.Message.CountByConversation(ctx, group.ID); n != 0 {
		t.Fatalf("messages left after destroy: %d", n)
	}
	if _, err := repos.Conversation.FindByID(ctx, group.ID); !errorx.IsNotFound(err) {
		t.Fatalf("conversation row should be gone, got %v", err)
	}
	if ids, _ := repos.Participant.UserIDs(ctx, group.ID); len(ids) != 0 {
		t.Fatalf("participants left: %v", ids)
	}
}

func TestDestroyRejectsDirect(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	conv, _ := svc.CreateDirect(ctx, alice.ID, bob.ID)
	if err := svc.Destroy(ctx, conv.ID, alice.ID); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("direct conversations cannot be destroyed, got %v", err)
	}
}

func TestMembershipChanges(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	carol := testkit.CreateUser(t, repos, "Carol", "1234")
	dave := testkit.CreateUser(t, repos, "Dave", "9999")
	group, err := svc.CreateGroup(ctx, alice.ID, "", []int64{bob.ID})
	if err != nil {
		t.Fatal(err)
	}
	if group.Name == "" {
		t.Fatal("an unnamed group gets a derived name")
	}

	rec.Reset()
	if err := svc.AddMembers(ctx, group.ID, bob.ID, []int64{carol.ID, alice.ID}); err != nil {
		t.Fatalf("AddMembers: %v", err)
	}
	if len(rec.To(carol.ID, ws.EventConversationAdded)) != 1 || len(rec.To(alice.ID, ws.EventConversationUpdated)) != 1 {
		t.Fatalf("new member gets conversation_added, others conversation_updated")
	}
	latest, _ := repos.Message.Latest(ctx, group.ID)
	if latest.Body != "Bob a ajouté Carol" {
		t.Fatalf("unexpected system message %q", latest.Body)
	}

	rec.Reset()
	if err := svc.AddMembers(ctx, group.ID, bob.ID, []int64{carol.ID}); err != nil {
		t.Fatal(err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("adding existing members is a no-op")
	}

	if err := svc.RemoveMember(ctx, group.ID, bob.ID, carol.ID); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("members cannot remove others, got %v", err)
	}
	if err := svc.RemoveMember(ctx, group.ID, alice.ID, dave.ID); !errorx.IsNotFound(err) {
		t.Fatalf("removing a non member should be not found, got %v", err)
	}
	rec.Reset()
	if err := svc.RemoveMember(ctx, group.ID, alice.ID, carol.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if len(rec.To(carol.ID, ws.EventConversationRemoved)) != 1 {
		t.Fatalf("removed member should be told")
	}
	if ev := rec.Evictions(); len(ev) != 1 || ev[0] != (testkit.Eviction{ConversationID: group.ID, UserID: carol.ID}) {
		t.Fatalf("removed member should leave the room, got %+v", ev)
	}

	name := "Équipe"
	if err := svc.UpdateGroup(ctx, group.ID, bob.ID, &name, nil); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("only admins rename, got %v", err)
	}
	if err := svc.UpdateGroup(ctx, group.ID, alice.ID, &name, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := repos.Conversation.FindByID(ctx, group.ID)
	if got.Name != name {
		t.Fatalf("rename not stored: %q", got.Name)
	}
}

func TestLeavePromotesAndDeletesEmptyGroup(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	carol := testkit.CreateUser(t, repos, "Carol", "1234")
	group, err := svc.CreateGroup(ctx, alice.ID, "Projet", []int64{bob.ID, carol.ID})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Leave(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if ev := rec.Evictions(); len(ev) != 1 || ev[0].UserID != alice.ID {
		t.Fatalf("leaver should leave the room, got %+v", ev)
	}
	p, err := repos.Participant.Find(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != model.RoleAdmin {
		t.Fatalf("earliest member should be promoted, bob is %s", p.Role)
	}
	latest, _ := repos.Message.Latest(ctx, group.ID)
	if latest.Body != "Alice a quitté le groupe" {
		t.Fatalf("unexpected system message %q", latest.Body)
	}

	if err := svc.Leave(ctx, group.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Leave(ctx, group.ID, carol.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Conversation.FindByID(ctx, group.ID); !errorx.IsNotFound(err) {
		t.Fatalf("empty group should be deleted, got %v", err)
	}
}

func TestIsParticipant(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newService(t)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	conv, _ := svc.CreateDirect(ctx, alice.ID, bob.ID)

	if ok, err := svc.IsParticipant(ctx, conv.ID, alice.ID); err != nil || !ok {
		t.Fatalf("alice is a participant: %v %v", ok, err)
	}
	if ok, _ := svc.IsParticipant(ctx, conv.ID, 0); ok {
		t.Fatal("anonymous connections are never participants")
	}
}

func TestRemovedMemberStopsReceivingRoomEvents(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	gw := ws.NewGateway(ws.Options{NodeID: "n1"})
	svc := NewConversationService(repos, gw)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")
	carol := testkit.CreateUser(t, repos, "Carol", "1234")
	group, err := svc.CreateGroup(ctx, alice.ID, "Projet", []int64{bob.ID, carol.ID})
	if err != nil {
		t.Fatal(err)
	}

	carolConn := ws.NewConn(carol.ID, 64)
	gw.Connect(ctx, carolConn)
	gw.Join(group.ID, carolConn)

	if err := svc.RemoveMember(ctx, group.ID, alice.ID, carol.ID); err != nil {
		t.Fatal(err)
	}
	drainFrames(carolConn)

	msgSvc := message.NewMessageService(repos, gw, reaction.NewReactionService(repos, gw))
	if _, err := msgSvc.Send(ctx, message.SendInput{ConversationID: group.ID, SenderID: alice.ID, Body: "secret after kick"}); err != nil {
		t.Fatal(err)
	}
	for {
		select {
		case raw := <-carolConn.Outbound():
			if strings.Contains(string(raw), "secret after kick") {
				t.Fatalf("removed member received %s", raw)
			}
		default:
			return
		}
	}
}

func drainFrames(c *ws.Conn) {
	for {
		select {
		case <-c.Outbound():
		default:
			return
		}
	}
}

func TestClearMarkerAgainstLastActivity(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration // clear marker relative to the last message
		visible bool
	}{
		{"cleared before the message", -time.Microsecond, true},
		{"same microsecond, the message wins", 0, true},
		{"cleared after the message", time.Microsecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repos, _, svc := newService(t)
			alice := testkit.CreateUser(t, repos, "Alice", "0001")
			bob := testkit.CreateUser(t, repos, "Bob", "4412")
			conv, err := svc.CreateDirect(ctx, alice.ID, bob.ID)
			if err != nil {
				t.Fatal(err)
			}
			at := conv.CreatedAt.Add(time.Second).Truncate(time.Microsecond)
			msg := &model.Message{ConversationID: conv.ID, SenderID: &bob.ID, Body: "salut", Type: model.TypeText, CreatedAt: at}
			if err := repos.Message.Create(ctx, msg); err != nil {
				t.Fatal(err)
			}
			if err := repos.Participant.SetClearedAt(ctx, conv.ID, alice.ID, at.Add(tt.offset)); err != nil {
				t.Fatal(err)
			}

			list, err := svc.ListForUser(ctx, alice.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got := len(list) == 1; got != tt.visible {
				t.Fatalf("visible = %v, want %v", got, tt.visible)
			}
		})
	}
}
