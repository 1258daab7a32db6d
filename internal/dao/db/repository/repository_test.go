package repository_test

import (
	"context"
	"testing"
	"time"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/testkit"
	"evo_chat_server/pkg/errorx"
)

func newGroup(t *testing.T, repos *repository.Repositories, members ...int64) *model.Conversation {
	t.Helper()
	ctx := context.Background()
	now, err := repos.Now(ctx)
	if err != nil {
		t.Fatal(err)
	}
	conv := &model.Conversation{Name: "g", IsGroup: true, CreatedAt: now}
	if err := repos.Conversation.Create(ctx, conv); err != nil {
		t.Fatal(err)
	}
	var parts []*model.Participant
	for _, id := range members {
		parts = append(parts, &model.Participant{ConversationID: conv.ID, UserID: id, Role: model.RoleMember, JoinedAt: now})
	}
	if _, err := repos.Participant.Add(ctx, parts); err != nil {
		t.Fatal(err)
	}
	return conv
}

func newMessage(t *testing.T, repos *repository.Repositories, convID, senderID int64, body string) *model.Message {
	t.Helper()
	ctx := context.Background()
	now, err := repos.Now(ctx)
	if err != nil {
		t.Fatal(err)
	}
	msg := &model.Message{ConversationID: convID, SenderID: &senderID, Body: body, Type: model.TypeText, CreatedAt: now}
	if err := repos.Message.Create(ctx, msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestUserConflictsMapToCode(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	testkit.CreateUser(t, repos, "Bob", "4412")

	dupHandle := &model.User{DisplayName: "BOB", Tag: "4412", Email: "other@evo.test", RawPassword: "secret1"}
	if err := repos.User.Create(ctx, dupHandle); !errorx.IsConflict(err) {
		t.Fatalf("same name key and tag: %v", err)
	}
	dupEmail := &model.User{DisplayName: "Robert", Tag: "0001", Email: "bob4412@evo.test", RawPassword: "secret1"}
	if err := repos.User.Create(ctx, dupEmail); !errorx.IsConflict(err) {
		t.Fatalf("same email: %v", err)
	}
	if _, err := repos.User.FindByHandle(ctx, "bob", "4412"); err != nil {
		t.Fatalf("lookup by name key: %v", err)
	}
	if _, err := repos.User.FindByID(ctx, 1); !errorx.IsNotFound(err) {
		t.Fatalf("missing row: %v", err)
	}
}

func TestParticipantAddSkipsExisting(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	b := testkit.CreateUser(t, repos, "B", "0002")
	conv := newGroup(t, repos, a.ID)

	now := time.Now().UTC()
	n, err := repos.Participant.Add(ctx, []*model.Participant{
		{ConversationID: conv.ID, UserID: a.ID, Role: model.RoleMember, JoinedAt: now},
		{ConversationID: conv.ID, UserID: b.ID, Role: model.RoleMember, JoinedAt: now},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("only b is new, got %d", n)
	}
	counts, _ := repos.Participant.CountByConversations(ctx, []int64{conv.ID})
	if counts[conv.ID] != 2 {
		t.Fatalf("member count %d", counts[conv.ID])
	}
}

func TestReadMarksAndCounts(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	b := testkit.CreateUser(t, repos, "B", "0002")
	c := testkit.CreateUser(t, repos, "C", "0003")
	conv := newGroup(t, repos, a.ID, b.ID, c.ID)
	msg := newMessage(t, repos, conv.ID, a.ID, "hello")

	mark := func(userID int64) *model.ReadMark {
		return &model.ReadMark{MessageID: msg.ID, UserID: userID, ConversationID: conv.ID, ReadAt: time.Now().UTC()}
	}
	n, err := repos.ReadMark.InsertBatch(ctx, []*model.ReadMark{mark(a.ID), mark(b.ID)})
	if err != nil || n != 2 {
		t.Fatalf("first batch = %d, %v", n, err)
	}
	n, err = repos.ReadMark.InsertBatch(ctx, []*model.ReadMark{mark(b.ID), mark(c.ID)})
	if err != nil || n != 1 {
		t.Fatalf("second batch = %d, %v", n, err)
	}

	counts, err := repos.ReadMark.ReadCounts(ctx, []int64{msg.ID})
	if err != nil {
		t.Fatal(err)
	}
	if counts[msg.ID] != 2 {
		t.Fatalf("the sender's own mark must not count, got %d", counts[msg.ID])
	}

	unread, _ := repos.Message.UnreadCounts(ctx, c.ID, []int64{conv.ID})
	if unread[conv.ID] != 0 {
		t.Fatalf("c has read everything, unread=%d", unread[conv.ID])
	}
	newMessage(t, repos, conv.ID, b.ID, "again")
	unread, _ = repos.Message.UnreadCounts(ctx, c.ID, []int64{conv.ID})
	if unread[conv.ID] != 1 {
		t.Fatalf("one new message for c, unread=%d", unread[conv.ID])
	}
}

func TestMessagePage(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	conv := newGroup(t, repos, a.ID)
	var msgs []*model.Message
	for _, body := range []string{"1", "2", "3", "4"} {
		msgs = append(msgs, newMessage(t, repos, conv.ID, a.ID, body))
	}

	page, err := repos.Message.Page(ctx, conv.ID, nil, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 3 || page[0].Body != "4" || page[2].Body != "2" {
		t.Fatalf("newest first page %+v", page)
	}
	page, _ = repos.Message.Page(ctx, conv.ID, nil, msgs[1], 3)
	if len(page) != 1 || page[0].Body != "1" {
		t.Fatalf("page before the cursor %+v", page)
	}
	after := msgs[1].CreatedAt
	page, _ = repos.Message.Page(ctx, conv.ID, &after, nil, 10)
	for _, m := range page {
		if !m.CreatedAt.After(after) {
			t.Fatalf("message %q is not after the lower bound", m.Body)
		}
	}
}

func TestMarkDeletedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	conv := newGroup(t, repos, a.ID)
	msg := newMessage(t, repos, conv.ID, a.ID, "bye")

	first := time.Now().UTC()
	changed, err := repos.Message.MarkDeleted(ctx, msg.ID, first)
	if err != nil || !changed {
		t.Fatalf("first delete = %v, %v", changed, err)
	}
	changed, err = repos.Message.MarkDeleted(ctx, msg.ID, first.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("second delete = %v, %v", changed, err)
	}
	stored, _ := repos.Message.FindByID(ctx, msg.ID)
	if stored.DeletedAt == nil || !stored.DeletedAt.Equal(first) {
		t.Fatalf("deleted_at moved: %v", stored.DeletedAt)
	}
}

func TestRejectedRequestReleasesPair(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	b := testkit.CreateUser(t, repos, "B", "0002")

	req := &model.FriendRequest{SenderID: a.ID, ReceiverID: b.ID, Status: model.FriendPending}
	if err := repos.FriendRequest.Create(ctx, req); err != nil {
		t.Fatal(err)
	}
	reverse := &model.FriendRequest{SenderID: b.ID, ReceiverID: a.ID, Status: model.FriendPending}
	if err := repos.FriendRequest.Create(ctx, reverse); !errorx.IsConflict(err) {
		t.Fatalf("a live pair blocks a second request: %v", err)
	}
	if err := repos.FriendRequest.SetStatus(ctx, req.ID, model.FriendRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.FriendRequest.FindActive(ctx, a.ID, b.ID); !errorx.IsNotFound(err) {
		t.Fatalf("rejected requests are not active: %v", err)
	}
	reverse = &model.FriendRequest{SenderID: b.ID, ReceiverID: a.ID, Status: model.FriendPending}
	if err := repos.FriendRequest.Create(ctx, reverse); err != nil {
		t.Fatalf("pair should be free after rejection: %v", err)
	}
}

func TestBlocks(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	b := testkit.CreateUser(t, repos, "B", "0002")
	c := testkit.CreateUser(t, repos, "C", "0003")

	added, err := repos.Block.Insert(ctx, &model.Block{BlockerID: a.ID, BlockedID: b.ID})
	if err != nil || !added {
		t.Fatalf("insert = %v, %v", added, err)
	}
	added, _ = repos.Block.Insert(ctx, &model.Block{BlockerID: a.ID, BlockedID: b.ID})
	if added {
		t.Fatal("a repeated block is not new")
	}
	if between, _ := repos.Block.Between(ctx, b.ID, a.ID); !between {
		t.Fatal("Between is symmetric")
	}
	among, _ := repos.Block.BlockedAmong(ctx, b.ID, []int64{a.ID, c.ID})
	if !among[a.ID] || among[c.ID] {
		t.Fatalf("BlockedAmong %v", among)
	}
}

func TestEditBodySkipsDeleted(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	conv := newGroup(t, repos, a.ID)
	msg := newMessage(t, repos, conv.ID, a.ID, "draft")

	at := time.Now().UTC()
	if ok, err := repos.Message.EditBody(ctx, msg.ID, "final", at); err != nil || !ok {
		t.Fatalf("edit live message = %v, %v", ok, err)
	}
	if _, err := repos.Message.MarkDeleted(ctx, msg.ID, at); err != nil {
		t.Fatal(err)
	}
	if ok, err := repos.Message.EditBody(ctx, msg.ID, "too late", at); err != nil || ok {
		t.Fatalf("edit after delete = %v, %v", ok, err)
	}
	if ok, _ := repos.Message.EditBody(ctx, 424242, "ghost", at); ok {
		t.Fatal("unknown message reported as edited")
	}
	stored, _ := repos.Message.FindByID(ctx, msg.ID)
	if stored.Body != "final" {
		t.Fatalf("deleted message body changed to %q", stored.Body)
	}
}

func TestLatestByConversations(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	busy := newGroup(t, repos, a.ID)
	quiet := newGroup(t, repos, a.ID)
	empty := newGroup(t, repos, a.ID)

	newMessage(t, repos, busy.ID, a.ID, "one")
	testkit.Tick()
	want := newMessage(t, repos, busy.ID, a.ID, "two")
	only := newMessage(t, repos, quiet.ID, a.ID, "alone")

	// same timestamp: the higher id wins, as in Latest
	tied := &model.Message{ConversationID: quiet.ID, SenderID: &a.ID, Body: "tied", Type: model.TypeText, CreatedAt: only.CreatedAt}
	if err := repos.Message.Create(ctx, tied); err != nil {
		t.Fatal(err)
	}

	latest, err := repos.Message.LatestByConversations(ctx, []int64{busy.ID, quiet.ID, empty.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected two entries, got %d", len(latest))
	}
	if latest[busy.ID].ID != want.ID {
		t.Fatalf("busy latest = %q", latest[busy.ID].Body)
	}
	single, _ := repos.Message.Latest(ctx, quiet.ID)
	if latest[quiet.ID].ID != single.ID {
		t.Fatalf("batched latest %d disagrees with Latest %d", latest[quiet.ID].ID, single.ID)
	}
	if _, ok := latest[empty.ID]; ok {
		t.Fatal("a conversation without messages has no latest")
	}
}

func TestCounterparts(t *testing.T) {
	ctx := context.Background()
	repos := testkit.NewRepos(t)
	a := testkit.CreateUser(t, repos, "A", "0001")
	b := testkit.CreateUser(t, repos, "B", "0002")
	c := testkit.CreateUser(t, repos, "C", "0003")
	withB := newGroup(t, repos, a.ID, b.ID)
	withC := newGroup(t, repos, a.ID, c.ID)
	alone := newGroup(t, repos, a.ID)

	got, err := repos.Participant.Counterparts(ctx, a.ID, []int64{withB.ID, withC.ID, alone.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got[withB.ID] != b.ID || got[withC.ID] != c.ID {
		t.Fatalf("counterparts = %v", got)
	}
	if _, ok := got[alone.ID]; ok {
		t.Fatal("a conversation with nobody else has no counterpart")
	}
}
