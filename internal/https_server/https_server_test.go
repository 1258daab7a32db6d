package https_server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"evo_chat_server/internal/config"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/handler"
	"evo_chat_server/internal/https_server"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/service"
	"evo_chat_server/internal/testkit"
	"evo_chat_server/pkg/errorx"
	"evo_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt.Init("router-secret", 60, 24)
	if err := handler.InitTrans("en"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	conf := &config.Config{
		StaticSrcConfig: config.StaticSrcConfig{
			StaticAvatarPath: dir + "/avatars",
			StaticFilePath:   dir + "/files",
		},
	}
	blobs, err := storage.NewLocalStore(conf.StaticSrcConfig)
	if err != nil {
		t.Fatal(err)
	}
	gw := ws.NewGateway(ws.Options{NodeID: "test"})
	svc := service.NewServices(service.Deps{
		Repos:   testkit.NewRepos(t),
		Emitter: gw,
		Blobs:   blobs,
		Online:  gw.Tracker(),
	})
	gw.SetPresenceSink(svc.Presence)
	gw.SetJoinGuard(svc.Conversation)

	return &client{t: t, engine: https_server.Init(conf, handler.NewHandlers(svc, blobs, gw))}
}

// do sends body as JSON and decodes the envelope; out receives data when non-nil.
func (c *client) do(method, path, token string, body any, wantStatus int, out any) envelope {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	if w.Code != wantStatus {
		c.t.Fatalf("%s %s: status %d, want %d, body %s", method, path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		c.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

func (c *client) register(name, email string) respond.AuthRespond {
	c.t.Helper()
	var res respond.AuthRespond
	c.do(http.MethodPost, "/auth/register", "", gin.H{"username": name, "email": email, "password": "secret1"}, http.StatusOK, &res)
	return res
}

func TestAuthGuard(t *testing.T) {
	c := newClient(t)

	env := c.do(http.MethodGet, "/users/me", "", nil, http.StatusUnauthorized, nil)
	if env.Code != errorx.CodeUnauthorized {
		t.Fatalf("code %d", env.Code)
	}

	alice := c.register("Alice", "alice@evo.test")
	// refresh tokens never open the API
	c.do(http.MethodGet, "/users/me", alice.RefreshToken, nil, http.StatusUnauthorized, nil)

	var me respond.MeInfo
	c.do(http.MethodGet, "/users/me", alice.Token, nil, http.StatusOK, &me)
	if me.ID != alice.User.ID || me.Email != "alice@evo.test" {
		t.Fatalf("unexpected me %+v", me)
	}

	var login respond.AuthRespond
	c.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@evo.test", "password": "secret1"}, http.StatusOK, &login)
	c.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@evo.test", "password": "nope"}, http.StatusUnauthorized, nil)

	var rotated respond.AuthRespond
	c.do(http.MethodPost, "/auth/refresh", "", gin.H{"refreshToken": login.RefreshToken}, http.StatusOK, &rotated)
	if rotated.Token == "" {
		t.Fatal("refresh should return a new access token")
	}
}

func TestParamErrors(t *testing.T) {
	c := newClient(t)
	alice := c.register("Alice", "alice@evo.test")

	env := c.do(http.MethodPost, "/auth/register", "", gin.H{"username": "x", "email": "not-an-email", "password": "secret1"}, http.StatusBadRequest, nil)
	fields, ok := env.Msg.(map[string]any)
	if !ok || fields["email"] == nil {
		t.Fatalf("expected a translated email error, got %v", env.Msg)
	}

	c.do(http.MethodGet, "/users/abc", alice.Token, nil, http.StatusBadRequest, nil)
	c.do(http.MethodPost, "/messages", alice.Token, gin.H{"conversationId": "abc", "content": "hi"}, http.StatusBadRequest, nil)
	c.do(http.MethodGet, "/users/424242", alice.Token, nil, http.StatusNotFound, nil)
}

func TestFriendshipToConversation(t *testing.T) {
	c := newClient(t)
	alice := c.register("Alice", "alice@evo.test")
	bob := c.register("Bob", "bob@evo.test")

	// strangers cannot talk
	var created respond.ConversationCreated
	c.do(http.MethodPost, "/conversations", alice.Token, gin.H{"participantIds": []string{jsonID(bob.User.ID)}}, http.StatusForbidden, nil)

	c.do(http.MethodPost, "/friend_requests", alice.Token, gin.H{"targetIdentifier": bob.User.Handle}, http.StatusOK, nil)

	var pending respond.FriendRequestsRespond
	c.do(http.MethodGet, "/friend_requests", bob.Token, nil, http.StatusOK, &pending)
	if len(pending.Incoming) != 1 || pending.Incoming[0].Direction != "incoming" {
		t.Fatalf("bob should see one incoming request: %+v", pending)
	}
	c.do(http.MethodPost, "/friend_requests/"+jsonID(pending.Incoming[0].ID)+"/respond", bob.Token, gin.H{"status": "accepted"}, http.StatusOK, nil)

	var friends []respond.FriendInfo
	c.do(http.MethodGet, "/friends", alice.Token, nil, http.StatusOK, &friends)
	if len(friends) != 1 || friends[0].ID != bob.User.ID {
		t.Fatalf("unexpected friends %+v", friends)
	}

	// acceptance opened the direct conversation; creating it again returns the same one
	var convs []respond.ConversationItem
	c.do(http.MethodGet, "/conversations", alice.Token, nil, http.StatusOK, &convs)
	if len(convs) != 1 || convs[0].IsGroup {
		t.Fatalf("expected one direct conversation, got %+v", convs)
	}
	c.do(http.MethodPost, "/conversations", alice.Token, gin.H{"participantIds": []string{jsonID(bob.User.ID)}}, http.StatusOK, &created)
	if created.ConversationID != convs[0].ID {
		t.Fatalf("direct conversation not reused: %d vs %d", created.ConversationID, convs[0].ID)
	}
	convPath := "/conversations/" + jsonID(created.ConversationID)

	var sent respond.MessageInfo
	c.do(http.MethodPost, "/messages", alice.Token, gin.H{"conversationId": jsonID(created.ConversationID), "content": "salut"}, http.StatusOK, &sent)
	if sent.Body != "salut" || sent.Type != "text" {
		t.Fatalf("unexpected message %+v", sent)
	}

	var history []respond.MessageInfo
	c.do(http.MethodGet, convPath+"/messages", bob.Token, nil, http.StatusOK, &history)
	if len(history) == 0 || history[len(history)-1].ID != sent.ID {
		t.Fatalf("history should end with the sent message: %+v", history)
	}

	var read respond.ReadRespond
	c.do(http.MethodPost, convPath+"/read", bob.Token, nil, http.StatusOK, &read)
	if read.Count < 1 {
		t.Fatalf("read count %d", read.Count)
	}
	c.do(http.MethodPost, convPath+"/read", bob.Token, nil, http.StatusOK, &read)
	if read.Count != 0 {
		t.Fatalf("second read should be a no-op, got %d", read.Count)
	}

	var reactions respond.ReactionsRespond
	c.do(http.MethodPost, "/messages/"+jsonID(sent.ID)+"/react", bob.Token, gin.H{"emoji": "👍"}, http.StatusOK, &reactions)

	// only the sender edits
	c.do(http.MethodPut, "/messages/"+jsonID(sent.ID), bob.Token, gin.H{"content": "hack"}, http.StatusForbidden, nil)
	c.do(http.MethodPut, "/messages/"+jsonID(sent.ID), alice.Token, gin.H{"content": "salut !"}, http.StatusOK, nil)

	// blocking makes the conversation ineligible
	c.do(http.MethodPost, "/users/block", bob.Token, gin.H{"userId": jsonID(alice.User.ID)}, http.StatusOK, nil)
	c.do(http.MethodPost, "/messages", alice.Token, gin.H{"conversationId": jsonID(created.ConversationID), "content": "?"}, http.StatusForbidden, nil)

	var blocked []respond.BlockedInfo
	c.do(http.MethodGet, "/users/blocked", bob.Token, nil, http.StatusOK, &blocked)
	if len(blocked) != 1 {
		t.Fatalf("blocked list %+v", blocked)
	}
}

func TestOnlineList(t *testing.T) {
	c := newClient(t)
	alice := c.register("Alice", "alice@evo.test")

	var online respond.OnlineUsersRespond
	c.do(http.MethodGet, "/users/online", alice.Token, nil, http.StatusOK, &online)
	if online.UserIDs == nil || len(online.UserIDs) != 0 {
		t.Fatalf("no websocket is connected, got %v", online.UserIDs)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
