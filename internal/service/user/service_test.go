package user

import (
	"context"
	"mime/multipart"
	"testing"

	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/auth"
	"evo_chat_server/internal/testkit"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
	"evo_chat_server/pkg/util/jwt"
)

type fakeBlobs struct {
	kind  storage.Kind
	mimes []string
}

func (f *fakeBlobs) Save(_ context.Context, kind storage.Kind, _ *multipart.FileHeader, allowedMimes ...string) (string, error) {
	f.kind = kind
	f.mimes = allowedMimes
	return "https://cdn.example.com/static/avatars/a.png", nil
}

type fixedOnline []int64

func (f fixedOnline) OnlineIDs() []int64 { return f }

func newService(t *testing.T, local OnlineSource) (*repository.Repositories, *testkit.Recorder, *userService, *fakeBlobs) {
	t.Helper()
	jwt.Init("test-secret", 60, 24)
	repos := testkit.NewRepos(t)
	rec := testkit.NewRecorder()
	blobs := &fakeBlobs{}
	return repos, rec, NewUserService(repos, rec, auth.NewAuthService(nil), blobs, nil, local), blobs
}

func register(t *testing.T, svc *userService, name, email string) *respond.AuthRespond {
	t.Helper()
	res, err := svc.Register(context.Background(), request.RegisterRequest{Username: name, Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

func TestRegisterAssignsTag(t *testing.T) {
	ctx := context.Background()
	_, _, svc, _ := newService(t, nil)

	res := register(t, svc, "  Zoé ", "Zoe@Evo.Test")
	if res.Token == "" || res.RefreshToken == "" {
		t.Fatal("register should log the user in")
	}
	if res.User.DisplayName != "Zoé" || res.User.Email != "zoe@evo.test" {
		t.Fatalf("unexpected profile %+v", res.User)
	}
	if len(res.User.Tag) != constants.TAG_DIGITS || res.User.Handle != "Zoé#"+res.User.Tag {
		t.Fatalf("bad tag %q handle %q", res.User.Tag, res.User.Handle)
	}

	other := register(t, svc, "zoé", "zoe2@evo.test")
	if other.User.Tag == res.User.Tag {
		t.Fatal("two users with the same name need different tags")
	}

	_, err := svc.Register(ctx, request.RegisterRequest{Username: "Zoé", Email: "ZOE@evo.test", Password: "secret1"})
	if errorx.GetCode(err) != errorx.CodeUserExist {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	_, _, svc, _ := newService(t, nil)
	register(t, svc, "Alice", "alice@evo.test")

	if _, err := svc.Login(ctx, request.LoginRequest{Email: "alice@evo.test", Password: "wrong"}); errorx.GetCode(err) != errorx.CodeInvalidPassword {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := svc.Login(ctx, request.LoginRequest{Email: "nobody@evo.test", Password: "secret1"}); errorx.GetCode(err) != errorx.CodeInvalidPassword {
		t.Fatalf("unknown email should look like a bad password: %v", err)
	}
	res, err := svc.Login(ctx, request.LoginRequest{Email: " ALICE@evo.test", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := jwt.ParseToken(res.Token)
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := claims.ID(); id != res.User.ID {
		t.Fatalf("token subject %d, user %d", id, res.User.ID)
	}
}

func TestRefreshWithoutRegistry(t *testing.T) {
	ctx := context.Background()
	_, _, svc, _ := newService(t, nil)
	res := register(t, svc, "Alice", "alice@evo.test")

	refreshed, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.User.ID != res.User.ID || refreshed.RefreshToken == "" {
		t.Fatalf("unexpected refresh result %+v", refreshed)
	}
	if _, err := svc.Refresh(ctx, res.Token); errorx.GetCode(err) != errorx.CodeUnauthorized {
		t.Fatalf("an access token is not a refresh token: %v", err)
	}
	if err := svc.Logout(ctx, res.User.ID, res.RefreshToken); err != nil {
		t.Fatalf("logout always succeeds: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repos, rec, svc, _ := newService(t, nil)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	testkit.CreateUser(t, repos, "Alicia", "0001")

	name := "Alicia"
	me, err := svc.UpdateProfile(ctx, alice.ID, request.UpdateProfileRequest{Username: &name})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if me.DisplayName != "Alicia" || me.Tag == "0001" {
		t.Fatalf("taken handle should draw a new tag, got %s", me.Handle)
	}
	events := rec.Named(ws.EventUserProfile)
	if len(events) != 1 || events[0].Scope.Kind != ws.ScopeGlobal {
		t.Fatalf("expected one global profile event, got %+v", events)
	}
	if p := events[0].Payload.(respond.UserInfo); p.DisplayName != "Alicia" {
		t.Fatalf("event payload %+v", p)
	}

	keep := "ALICIA"
	again, err := svc.UpdateProfile(ctx, alice.ID, request.UpdateProfileRequest{Username: &keep})
	if err != nil {
		t.Fatal(err)
	}
	if again.Tag != me.Tag {
		t.Fatalf("a case change keeps the tag, %s became %s", me.Tag, again.Tag)
	}

	blank := " "
	if _, err := svc.UpdateProfile(ctx, alice.ID, request.UpdateProfileRequest{Username: &blank}); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("blank name: %v", err)
	}

	rec.Reset()
	if _, err := svc.UpdateProfile(ctx, alice.ID, request.UpdateProfileRequest{}); err != nil {
		t.Fatal(err)
	}
	if len(rec.Events()) != 0 {
		t.Fatal("an empty update must not broadcast")
	}
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	repos, _, svc, blobs := newService(t, nil)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")

	me, err := svc.UploadAvatar(ctx, alice.ID, &multipart.FileHeader{Filename: "a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if blobs.kind != storage.KindAvatar || len(blobs.mimes) == 0 {
		t.Fatalf("avatar uploads are images, got kind=%v mimes=%v", blobs.kind, blobs.mimes)
	}
	if me.AvatarURL != "https://cdn.example.com/static/avatars/a.png" {
		t.Fatalf("avatar url %q", me.AvatarURL)
	}
}

func TestGetUserAnonymizesBlocked(t *testing.T) {
	ctx := context.Background()
	repos, _, svc, _ := newService(t, nil)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")

	info, err := svc.GetUser(ctx, alice.ID, bob.ID)
	if err != nil || info.DisplayName != "Bob" {
		t.Fatalf("GetUser = %+v, %v", info, err)
	}
	if _, err := repos.Block.Insert(ctx, &model.Block{BlockerID: alice.ID, BlockedID: bob.ID}); err != nil {
		t.Fatal(err)
	}
	info, _ = svc.GetUser(ctx, alice.ID, bob.ID)
	if info.DisplayName != constants.ANONYMOUS_DISPLAY_NAME || info.ID != bob.ID {
		t.Fatalf("blocked profile %+v", info)
	}
	if _, err := svc.GetUser(ctx, alice.ID, 999); !errorx.IsNotFound(err) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestPresenceAndOnlineList(t *testing.T) {
	ctx := context.Background()
	repos, _, _, _ := newService(t, nil)
	alice := testkit.CreateUser(t, repos, "Alice", "0001")
	bob := testkit.CreateUser(t, repos, "Bob", "4412")

	recorder := NewPresenceRecorder(repos, nil)
	if err := recorder.SetOnline(ctx, alice.ID, true, "conn-a"); err != nil {
		t.Fatal(err)
	}
	u, _ := repos.User.FindByID(ctx, alice.ID)
	if !u.IsOnline {
		t.Fatal("presence should be stored")
	}

	fromDB := NewUserService(repos, testkit.NewRecorder(), auth.NewAuthService(nil), &fakeBlobs{}, nil, nil)
	ids, err := fromDB.ListOnline(ctx)
	if err != nil || len(ids) != 1 || ids[0] != alice.ID {
		t.Fatalf("online from the store = %v, %v", ids, err)
	}

	fromGateway := NewUserService(repos, testkit.NewRecorder(), auth.NewAuthService(nil), &fakeBlobs{}, nil, fixedOnline{bob.ID})
	ids, _ = fromGateway.ListOnline(ctx)
	if len(ids) != 1 || ids[0] != bob.ID {
		t.Fatalf("online from the gateway = %v", ids)
	}

	if err := recorder.SetOnline(ctx, alice.ID, false, ""); err != nil {
		t.Fatal(err)
	}
	u, _ = repos.User.FindByID(ctx, alice.ID)
	if u.IsOnline || u.LastSeenAt == nil {
		t.Fatalf("offline transition should stamp last seen, got %+v", u)
	}
}
