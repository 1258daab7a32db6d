// Package user covers accounts, profiles and persisted presence.
package user

import (
	"context"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"

	"evo_chat_server/internal/dao/db/repository"
	myredis "evo_chat_server/internal/dao/redis"
	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/dto/respond"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/auth"
	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"
	"evo_chat_server/pkg/util/random"
)

// OnlineSource node-local view of who is connected.
type OnlineSource interface {
	OnlineIDs() []int64
}

type userService struct {
	repos   *repository.Repositories
	emitter ws.Emitter
	auth    *auth.Service
	blobs   storage.BlobStore
	mirror  *myredis.PresenceMirror // nil without redis
	local   OnlineSource
}

// NewUserService creates the user service. cache may be nil; the online list then comes from
// the local gateway.
func NewUserService(repos *repository.Repositories, emitter ws.Emitter, authSvc *auth.Service,
	blobs storage.BlobStore, cache myredis.CacheService, local OnlineSource) *userService {
	s := &userService{repos: repos, emitter: emitter, auth: authSvc, blobs: blobs, local: local}
	if cache != nil {
		s.mirror = myredis.NewPresenceMirror(cache)
	}
	return s
}

// Register creates an account and draws a free tag for its display name.
func (u *userService) Register(ctx context.Context, req request.RegisterRequest) (*respond.AuthRespond, error) {
	name := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "username cannot be empty")
	}
	if err := u.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}

	var created *model.User
	for attempt := 0; attempt < constants.TAG_MAX_ATTEMPTS; attempt++ {
		tag, err := u.freeTag(ctx, name)
		if err != nil {
			return nil, err
		}
		user := &model.User{DisplayName: name, Tag: tag, Email: email, RawPassword: req.Password}
		err = u.repos.User.Create(ctx, user)
		if err == nil {
			created = user
			break
		}
		if !errorx.IsConflict(err) {
			return nil, err
		}
		// either the email or the (name, tag) pair was taken concurrently
		if err := u.checkEmailFree(ctx, email); err != nil {
			return nil, err
		}
	}
	if created == nil {
		return nil, errorx.New(errorx.CodeConflict, "too many users share this name, pick another one")
	}
	zap.L().Info("user registered", zap.Int64("user_id", created.ID), zap.String("handle", created.Handle()))
	return u.authRespond(ctx, created)
}

// Login checks email and password.
func (u *userService) Login(ctx context.Context, req request.LoginRequest) (*respond.AuthRespond, error) {
	user, err := u.repos.User.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeInvalidPassword, "wrong email or password")
		}
		return nil, err
	}
	if !user.CheckPassword(req.Password) {
		return nil, errorx.New(errorx.CodeInvalidPassword, "wrong email or password")
	}
	return u.authRespond(ctx, user)
}

// Refresh rotates a refresh token.
func (u *userService) Refresh(ctx context.Context, refreshToken string) (*respond.AuthRespond, error) {
	userID, access, refresh, err := u.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := u.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUnauthorized, "account no longer exists")
		}
		return nil, err
	}
	return &respond.AuthRespond{User: respond.FromMe(user), Token: access, RefreshToken: refresh}, nil
}

// Logout revokes the given refresh token.
func (u *userService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	return u.auth.Revoke(ctx, userID, refreshToken)
}

// Me own profile.
func (u *userService) Me(ctx context.Context, userID int64) (*respond.MeInfo, error) {
	user, err := u.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	me := respond.FromMe(user)
	return &me, nil
}

// GetUser public profile of targetID as seen by viewerID.
func (u *userService) GetUser(ctx context.Context, viewerID, targetID int64) (*respond.UserInfo, error) {
	user, err := u.repos.User.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if viewerID != 0 && viewerID != targetID {
		blocked, err := u.repos.Block.Between(ctx, viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if blocked {
			anon := respond.Anonymized(targetID)
			return &anon, nil
		}
	}
	info := respond.FromUser(user)
	return &info, nil
}

// UpdateProfile renames or changes the avatar. A rename keeps the tag when it is free under
// the new name and draws a new one otherwise.
func (u *userService) UpdateProfile(ctx context.Context, userID int64, req request.UpdateProfileRequest) (*respond.MeInfo, error) {
	user, err := u.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return nil, errorx.New(errorx.CodeInvalidParam, "username cannot be empty")
		}
		if name != user.DisplayName {
			updates["display_name"] = name
			if model.NameKeyOf(name) != user.NameKey {
				taken, err := u.repos.User.HandleTaken(ctx, model.NameKeyOf(name), user.Tag)
				if err != nil {
					return nil, err
				}
				if taken {
					tag, err := u.freeTag(ctx, name)
					if err != nil {
						return nil, err
					}
					updates["tag"] = tag
				}
			}
		}
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	return u.applyProfile(ctx, userID, updates)
}

// UploadAvatar stores an image and makes it the avatar.
func (u *userService) UploadAvatar(ctx context.Context, userID int64, file *multipart.FileHeader) (*respond.MeInfo, error) {
	url, err := u.blobs.Save(ctx, storage.KindAvatar, file, storage.ImageMimes...)
	if err != nil {
		return nil, err
	}
	return u.applyProfile(ctx, userID, map[string]any{"avatar_url": url})
}

// ListOnline ids of connected users, cluster-wide with redis, this node otherwise.
func (u *userService) ListOnline(ctx context.Context) ([]int64, error) {
	if u.mirror != nil {
		ids, err := u.mirror.OnlineIDs(ctx)
		if err == nil {
			return ids, nil
		}
		zap.L().Warn("read presence mirror, falling back to local connections", zap.Error(err))
	}
	if u.local == nil {
		return u.repos.User.OnlineIDs(ctx)
	}
	return u.local.OnlineIDs(), nil
}

func (u *userService) applyProfile(ctx context.Context, userID int64, updates map[string]any) (*respond.MeInfo, error) {
	if len(updates) > 0 {
		if err := u.repos.User.UpdateProfile(ctx, userID, updates); err != nil {
			if errorx.IsConflict(err) {
				return nil, errorx.Wrap(err, errorx.CodeConflict, "this name and tag are already taken")
			}
			return nil, err
		}
	}
	user, err := u.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		u.emitter.Emit(ctx, ws.Global(), ws.EventUserProfile, respond.FromUser(user))
	}
	me := respond.FromMe(user)
	return &me, nil
}

func (u *userService) authRespond(ctx context.Context, user *model.User) (*respond.AuthRespond, error) {
	access, refresh, err := u.auth.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &respond.AuthRespond{User: respond.FromMe(user), Token: access, RefreshToken: refresh}, nil
}

func (u *userService) checkEmailFree(ctx context.Context, email string) error {
	_, err := u.repos.User.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return errorx.New(errorx.CodeUserExist, "this email is already registered")
	case errorx.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// freeTag draws random tags until one is unused for name.
func (u *userService) freeTag(ctx context.Context, name string) (string, error) {
	key := model.NameKeyOf(name)
	for i := 0; i < constants.TAG_MAX_ATTEMPTS; i++ {
		tag := random.Discriminator(constants.TAG_DIGITS)
		taken, err := u.repos.User.HandleTaken(ctx, key, tag)
		if err != nil {
			return "", err
		}
		if !taken {
			return tag, nil
		}
	}
	return "", errorx.New(errorx.CodeConflict, "too many users share this name, pick another one")
}
