// Package auth issues and rotates token pairs.
// With redis enabled every refresh token id is registered per user, so logout and rotation
// revoke a single device; without it refresh tokens are only bounded by their expiry.
package auth

import (
	"context"

	"go.uber.org/zap"

	myredis "evo_chat_server/internal/dao/redis"
	"evo_chat_server/pkg/errorx"
	"evo_chat_server/pkg/util/jwt"
)

// Service token issuing and revocation.
type Service struct {
	registry *myredis.TokenRegistry // nil without redis
}

// NewAuthService creates the service; cache may be nil.
func NewAuthService(cache myredis.CacheService) *Service {
	s := &Service{}
	if cache != nil {
		s.registry = myredis.NewTokenRegistry(cache)
	}
	return s
}

// Issue signs a fresh access/refresh pair for userID.
func (s *Service) Issue(ctx context.Context, userID int64) (accessToken, refreshToken string, err error) {
	accessToken, err = jwt.GenerateAccessToken(userID)
	if err != nil {
		zap.L().Error("generate access token", zap.Error(err))
		return "", "", errorx.ErrServerBusy
	}
	refreshToken, tokenID, err := jwt.GenerateRefreshToken(userID)
	if err != nil {
		zap.L().Error("generate refresh token", zap.Error(err))
		return "", "", errorx.ErrServerBusy
	}
	if s.registry != nil {
		if err := s.registry.Register(ctx, userID, tokenID, jwt.RefreshTTL()); err != nil {
			zap.L().Error("register refresh token", zap.Int64("user_id", userID), zap.Error(err))
			return "", "", errorx.Wrap(err, errorx.CodeCacheError, "could not register session")
		}
	}
	return accessToken, refreshToken, nil
}

// Refresh validates refreshToken, revokes it and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (userID int64, accessToken, newRefresh string, err error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return 0, "", "", err
	}
	userID, _ = claims.ID()
	if s.registry != nil {
		ok, err := s.ValidateTokenID(ctx, userID, claims.TokenID)
		if err != nil {
			return 0, "", "", errorx.Wrap(err, errorx.CodeCacheError, "could not check session")
		}
		if !ok {
			return 0, "", "", errorx.New(errorx.CodeUnauthorized, "refresh token was revoked")
		}
		if err := s.registry.Revoke(ctx, userID, claims.TokenID); err != nil {
			return 0, "", "", errorx.Wrap(err, errorx.CodeCacheError, "could not rotate session")
		}
	}
	accessToken, newRefresh, err = s.Issue(ctx, userID)
	return userID, accessToken, newRefresh, err
}

// Revoke invalidates refreshToken if it belongs to userID. Unknown or foreign tokens are
// ignored so logout always succeeds.
func (s *Service) Revoke(ctx context.Context, userID int64, refreshToken string) error {
	if s.registry == nil || refreshToken == "" {
		return nil
	}
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if owner, _ := claims.ID(); owner != userID {
		return nil
	}
	if err := s.registry.Revoke(ctx, userID, claims.TokenID); err != nil {
		return errorx.Wrap(err, errorx.CodeCacheError, "could not revoke session")
	}
	return nil
}

// ValidateTokenID reports whether tokenID is still registered for userID.
func (s *Service) ValidateTokenID(ctx context.Context, userID int64, tokenID string) (bool, error) {
	if s.registry == nil {
		return true, nil
	}
	return s.registry.Valid(ctx, userID, tokenID)
}

func (s *Service) parseRefresh(token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token)
	if err != nil || claims.Subject != jwt.SubjectRefresh || claims.TokenID == "" {
		return nil, errorx.New(errorx.CodeUnauthorized, "invalid refresh token")
	}
	if _, err := claims.ID(); err != nil {
		return nil, errorx.New(errorx.CodeUnauthorized, "invalid refresh token")
	}
	return claims, nil
}
