package middleware

import (
	"strings"

	"evo_chat_server/pkg/errorx"
	"evo_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// ContextUserID gin context key holding the authenticated user id as int64.
const ContextUserID = "user_id"

// JWTAuth requires a valid access token in "Authorization: Bearer <token>" and stores the
// user id in the context.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing or malformed bearer token")
			return
		}
		userID, err := AccessUserID(token)
		if err != nil {
			abortUnauthorized(c, "token expired or invalid, please sign in again")
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// OptionalJWT sets the user id when a valid access token is present and lets the request
// through either way.
func OptionalJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if userID, err := AccessUserID(token); err == nil {
				c.Set(ContextUserID, userID)
			}
		}
		c.Next()
	}
}

// AccessUserID parses an access token and returns its user id. Refresh tokens are rejected.
func AccessUserID(token string) (int64, error) {
	claims, err := jwt.ParseToken(token)
	if err != nil {
		return 0, err
	}
	if claims.Subject != jwt.SubjectAccess {
		return 0, errorx.New(errorx.CodeUnauthorized, "not an access token")
	}
	return claims.ID()
}

// UserID the authenticated caller, 0 when absent.
func UserID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(errorx.HTTPStatus(errorx.CodeUnauthorized), gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
		"data": nil,
	})
}
