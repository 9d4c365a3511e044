package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coachportal/internal/model"
	"coachportal/internal/service"
	apperr "coachportal/pkg/errors"
	"coachportal/pkg/jwt"
	"coachportal/pkg/response"
)

// Blacklist reports revoked token ids. *redis.Client implements it.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth verifies the Bearer access token and injects user_id, token_jti
// and token_exp. A nil blacklist skips the revocation check.
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "token invalid or expired")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "wrong token type")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail open: Redis is optional.
				logger.Warn("blacklist check failed", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "token revoked")
				c.Abort()
				return
			}
		}

		c.Set("user_id", claims.AccountID)
		c.Set("token_jti", claims.ID)
		c.Set("token_exp", claims.ExpiresAt.Time)

		c.Next()
	}
}

// RoleAuth loads the caller's profile and requires one of allowedRoles.
// The role comes from the stored profile, not from the token.
func RoleAuth(gate service.AccessGate, allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := &service.Session{AccountID: c.GetString("user_id"), TokenID: c.GetString("token_jti")}
		profile, err := gate.Resolve(c.Request.Context(), sess)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthenticated) {
				response.Unauthorized(c, 10002, err.Error())
			} else {
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if profile.Role == r {
				c.Set("role", string(profile.Role))
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "your role does not allow this action")
		c.Abort()
	}
}
