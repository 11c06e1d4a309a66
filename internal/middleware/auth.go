package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/auditctx"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    claims.UserID,
			Username:  claims.Username,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// UserID returns the authenticated principal's id, or 0 when the request is anonymous.
func UserID(c *gin.Context) uint {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
