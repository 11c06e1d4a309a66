package middleware

import (
	stdErrors "errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/logger"
	"github.com/qualitrack/qualitrack/pkg/response"
)

// RequirePermission admits the request only when the authenticated user holds resource:action
// at the required scope or broader. Every failure denies: an unresolvable decision answers 503,
// a plain denial 403.
func RequirePermission(checker *permissions.Checker, resource, action string, scope permissions.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		allowed, err := checker.Check(c.Request.Context(), userID, resource, action, scope)
		if err != nil {
			abortUnavailable(c, err, zap.String("resource", resource), zap.String("action", action))
			return
		}
		if !allowed {
			response.Abort(c, errors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireHierarchy admits the request only when the user's role sits at or above level.
func RequireHierarchy(checker *permissions.Checker, level int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		ok, err := checker.HasHierarchyAtLeast(c.Request.Context(), userID, level)
		if err != nil {
			abortUnavailable(c, err, zap.Int("level", level))
			return
		}
		if !ok {
			response.Abort(c, errors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abortUnavailable(c *gin.Context, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("path", c.FullPath()), zap.Error(err))
	logger.WithModule("authz").Warn("authorization decision failed", fields...)

	if stdErrors.Is(err, permissions.ErrStoreUnavailable) {
		response.Abort(c, errors.ErrAuthorizationUnavailable)
		return
	}
	response.Abort(c, errors.ErrForbidden)
}
