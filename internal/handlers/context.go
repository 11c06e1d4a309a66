package handlers

import (
	"context"
	stdErrors "errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/logger"
	"github.com/qualitrack/qualitrack/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user, writing a 401 when there is none.
func currentUserID(c *gin.Context) (uint, bool) {
	id := middleware.UserID(c)
	if id == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return 0, false
	}
	return id, true
}

// uintParam parses a positive numeric path parameter, writing a 400 when it is malformed.
func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		response.Error(c, errors.NewBadRequest(name+" must be a positive integer"))
		return 0, false
	}
	return uint(value), true
}

// writeError renders service failures. Engine store failures surface as 503 without detail,
// per-item validation failures as 400; anything that is not already an AppError is logged
// and hidden behind a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case stdErrors.Is(err, permissions.ErrStoreUnavailable):
		logger.WithModule("http").Warn("permission store unavailable",
			zap.String("route", c.FullPath()), zap.Error(err))
		response.Error(c, errors.ErrAuthorizationUnavailable)
	case permissions.IsValidationError(err):
		var ve *permissions.ValidationError
		stdErrors.As(err, &ve)
		response.Error(c, errors.NewBadRequest(ve.Field+": "+ve.Message))
	default:
		var appErr *errors.AppError
		if !stdErrors.As(err, &appErr) {
			logger.WithModule("http").Error("request failed",
				zap.String("route", c.FullPath()), zap.Error(err))
		}
		response.Error(c, err)
	}
}
