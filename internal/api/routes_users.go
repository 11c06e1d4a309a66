package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, checker *permissions.Checker) {
	guard := func(action string) gin.HandlerFunc {
		return middleware.RequirePermission(checker, permissions.ResourceUsers, action, permissions.ScopeAll)
	}

	users := api.Group("/users")
	{
		users.POST("", guard(permissions.ActionCreate), handler.Create)
		users.GET("/:id", guard(permissions.ActionRead), handler.Get)
		users.PATCH("/:id/role", guard(permissions.ActionUpdate), handler.AssignRole)
		users.PATCH("/:id/status", guard(permissions.ActionUpdate), handler.SetStatus)
	}
}
