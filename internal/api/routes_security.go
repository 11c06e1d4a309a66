package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func registerSecurityRoutes(api *gin.RouterGroup, handler *handlers.SecurityHandler, checker *permissions.Checker) {
	api.GET("/security/audit",
		middleware.RequirePermission(checker, permissions.ResourcePermissions, permissions.ActionRead, permissions.ScopeAll),
		middleware.RequireHierarchy(checker, permissions.HierarchyAdmin),
		handler.Audit,
	)
}
