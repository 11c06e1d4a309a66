package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func registerPermissionRoutes(api *gin.RouterGroup, handler *handlers.PermissionHandler, audit *handlers.AuditHandler, checker *permissions.Checker) {
	canRead := middleware.RequirePermission(checker, permissions.ResourcePermissions, permissions.ActionRead, permissions.ScopeAll)
	canManage := middleware.RequirePermission(checker, permissions.ResourcePermissions, permissions.ActionManage, permissions.ScopeAll)

	perms := api.Group("/permissions")
	{
		// Self-service: every authenticated user may ask about their own access.
		perms.GET("/my", handler.MyPermissions)
		perms.GET("/check", handler.Check)
		perms.POST("/check", handler.CheckBatch)
		perms.POST("/check/instance", handler.CheckInstance)

		perms.GET("/matrix", canRead, handler.Matrix)
		perms.GET("/audit", canRead, audit.List)
		perms.PUT("/roles/:id", canManage, handler.UpdateRolePermissions)
		perms.POST("/roles/:id/grants", canManage, handler.Grant)
		perms.DELETE("/roles/:id/grants", canManage, handler.Revoke)
		perms.POST("/cache/invalidate", canManage, handler.InvalidateCache)
	}

	roles := api.Group("/roles")
	{
		roles.GET("", canRead, handler.ListRoles)
		roles.POST("", canManage, middleware.RequireHierarchy(checker, permissions.HierarchyAdmin), handler.CreateRole)
		roles.PATCH("/:id/status", canManage, middleware.RequireHierarchy(checker, permissions.HierarchyAdmin), handler.SetRoleStatus)
	}
}
