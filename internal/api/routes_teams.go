package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func registerTeamRoutes(api *gin.RouterGroup, handler *handlers.TeamHandler, checker *permissions.Checker) {
	teams := api.Group("/teams")
	{
		teams.GET("", middleware.RequirePermission(checker, permissions.ResourceTeams, permissions.ActionRead, permissions.ScopeAll), handler.List)
		teams.POST("", middleware.RequirePermission(checker, permissions.ResourceTeams, permissions.ActionCreate, permissions.ScopeAll), handler.Create)
		teams.POST("/:id/members", middleware.RequirePermission(checker, permissions.ResourceTeams, permissions.ActionUpdate, permissions.ScopeAll), handler.AddMember)
		teams.DELETE("/:id/members/:userID", middleware.RequirePermission(checker, permissions.ResourceTeams, permissions.ActionUpdate, permissions.ScopeAll), handler.RemoveMember)
	}
}
