package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/internal/handlers"
	"github.com/qualitrack/qualitrack/internal/middleware"
	"github.com/qualitrack/qualitrack/internal/monitoring"
	"github.com/qualitrack/qualitrack/internal/monitoring/checks"
	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/internal/security"
	"github.com/qualitrack/qualitrack/internal/services"
)

// Dependencies bundles what the HTTP layer needs. The checker is shared with the services
// so that invalidations from writes reach the same cache the guards read from. Health is
// optional; without it /health only pings the database.
type Dependencies struct {
	DB          *gorm.DB
	JWT         *iauth.JWTService
	Config      *app.Config
	Checker     *permissions.Checker
	Permissions *services.PermissionService
	Users       *services.UserService
	Teams       *services.TeamService
	Health      *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.Checker == nil:
		return fmt.Errorf("permission checker must be provided")
	case d.Permissions == nil || d.Users == nil || d.Teams == nil:
		return fmt.Errorf("services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.NoRoute(middleware.NotFoundHandler)

	health := deps.Health
	if health == nil {
		health = monitoring.NewHealthManager(0)
		health.Register(checks.Database(deps.DB))
	}
	registerHealthRoutes(r, health, deps.Config.Monitoring)

	permHandler, err := handlers.NewPermissionHandler(deps.Permissions)
	if err != nil {
		return nil, err
	}
	auditHandler, err := handlers.NewAuditHandler(deps.Permissions)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(deps.Users)
	if err != nil {
		return nil, err
	}
	teamHandler, err := handlers.NewTeamHandler(deps.Teams)
	if err != nil {
		return nil, err
	}
	securityHandler, err := handlers.NewSecurityHandler(security.NewAuditService(deps.DB, deps.JWT, deps.Config))
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerPermissionRoutes(api, permHandler, auditHandler, deps.Checker)
	registerUserRoutes(api, userHandler, deps.Checker)
	registerTeamRoutes(api, teamHandler, deps.Checker)
	registerSecurityRoutes(api, securityHandler, deps.Checker)

	return r, nil
}
