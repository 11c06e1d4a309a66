package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/api"
	"github.com/qualitrack/qualitrack/internal/app"
	"github.com/qualitrack/qualitrack/internal/app/maintenance"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/internal/database"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/monitoring"
	"github.com/qualitrack/qualitrack/internal/monitoring/checks"
	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/internal/services"
	"github.com/qualitrack/qualitrack/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB          *gorm.DB
	JWT         *iauth.JWTService
	Checker     *permissions.Checker
	Permissions *services.PermissionService
	Users       *services.UserService
	Teams       *services.TeamService
	Cleaner     *maintenance.Cleaner
	Health      *monitoring.HealthManager
	Router      *gin.Engine
}

// bootstrapRuntime initialises the database, the permission engine, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.BootstrapAdminEnabled() {
		admin, err := database.SeedAdmin(stack.DB.WithContext(ctx), cfg.Auth.BootstrapAdmin.Username, cfg.Auth.BootstrapAdmin.Email)
		if err != nil {
			return nil, err
		}
		log.Info("bootstrap admin ready", zap.Uint("user_id", admin.ID), zap.String("username", admin.Username))
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	store, err := services.NewGormStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise permission store: %w", err)
	}

	stack.Checker, err = permissions.NewChecker(store,
		permissions.WithCache(permissions.NewMemoryCache(cfg.Permissions.CacheTTL)),
		permissions.WithStoreTimeout(cfg.Permissions.StoreTimeout),
		permissions.WithLogger(logger.WithModule("permissions")),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise permission checker: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Permissions, err = services.NewPermissionService(stack.DB, store, stack.Checker, auditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise permission service: %w", err)
	}
	stack.Users, err = services.NewUserService(stack.DB, stack.Checker)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	stack.Teams, err = services.NewTeamService(stack.DB, stack.Checker)
	if err != nil {
		return nil, fmt.Errorf("initialise team service: %w", err)
	}

	jobs := monitoring.NewJobTracker()
	stack.Cleaner = maintenance.NewCleaner(stack.Checker, stack.DB,
		maintenance.WithSweepSchedule(cfg.Permissions.SweepSchedule),
		maintenance.WithRunRecorder(jobs),
		maintenance.WithLogger(logger.WithModule("maintenance")),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Health = monitoring.NewHealthManager(cfg.Permissions.StoreTimeout)
	stack.Health.Register(checks.Database(stack.DB))
	stack.Health.Register(checks.PermissionStore(store))
	stack.Health.Register(checks.Maintenance(jobs, 0))

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:          stack.DB,
		JWT:         stack.JWT,
		Config:      cfg,
		Checker:     stack.Checker,
		Permissions: stack.Permissions,
		Users:       stack.Users,
		Teams:       stack.Teams,
		Health:      stack.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// IssueToken signs an access token for an active user. Used by operators to obtain a
// first credential, since the server carries no login flow.
func (s *runtimeStack) IssueToken(ctx context.Context, username string) (string, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return "", fmt.Errorf("user %q is inactive", username)
	}
	return s.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Username: user.Username})
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown", zap.Error(ctx.Err()))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
