package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/api"
	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	sharedtestutil "github.com/qualitrack/qualitrack/internal/database/testutil"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/internal/services"
	"github.com/qualitrack/qualitrack/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T           *testing.T
	DB          *gorm.DB
	Router      *gin.Engine
	JWT         *iauth.JWTService
	Checker     *permissions.Checker
	Permissions *services.PermissionService
	Users       *services.UserService
	Teams       *services.TeamService
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store, err := services.NewGormStore(db)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(store)
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	perms, err := services.NewPermissionService(db, store, checker, audit)
	require.NoError(t, err)
	users, err := services.NewUserService(db, checker)
	require.NoError(t, err)
	teams, err := services.NewTeamService(db, checker)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:          db,
		JWT:         jwtSvc,
		Config:      cfg,
		Checker:     checker,
		Permissions: perms,
		Users:       users,
		Teams:       teams,
	})
	require.NoError(t, err)

	return &Env{
		T:           t,
		DB:          db,
		Router:      router,
		JWT:         jwtSvc,
		Checker:     checker,
		Permissions: perms,
		Users:       users,
		Teams:       teams,
	}
}

// CreateUser inserts an active user bound to the named seeded role.
func (e *Env) CreateUser(role string, teamID *uint) *models.User {
	e.T.Helper()

	username := role + "-" + uuid.NewString()[:8]
	user, err := e.Users.Create(e.T.Context(), services.CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		RoleID:   e.RoleID(role),
		TeamID:   teamID,
	})
	require.NoError(e.T, err)
	return user
}

// CreateTeam inserts a team with a random name.
func (e *Env) CreateTeam() *models.Team {
	e.T.Helper()

	team, err := e.Teams.Create(e.T.Context(), services.CreateTeamInput{Name: "team-" + uuid.NewString()[:8]})
	require.NoError(e.T, err)
	return team
}

// Token issues an access token for the user.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Username: user.Username})
	require.NoError(e.T, err)
	return token
}

// RoleID looks up a seeded role by name.
func (e *Env) RoleID(name string) uint {
	e.T.Helper()
	var role models.Role
	require.NoError(e.T, e.DB.Where("name = ?", name).First(&role).Error)
	return role.ID
}

// ResourceID looks up a seeded resource by name.
func (e *Env) ResourceID(name string) uint {
	e.T.Helper()
	var resource models.Resource
	require.NoError(e.T, e.DB.Where("name = ?", name).First(&resource).Error)
	return resource.ID
}

// ActionID looks up a seeded action by name.
func (e *Env) ActionID(name string) uint {
	e.T.Helper()
	var action models.Action
	require.NoError(e.T, e.DB.Where("name = ?", name).First(&action).Error)
	return action.ID
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
