package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	testutil "github.com/qualitrack/qualitrack/internal/database/testutil"
	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/internal/services"
)

func newTestDependencies(t *testing.T, db *gorm.DB, monitoring app.MonitoringConfig) Dependencies {
	t.Helper()

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test", AccessTokenTTL: 15 * time.Minute})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}
	store, err := services.NewGormStore(db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	checker, err := permissions.NewChecker(store)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	perms, err := services.NewPermissionService(db, store, checker, audit)
	if err != nil {
		t.Fatalf("permission service: %v", err)
	}
	users, err := services.NewUserService(db, checker)
	if err != nil {
		t.Fatalf("user service: %v", err)
	}
	teams, err := services.NewTeamService(db, checker)
	if err != nil {
		t.Fatalf("team service: %v", err)
	}

	return Dependencies{
		DB:          db,
		JWT:         jwtSvc,
		Config:      &app.Config{Monitoring: monitoring},
		Checker:     checker,
		Permissions: perms,
		Users:       users,
		Teams:       teams,
	}
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	router, err := NewRouter(newTestDependencies(t, db, app.MonitoringConfig{
		Health: app.HealthConfig{Enabled: true},
	}))
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	// Health should be public
	if w := serve(router, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}

	for _, path := range []string{"/api/permissions/my", "/api/permissions/matrix", "/api/roles", "/api/teams"} {
		if w := serve(router, http.MethodGet, path); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, w.Code)
		}
	}

	w := serve(router, http.MethodGet, "/does-not-exist")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND error body, got %s", w.Body.String())
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	router, err := NewRouter(newTestDependencies(t, db, app.MonitoringConfig{
		Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		Health:     app.HealthConfig{Enabled: true},
	}))
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	serve(router, http.MethodGet, "/health")

	w := serve(router, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "qualitrack_api_latency_seconds") {
		t.Fatalf("expected latency histogram in metrics output")
	}
}

func TestRouter_DisabledMonitoring(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	router, err := NewRouter(newTestDependencies(t, db, app.MonitoringConfig{}))
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	if w := serve(router, http.MethodGet, "/health"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled /health, got %d", w.Code)
	}
	if w := serve(router, http.MethodGet, "/metrics"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled /metrics, got %d", w.Code)
	}
}

func TestRouter_RequiresDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	deps := newTestDependencies(t, db, app.MonitoringConfig{})

	cases := map[string]func(d *Dependencies){
		"db":      func(d *Dependencies) { d.DB = nil },
		"jwt":     func(d *Dependencies) { d.JWT = nil },
		"config":  func(d *Dependencies) { d.Config = nil },
		"checker": func(d *Dependencies) { d.Checker = nil },
		"teams":   func(d *Dependencies) { d.Teams = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := deps
			mutate(&d)
			if _, err := NewRouter(d); err == nil {
				t.Fatalf("expected error when %s is missing", name)
			}
		})
	}
}
