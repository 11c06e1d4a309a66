package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "qualitrack.sqlite")
	cfg.Auth.JWT.Secret = "bootstrap-test-secret"
	return cfg
}

func TestBootstrapRuntimeWiresStack(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)
	require.Equal(t, 2, stack.Cleaner.Entries())

	token, err := stack.IssueToken(context.Background(), "admin")
	require.NoError(t, err)

	claims, err := stack.JWT.ValidateAccessToken(token)
	require.NoError(t, err)

	ok, err := stack.Checker.HasHierarchyAtLeast(context.Background(), claims.UserID, permissions.HierarchyAdmin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBootstrapRuntimeWithoutAdmin(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.BootstrapAdmin.Username = ""

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	_, err = stack.IssueToken(context.Background(), "admin")
	require.ErrorContains(t, err, "not found")
}

func TestBootstrapRuntimeRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Permissions.SweepSchedule = "whenever"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "   "
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = " secret "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "secret", cfg.Auth.JWT.Secret)

	require.Error(t, ensureSecretsPresent(nil))
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestRunIssueToken(t *testing.T) {
	t.Setenv("QUALITRACK_DATABASE_PATH", filepath.Join(t.TempDir(), "qualitrack.sqlite"))
	t.Setenv("QUALITRACK_AUTH_JWT_SECRET", "run-test-secret")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", t.TempDir(), "-issue-token", "admin"}, &out)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "run-test-secret", Issuer: "qualitrack"})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)
}

func TestRunRequiresSecret(t *testing.T) {
	t.Setenv("QUALITRACK_DATABASE_PATH", filepath.Join(t.TempDir(), "qualitrack.sqlite"))

	err := run(context.Background(), []string{"-config", t.TempDir()}, &bytes.Buffer{})
	require.ErrorContains(t, err, "auth.jwt.secret")
}

func TestBootstrapRuntimeHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Equal(t, 3, stack.Health.Len())
	report := stack.Health.Evaluate(context.Background())
	require.True(t, report.Success, "%+v", report.Checks)
}
