package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/internal/database"
	testutil "github.com/qualitrack/qualitrack/internal/database/testutil"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %s not found", id)
	return Check{}
}

func newJWT(t *testing.T, secret string, ttl time.Duration) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: secret, Issuer: "test-suite", AccessTokenTTL: ttl})
	require.NoError(t, err)
	return svc
}

func grantManage(t *testing.T, db *gorm.DB, roleName string) {
	t.Helper()

	var role models.Role
	var resource models.Resource
	var action models.Action
	require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)
	require.NoError(t, db.Where("name = ?", permissions.ResourcePermissions).First(&resource).Error)
	require.NoError(t, db.Where("name = ?", permissions.ActionManage).First(&action).Error)
	require.NoError(t, db.Create(&models.Permission{
		RoleID:     role.ID,
		ResourceID: resource.ID,
		ActionID:   action.ID,
		Scope:      string(permissions.ScopeAll),
		IsActive:   true,
	}).Error)
}

func TestAuditServiceRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	_, err := database.SeedAdmin(db, "admin", "admin@example.com")
	require.NoError(t, err)

	jwtSvc := newJWT(t, "0123456789abcdef0123456789abcdef0123456789abcdef", time.Hour)
	cfg := &app.Config{Permissions: app.PermissionsConfig{CacheTTL: 5 * time.Minute}}

	svc := NewAuditService(db, jwtSvc, cfg)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	result := svc.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 5)
	require.Equal(t, 5, result.Summary[string(StatusPass)], "%+v", result.Checks)
}

func TestAuditServiceDetectsMissingAdmin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	svc := NewAuditService(db, newJWT(t, "0123456789abcdef0123456789abcdef", time.Hour), &app.Config{})
	result := svc.Run(context.Background())

	require.Equal(t, StatusFail, findCheck(t, result, checkAdminPresent).Status)
	require.Equal(t, StatusWarn, findCheck(t, result, checkJWTSecret).Status)
	require.Equal(t, StatusPass, findCheck(t, result, checkCacheTTL).Status)
}

func TestAuditServiceInactiveAdminDoesNotCount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	admin, err := database.SeedAdmin(db, "admin", "")
	require.NoError(t, err)
	require.NoError(t, db.Model(admin).Update("is_active", false).Error)

	result := NewAuditService(db, nil, nil).Run(context.Background())
	require.Equal(t, StatusFail, findCheck(t, result, checkAdminPresent).Status)
}

func TestAuditServiceFlagsPrivilegedGrants(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	grantManage(t, db, permissions.RoleManager)

	result := NewAuditService(db, nil, nil).Run(context.Background())
	check := findCheck(t, result, checkPrivilegedGrants)
	require.Equal(t, StatusWarn, check.Status)
	require.Equal(t, map[string]any{"roles": []string{permissions.RoleManager}}, check.Details)
}

func TestAuditServiceLongLifetimes(t *testing.T) {
	cfg := &app.Config{Permissions: app.PermissionsConfig{CacheTTL: time.Hour}}
	result := NewAuditService(nil, newJWT(t, "short", 48*time.Hour), cfg).Run(context.Background())

	require.Equal(t, StatusWarn, findCheck(t, result, checkAdminPresent).Status)
	require.Equal(t, StatusFail, findCheck(t, result, checkJWTSecret).Status)
	require.Equal(t, StatusWarn, findCheck(t, result, checkAccessTokenTTL).Status)
	require.Equal(t, StatusWarn, findCheck(t, result, checkCacheTTL).Status)
	require.Equal(t, StatusWarn, findCheck(t, result, checkPrivilegedGrants).Status)
}
