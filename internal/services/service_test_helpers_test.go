package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/database/testutil"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

type serviceFixture struct {
	db      *gorm.DB
	store   *GormStore
	checker *permissions.Checker
	audit   *AuditService
	perms   *PermissionService
	users   *UserService
	teams   *TeamService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	store, err := NewGormStore(db)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(store)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	perms, err := NewPermissionService(db, store, checker, audit)
	require.NoError(t, err)
	users, err := NewUserService(db, checker)
	require.NoError(t, err)
	teams, err := NewTeamService(db, checker)
	require.NoError(t, err)

	return &serviceFixture{
		db:      db,
		store:   store,
		checker: checker,
		audit:   audit,
		perms:   perms,
		users:   users,
		teams:   teams,
	}
}

func (f *serviceFixture) roleID(t *testing.T, name string) uint {
	t.Helper()
	var role models.Role
	require.NoError(t, f.db.Where("name = ?", name).First(&role).Error)
	return role.ID
}

func (f *serviceFixture) resourceID(t *testing.T, name string) uint {
	t.Helper()
	var res models.Resource
	require.NoError(t, f.db.Where("name = ?", name).First(&res).Error)
	return res.ID
}

func (f *serviceFixture) actionID(t *testing.T, name string) uint {
	t.Helper()
	var act models.Action
	require.NoError(t, f.db.Where("name = ?", name).First(&act).Error)
	return act.ID
}

func (f *serviceFixture) team(t *testing.T, name string) *models.Team {
	t.Helper()
	team, err := f.teams.Create(context.Background(), CreateTeamInput{Name: name})
	require.NoError(t, err)
	return team
}

func (f *serviceFixture) user(t *testing.T, username, role string, teamID *uint) *models.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		RoleID:   f.roleID(t, role),
		TeamID:   teamID,
	})
	require.NoError(t, err)
	return user
}

func (f *serviceFixture) auditCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.PermissionAudit{}).Count(&count).Error)
	return count
}
