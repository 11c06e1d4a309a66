package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qualitrack/qualitrack/internal/auditctx"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

func TestPermissionServiceTeamLeaderScenario(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	north := fx.team(t, "North")
	south := fx.team(t, "South")
	lead := fx.user(t, "lead", permissions.RoleTeamLeader, &north.ID)
	agent := fx.user(t, "agent", permissions.RoleAgent, &north.ID)
	outsider := fx.user(t, "outsider", permissions.RoleAgent, &south.ID)

	ok, err := fx.perms.Check(ctx, lead.ID, permissions.ResourceEvaluations, permissions.ActionRead, permissions.ScopeTeam)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = fx.perms.Check(ctx, lead.ID, permissions.ResourceEvaluations, permissions.ActionRead, permissions.ScopeAll)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = fx.perms.CheckInstance(ctx, lead.ID, permissions.ResourceEvaluations, permissions.ActionRead,
		permissions.Target{OwnerID: &agent.ID, TeamID: agent.TeamID})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = fx.perms.CheckInstance(ctx, lead.ID, permissions.ResourceEvaluations, permissions.ActionRead,
		permissions.Target{OwnerID: &outsider.ID, TeamID: outsider.TeamID})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = fx.perms.CheckInstance(ctx, agent.ID, permissions.ResourceEntries, permissions.ActionUpdate,
		permissions.Target{OwnerID: &agent.ID, TeamID: agent.TeamID})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = fx.perms.CheckInstance(ctx, agent.ID, permissions.ResourceEntries, permissions.ActionUpdate,
		permissions.Target{OwnerID: &outsider.ID, TeamID: agent.TeamID})
	require.NoError(t, err)
	require.False(t, ok)

	results, err := fx.perms.CheckMany(ctx, lead.ID, []permissions.CheckRequest{
		{Resource: permissions.ResourceSchedules, Action: permissions.ActionApprove},
		{Resource: permissions.ResourceSettings, Action: permissions.ActionUpdate},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"schedules:approve": true, "settings:update": false}, results)

	ok, err = fx.perms.HasHierarchyAtLeast(ctx, lead.ID, permissions.HierarchyTeamLeader)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPermissionServiceMatrix(t *testing.T) {
	fx := newServiceFixture(t)

	matrix, err := fx.perms.GetMatrix(context.Background())
	require.NoError(t, err)
	require.Len(t, matrix.Roles, 4)
	require.Len(t, matrix.Permissions, len(matrix.Roles)*len(matrix.Resources)*len(matrix.Actions))
	require.Equal(t, permissions.RoleAdmin, matrix.Roles[0].Name)

	cell, ok := matrix.Cell(
		fx.roleID(t, permissions.RoleTeamLeader),
		fx.resourceID(t, permissions.ResourceEvaluations),
		fx.actionID(t, permissions.ActionRead),
	)
	require.True(t, ok)
	require.True(t, cell.Granted)
	require.Equal(t, permissions.ScopeTeam, cell.Scope)
	require.NotNil(t, cell.PermissionID)
}

func TestPermissionServiceGrantTwiceWritesTwoAuditEntries(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: 1})
	roleID := fx.roleID(t, permissions.RoleAgent)
	resourceID := fx.resourceID(t, permissions.ResourceReports)
	actionID := fx.actionID(t, permissions.ActionRead)

	require.NoError(t, fx.perms.GrantPermission(ctx, roleID, resourceID, actionID, permissions.ScopeOwn))
	require.NoError(t, fx.perms.GrantPermission(ctx, roleID, resourceID, actionID, permissions.ScopeOwn))

	var count int64
	require.NoError(t, fx.db.Model(&models.Permission{}).
		Where("role_id = ? AND resource_id = ? AND action_id = ?", roleID, resourceID, actionID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)

	entries, err := fx.perms.ListAudit(ctx, AuditFilters{RoleID: &roleID})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	actions := []string{entries[0].Action, entries[1].Action}
	require.ElementsMatch(t, []string{models.AuditActionCreated, models.AuditActionUpdated}, actions)
	for _, entry := range entries {
		require.NotNil(t, entry.ActorUserID)
		require.Equal(t, uint(1), *entry.ActorUserID)
		require.Equal(t, permissions.ResourceReports, entry.ResourceName)
	}
}

func TestPermissionServiceRevokeThenGrant(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	agent := fx.user(t, "agent", permissions.RoleAgent, nil)
	roleID := agent.RoleID
	resourceID := fx.resourceID(t, permissions.ResourceEntries)
	actionID := fx.actionID(t, permissions.ActionCreate)

	ok, err := fx.perms.Check(ctx, agent.ID, permissions.ResourceEntries, permissions.ActionCreate)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fx.perms.RevokePermission(ctx, roleID, resourceID, actionID))
	ok, err = fx.perms.Check(ctx, agent.ID, permissions.ResourceEntries, permissions.ActionCreate)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, fx.perms.GrantPermission(ctx, roleID, resourceID, actionID, permissions.ScopeTeam))
	ok, err = fx.perms.Check(ctx, agent.ID, permissions.ResourceEntries, permissions.ActionCreate, permissions.ScopeTeam)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), fx.auditCount(t))
}

func TestPermissionServiceRevokeNeverGranted(t *testing.T) {
	fx := newServiceFixture(t)

	err := fx.perms.RevokePermission(context.Background(),
		fx.roleID(t, permissions.RoleAgent),
		fx.resourceID(t, permissions.ResourceSettings),
		fx.actionID(t, permissions.ActionDelete),
	)
	require.NoError(t, err)
	require.Zero(t, fx.auditCount(t))
}

func TestPermissionServiceUpdatePermissionsPartialFailure(t *testing.T) {
	fx := newServiceFixture(t)
	roleID := fx.roleID(t, permissions.RoleAgent)

	result, err := fx.perms.UpdatePermissions(context.Background(), roleID, []permissions.Update{
		{ResourceID: fx.resourceID(t, permissions.ResourceReports), ActionID: fx.actionID(t, permissions.ActionRead), Granted: true, Scope: permissions.ScopeOwn},
		{ResourceID: 9999, ActionID: fx.actionID(t, permissions.ActionRead), Granted: true, Scope: permissions.ScopeOwn},
		{ResourceID: fx.resourceID(t, permissions.ResourceEntries), ActionID: fx.actionID(t, permissions.ActionRead), Granted: false},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.UpdatedCount)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 1, result.Errors[0].Index)
	require.True(t, permissions.IsValidationError(result.Errors[0]))
	require.Equal(t, int64(2), fx.auditCount(t))
}

func TestPermissionServiceUnknownRole(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.perms.UpdatePermissions(context.Background(), 9999, nil)
	require.ErrorIs(t, err, ErrRoleNotFound)

	err = fx.perms.GrantPermission(context.Background(), 9999, 1, 1, permissions.ScopeOwn)
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestPermissionServiceSetRoleActive(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	manager := fx.user(t, "manager", permissions.RoleManager, nil)

	ok, err := fx.perms.Check(ctx, manager.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fx.perms.SetRoleActive(ctx, manager.RoleID, false))
	ok, err = fx.perms.Check(ctx, manager.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, fx.perms.SetRoleActive(ctx, manager.RoleID, true))
	ok, err = fx.perms.Check(ctx, manager.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, fx.perms.SetRoleActive(ctx, 9999, false), ErrRoleNotFound)
}

func TestPermissionServiceCreateRole(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	role, err := fx.perms.CreateRole(ctx, CreateRoleInput{Name: " Auditor ", DisplayName: "Auditor", Hierarchy: 2})
	require.NoError(t, err)
	require.Equal(t, "auditor", role.Name)
	require.True(t, role.IsActive)

	_, err = fx.perms.CreateRole(ctx, CreateRoleInput{Name: "auditor"})
	require.Error(t, err)

	_, err = fx.perms.CreateRole(ctx, CreateRoleInput{Name: " "})
	require.Error(t, err)

	roles, err := fx.perms.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 5)
}

func TestPermissionServiceInvalidate(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	agent := fx.user(t, "agent", permissions.RoleAgent, nil)

	ok, err := fx.perms.Check(ctx, agent.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = fx.store.UpsertPermission(ctx, agent.RoleID, fx.resourceID(t, permissions.ResourceReports), fx.actionID(t, permissions.ActionRead), permissions.ScopeOwn)
	require.NoError(t, err)

	ok, err = fx.perms.Check(ctx, agent.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.False(t, ok, "served from cache")

	fx.perms.Invalidate(agent.ID)
	ok, err = fx.perms.Check(ctx, agent.ID, permissions.ResourceReports, permissions.ActionRead)
	require.NoError(t, err)
	require.True(t, ok)

	fx.perms.Invalidate()
	set, err := fx.perms.Resolve(ctx, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Equal(t, permissions.RoleAgent, set.RoleName)
}
