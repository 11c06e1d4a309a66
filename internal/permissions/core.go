package permissions

// Built-in role names and their hierarchy levels.
const (
	RoleAgent      = "agent"
	RoleTeamLeader = "team_leader"
	RoleManager    = "manager"
	RoleAdmin      = "admin"

	HierarchyAgent      = 1
	HierarchyTeamLeader = 2
	HierarchyManager    = 3
	HierarchyAdmin      = 4
)

// Resource names.
const (
	ResourceUsers       = "users"
	ResourceTeams       = "teams"
	ResourceSchedules   = "schedules"
	ResourceEntries     = "entries"
	ResourceEvaluations = "evaluations"
	ResourceReports     = "reports"
	ResourceSettings    = "settings"
	ResourcePermissions = "permissions"
)

// Action names.
const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionManage  = "manage"
)

func init() {
	resources := []ResourceDef{
		{Name: ResourceUsers, DisplayName: "Users", Description: "User accounts and role assignment"},
		{Name: ResourceTeams, DisplayName: "Teams", Description: "Teams and their members"},
		{Name: ResourceSchedules, DisplayName: "Schedules", Description: "Work schedules and shift requests"},
		{Name: ResourceEntries, DisplayName: "Entries", Description: "Tracked work entries"},
		{Name: ResourceEvaluations, DisplayName: "Evaluations", Description: "Quality evaluations"},
		{Name: ResourceReports, DisplayName: "Reports", Description: "Aggregated reports"},
		{Name: ResourceSettings, DisplayName: "Settings", Description: "System settings"},
		{Name: ResourcePermissions, DisplayName: "Permissions", Description: "Role permission matrix and audit trail"},
	}
	for _, def := range resources {
		mustRegister(RegisterResource(def))
	}

	actions := []ActionDef{
		{Name: ActionCreate, DisplayName: "Create"},
		{Name: ActionRead, DisplayName: "Read"},
		{Name: ActionUpdate, DisplayName: "Update"},
		{Name: ActionDelete, DisplayName: "Delete"},
		{Name: ActionApprove, DisplayName: "Approve"},
		{Name: ActionReject, DisplayName: "Reject"},
		{Name: ActionManage, DisplayName: "Manage"},
	}
	for _, def := range actions {
		mustRegister(RegisterAction(def))
	}

	crud := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	roles := []RoleDef{
		{
			Name:        RoleAgent,
			DisplayName: "Agent",
			Description: "Works on their own entries and schedules",
			Hierarchy:   HierarchyAgent,
			Grants: concatGrants(
				grants(ResourceEntries, ScopeOwn, ActionCreate, ActionRead, ActionUpdate),
				grants(ResourceSchedules, ScopeOwn, ActionCreate, ActionRead),
				grants(ResourceEvaluations, ScopeOwn, ActionRead),
				grants(ResourceUsers, ScopeOwn, ActionRead),
			),
		},
		{
			Name:        RoleTeamLeader,
			DisplayName: "Team Leader",
			Description: "Supervises and evaluates a single team",
			Hierarchy:   HierarchyTeamLeader,
			Grants: concatGrants(
				grants(ResourceEntries, ScopeTeam, ActionRead, ActionUpdate),
				grants(ResourceSchedules, ScopeTeam, ActionRead, ActionApprove, ActionReject),
				grants(ResourceEvaluations, ScopeTeam, ActionCreate, ActionRead, ActionUpdate),
				grants(ResourceUsers, ScopeTeam, ActionRead),
				grants(ResourceTeams, ScopeTeam, ActionRead),
				grants(ResourceReports, ScopeTeam, ActionRead),
			),
		},
		{
			Name:        RoleManager,
			DisplayName: "Manager",
			Description: "Oversees every team",
			Hierarchy:   HierarchyManager,
			Grants: concatGrants(
				grants(ResourceEntries, ScopeAll, crud...),
				grants(ResourceSchedules, ScopeAll, ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionReject),
				grants(ResourceEvaluations, ScopeAll, crud...),
				grants(ResourceUsers, ScopeAll, ActionRead, ActionUpdate),
				grants(ResourceTeams, ScopeAll, ActionCreate, ActionRead, ActionUpdate),
				grants(ResourceReports, ScopeAll, ActionRead),
			),
		},
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full access including permission management",
			Hierarchy:   HierarchyAdmin,
			Grants: concatGrants(
				grants(ResourceEntries, ScopeAll, crud...),
				grants(ResourceSchedules, ScopeAll, append(crud, ActionApprove, ActionReject)...),
				grants(ResourceEvaluations, ScopeAll, crud...),
				grants(ResourceUsers, ScopeAll, crud...),
				grants(ResourceTeams, ScopeAll, crud...),
				grants(ResourceReports, ScopeAll, crud...),
				grants(ResourceSettings, ScopeAll, ActionRead, ActionUpdate),
				grants(ResourcePermissions, ScopeAll, ActionRead, ActionManage),
			),
		},
	}
	for _, def := range roles {
		mustRegister(RegisterRole(def))
	}
}

func grants(resource string, scope Scope, actions ...string) []GrantDef {
	out := make([]GrantDef, 0, len(actions))
	for _, action := range actions {
		out = append(out, GrantDef{Resource: resource, Action: action, Scope: scope})
	}
	return out
}

func concatGrants(groups ...[]GrantDef) []GrantDef {
	var out []GrantDef
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}
