package permissions

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errFakeStoreDown = errors.New("connection refused")

type fakeUser struct {
	roleID uint
	teamID *uint
	active bool
}

type fakeStore struct {
	mu sync.Mutex

	users     map[uint]fakeUser
	roles     map[uint]*RoleInfo
	resources []CatalogItem
	actions   []CatalogItem
	perms     map[tripleKey]*PermissionRecord
	nextID    uint

	principalCalls int
	down           bool
	failUpsert     map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[uint]fakeUser),
		roles:      make(map[uint]*RoleInfo),
		perms:      make(map[tripleKey]*PermissionRecord),
		failUpsert: make(map[uint]bool),
	}
}

func (s *fakeStore) addRole(id uint, name string, hierarchy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[id] = &RoleInfo{ID: id, Name: name, DisplayName: name, Hierarchy: hierarchy, IsActive: true}
}

func (s *fakeStore) addResource(id uint, name, display string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, CatalogItem{ID: id, Name: name, DisplayName: display})
}

func (s *fakeStore) addAction(id uint, name, display string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, CatalogItem{ID: id, Name: name, DisplayName: display})
}

func (s *fakeStore) addUser(id, roleID uint, teamID *uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = fakeUser{roleID: roleID, teamID: teamID, active: true}
}

func (s *fakeStore) setUserActive(id uint, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.active = active
	s.users[id] = u
}

func (s *fakeStore) setRoleActive(id uint, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[id].IsActive = active
}

func (s *fakeStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principalCalls
}

func (s *fakeStore) grant(roleID, resourceID, actionID uint, scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(roleID, resourceID, actionID, scope)
}

func (s *fakeStore) upsertLocked(roleID, resourceID, actionID uint, scope Scope) *PermissionRecord {
	key := tripleKey{roleID, resourceID, actionID}
	rec, ok := s.perms[key]
	if !ok {
		s.nextID++
		rec = &PermissionRecord{ID: s.nextID, RoleID: roleID, ResourceID: resourceID, ActionID: actionID}
		s.perms[key] = rec
	}
	rec.Scope = scope
	rec.IsActive = true
	cp := *rec
	return &cp
}

func (s *fakeStore) name(items []CatalogItem, id uint) string {
	for _, item := range items {
		if item.ID == id {
			return item.Name
		}
	}
	return ""
}

func (s *fakeStore) GetPrincipal(ctx context.Context, userID uint) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principalCalls++
	if s.down {
		return nil, errFakeStoreDown
	}
	user, ok := s.users[userID]
	if !ok || !user.active {
		return nil, nil
	}
	role, ok := s.roles[user.roleID]
	if !ok || !role.IsActive {
		return nil, nil
	}
	return &Principal{
		UserID:        userID,
		RoleID:        role.ID,
		RoleName:      role.Name,
		RoleHierarchy: role.Hierarchy,
		TeamID:        user.teamID,
	}, nil
}

func (s *fakeStore) GetActivePermissionsForRole(ctx context.Context, roleID uint) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	var grants []Grant
	for _, rec := range s.perms {
		if rec.RoleID != roleID || !rec.IsActive {
			continue
		}
		grants = append(grants, Grant{
			Resource: s.name(s.resources, rec.ResourceID),
			Action:   s.name(s.actions, rec.ActionID),
			Scope:    rec.Scope,
		})
	}
	return grants, nil
}

func (s *fakeStore) GetAllRoles(ctx context.Context) ([]RoleInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	out := make([]RoleInfo, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetAllResources(ctx context.Context) ([]CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	return append([]CatalogItem(nil), s.resources...), nil
}

func (s *fakeStore) GetAllActions(ctx context.Context) ([]CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	return append([]CatalogItem(nil), s.actions...), nil
}

func (s *fakeStore) GetAllPermissions(ctx context.Context, includeInactive bool) ([]PermissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	var out []PermissionRecord
	for _, rec := range s.perms {
		if rec.IsActive || includeInactive {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeStore) FindPermission(ctx context.Context, roleID, resourceID, actionID uint) (*PermissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	rec, ok := s.perms[tripleKey{roleID, resourceID, actionID}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) UpsertPermission(ctx context.Context, roleID, resourceID, actionID uint, scope Scope) (*PermissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down || s.failUpsert[resourceID] {
		return nil, errFakeStoreDown
	}
	return s.upsertLocked(roleID, resourceID, actionID, scope), nil
}

func (s *fakeStore) DeactivatePermission(ctx context.Context, permissionID uint) (*PermissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errFakeStoreDown
	}
	for _, rec := range s.perms {
		if rec.ID == permissionID {
			rec.IsActive = false
			cp := *rec
			return &cp, nil
		}
	}
	return nil, errors.New("permission not found")
}

type memoryAudit struct {
	mu      sync.Mutex
	records []AuditRecord
	err     error
}

func (a *memoryAudit) Record(ctx context.Context, record AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, record)
	return nil
}

func (a *memoryAudit) all() []AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditRecord(nil), a.records...)
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
	next  Invalidator
}

func (c *countingInvalidator) InvalidateAll() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	if c.next != nil {
		c.next.InvalidateAll()
	}
}

func (c *countingInvalidator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

const (
	testRoleAgent  uint = 1
	testRoleLeader uint = 2
	testRoleAdmin  uint = 4

	testResEvaluations uint = 10
	testResEntries     uint = 11
	testResReports     uint = 12

	testActRead   uint = 20
	testActUpdate uint = 21
	testActCreate uint = 22
)

// newSeededStore returns a store with three roles, three resources and three actions.
func newSeededStore() *fakeStore {
	store := newFakeStore()
	store.addRole(testRoleAgent, RoleAgent, HierarchyAgent)
	store.addRole(testRoleLeader, RoleTeamLeader, HierarchyTeamLeader)
	store.addRole(testRoleAdmin, RoleAdmin, HierarchyAdmin)

	store.addResource(testResEvaluations, ResourceEvaluations, "Evaluations")
	store.addResource(testResEntries, ResourceEntries, "Entries")
	store.addResource(testResReports, ResourceReports, "Reports")

	store.addAction(testActRead, ActionRead, "Read")
	store.addAction(testActUpdate, ActionUpdate, "Update")
	store.addAction(testActCreate, ActionCreate, "Create")
	return store
}

func uintPtr(v uint) *uint {
	return &v
}
