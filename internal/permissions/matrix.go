package permissions

import (
	"context"
	"errors"
	"sort"
)

// MatrixCell is the state of one role, resource and action combination.
type MatrixCell struct {
	RoleID       uint   `json:"role_id"`
	ResourceID   uint   `json:"resource_id"`
	ActionID     uint   `json:"action_id"`
	Granted      bool   `json:"granted"`
	Scope        Scope  `json:"scope"`
	PermissionID *uint  `json:"permission_id"`
	RoleName     string `json:"role_name"`
	ResourceName string `json:"resource_name"`
	ActionName   string `json:"action_name"`
}

// Matrix is the dense roles x resources x actions view used by administrators.
type Matrix struct {
	Roles       []RoleInfo    `json:"roles"`
	Resources   []CatalogItem `json:"resources"`
	Actions     []CatalogItem `json:"actions"`
	Permissions []MatrixCell  `json:"permissions"`
}

// Cell looks up a combination by ids.
func (m *Matrix) Cell(roleID, resourceID, actionID uint) (MatrixCell, bool) {
	for _, cell := range m.Permissions {
		if cell.RoleID == roleID && cell.ResourceID == resourceID && cell.ActionID == actionID {
			return cell, true
		}
	}
	return MatrixCell{}, false
}

// MatrixBuilder assembles the matrix from the store.
type MatrixBuilder struct {
	store Store
}

// NewMatrixBuilder constructs a builder over the store.
func NewMatrixBuilder(store Store) (*MatrixBuilder, error) {
	if store == nil {
		return nil, errors.New("permission matrix: store is required")
	}
	return &MatrixBuilder{store: store}, nil
}

type tripleKey struct {
	role, resource, action uint
}

// Build returns one cell for every combination of active role, resource and action.
// Roles are ordered by hierarchy descending, resources and actions by display name.
// Combinations without a row are ungranted at DefaultScope; revoked permission rows
// keep their scope and id but are ungranted.
func (b *MatrixBuilder) Build(ctx context.Context) (*Matrix, error) {
	ctx = ensureContext(ctx)

	all, err := b.store.GetAllRoles(ctx)
	if err != nil {
		return nil, storeFailure("list roles", err)
	}
	roles := make([]RoleInfo, 0, len(all))
	for _, role := range all {
		if role.IsActive {
			roles = append(roles, role)
		}
	}
	resources, err := b.store.GetAllResources(ctx)
	if err != nil {
		return nil, storeFailure("list resources", err)
	}
	actions, err := b.store.GetAllActions(ctx)
	if err != nil {
		return nil, storeFailure("list actions", err)
	}
	records, err := b.store.GetAllPermissions(ctx, true)
	if err != nil {
		return nil, storeFailure("list permissions", err)
	}

	sort.SliceStable(roles, func(i, j int) bool {
		if roles[i].Hierarchy != roles[j].Hierarchy {
			return roles[i].Hierarchy > roles[j].Hierarchy
		}
		return roles[i].Name < roles[j].Name
	})
	sortCatalog(resources)
	sortCatalog(actions)

	index := make(map[tripleKey]PermissionRecord, len(records))
	for _, rec := range records {
		index[tripleKey{rec.RoleID, rec.ResourceID, rec.ActionID}] = rec
	}

	cells := make([]MatrixCell, 0, len(roles)*len(resources)*len(actions))
	for _, role := range roles {
		for _, resource := range resources {
			for _, action := range actions {
				cell := MatrixCell{
					RoleID:       role.ID,
					ResourceID:   resource.ID,
					ActionID:     action.ID,
					Scope:        DefaultScope,
					RoleName:     role.Name,
					ResourceName: resource.Name,
					ActionName:   action.Name,
				}
				if rec, ok := index[tripleKey{role.ID, resource.ID, action.ID}]; ok {
					id := rec.ID
					cell.PermissionID = &id
					cell.Scope = rec.Scope
					cell.Granted = rec.IsActive
				}
				cells = append(cells, cell)
			}
		}
	}

	return &Matrix{
		Roles:       roles,
		Resources:   resources,
		Actions:     actions,
		Permissions: cells,
	}, nil
}

func sortCatalog(items []CatalogItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DisplayName != items[j].DisplayName {
			return items[i].DisplayName < items[j].DisplayName
		}
		return items[i].Name < items[j].Name
	})
}
