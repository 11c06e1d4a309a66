package permissions

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks failures of the backing store. Checks that hit it deny.
var ErrStoreUnavailable = errors.New("permission store unavailable")

// Store is the persistence port of the engine. Lookups that find nothing return a nil
// value and a nil error; any returned error is treated as a store failure.
type Store interface {
	// GetPrincipal returns the user with its role, or nil when the user or its role is
	// missing or inactive.
	GetPrincipal(ctx context.Context, userID uint) (*Principal, error)
	GetActivePermissionsForRole(ctx context.Context, roleID uint) ([]Grant, error)

	GetAllRoles(ctx context.Context) ([]RoleInfo, error)
	GetAllResources(ctx context.Context) ([]CatalogItem, error)
	GetAllActions(ctx context.Context) ([]CatalogItem, error)
	GetAllPermissions(ctx context.Context, includeInactive bool) ([]PermissionRecord, error)

	FindPermission(ctx context.Context, roleID, resourceID, actionID uint) (*PermissionRecord, error)
	// UpsertPermission writes the triple at the given scope and marks it active.
	UpsertPermission(ctx context.Context, roleID, resourceID, actionID uint, scope Scope) (*PermissionRecord, error)
	// DeactivatePermission soft-revokes the row and returns its new state.
	DeactivatePermission(ctx context.Context, permissionID uint) (*PermissionRecord, error)
}

func storeFailure(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
