package middleware

import (
	"context"

	"github.com/qualitrack/qualitrack/internal/permissions"
)

// stubStore serves one principal with fixed grants, or fails every call when err is set.
type stubStore struct {
	principal *permissions.Principal
	grants    []permissions.Grant
	err       error
}

func (s *stubStore) GetPrincipal(_ context.Context, userID uint) (*permissions.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.principal == nil || s.principal.UserID != userID {
		return nil, nil
	}
	p := *s.principal
	return &p, nil
}

func (s *stubStore) GetActivePermissionsForRole(context.Context, uint) ([]permissions.Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grants, nil
}

func (s *stubStore) GetAllRoles(context.Context) ([]permissions.RoleInfo, error) { return nil, s.err }

func (s *stubStore) GetAllResources(context.Context) ([]permissions.CatalogItem, error) {
	return nil, s.err
}

func (s *stubStore) GetAllActions(context.Context) ([]permissions.CatalogItem, error) {
	return nil, s.err
}

func (s *stubStore) GetAllPermissions(context.Context, bool) ([]permissions.PermissionRecord, error) {
	return nil, s.err
}

func (s *stubStore) FindPermission(context.Context, uint, uint, uint) (*permissions.PermissionRecord, error) {
	return nil, s.err
}

func (s *stubStore) UpsertPermission(context.Context, uint, uint, uint, permissions.Scope) (*permissions.PermissionRecord, error) {
	return nil, s.err
}

func (s *stubStore) DeactivatePermission(context.Context, uint) (*permissions.PermissionRecord, error) {
	return nil, s.err
}
