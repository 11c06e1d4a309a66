package permissions

import (
	"encoding/json"
	"fmt"
)

// Principal is the acting user as seen by the engine.
type Principal struct {
	UserID        uint
	RoleID        uint
	RoleName      string
	RoleHierarchy int
	TeamID        *uint
}

// Grant is one active permission of a role, addressed by resource and action name.
type Grant struct {
	Resource   string          `json:"resource"`
	Action     string          `json:"action"`
	Scope      Scope           `json:"scope"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
}

// ResolvedSet is a principal together with every active grant of its role.
// Values handed out by the checker are shared and must be treated as read-only.
type ResolvedSet struct {
	Principal
	Grants []Grant
}

// Find returns the grant for the resource and action pair.
func (s *ResolvedSet) Find(resource, action string) (Grant, bool) {
	if s == nil {
		return Grant{}, false
	}
	for _, grant := range s.Grants {
		if grant.Resource == resource && grant.Action == action {
			return grant, true
		}
	}
	return Grant{}, false
}

// Key builds the "resource:action" key used by CheckMany results.
func Key(resource, action string) string {
	return resource + ":" + action
}

// CheckRequest is one entry of a batch check. An empty Scope only requires the grant to exist.
type CheckRequest struct {
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
	Scope    Scope  `json:"scope,omitempty" validate:"omitempty,oneof=own team all"`
}

// Target describes the owner and team of the record an instance check is about.
type Target struct {
	OwnerID *uint
	TeamID  *uint
}

// RoleInfo is the role metadata used by the matrix and mutator.
type RoleInfo struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Hierarchy   int    `json:"hierarchy"`
	IsActive    bool   `json:"is_active"`
}

// CatalogItem is a resource or action known to the store.
type CatalogItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// PermissionRecord is a stored permission row, active or not.
type PermissionRecord struct {
	ID         uint            `json:"id"`
	RoleID     uint            `json:"role_id"`
	ResourceID uint            `json:"resource_id"`
	ActionID   uint            `json:"action_id"`
	Scope      Scope           `json:"scope"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
	IsActive   bool            `json:"is_active"`
}

// ValidationError rejects a single update before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("permission: invalid %s: %s", e.Field, e.Message)
}
