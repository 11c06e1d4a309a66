package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Permission grants a role an action on a resource at a scope. The unique index on the
// (role, resource, action) triple keeps a single row per triple; revocation flips IsActive.
type Permission struct {
	BaseModel

	RoleID     uint           `gorm:"not null;uniqueIndex:idx_permission_triple,priority:1" json:"role_id"`
	ResourceID uint           `gorm:"not null;uniqueIndex:idx_permission_triple,priority:2" json:"resource_id"`
	ActionID   uint           `gorm:"not null;uniqueIndex:idx_permission_triple,priority:3" json:"action_id"`
	Scope      string         `gorm:"size:16;not null" json:"scope"`
	Conditions datatypes.JSON `json:"conditions,omitempty"`
	IsActive   bool           `gorm:"not null;index" json:"is_active"`

	Role     *Role     `gorm:"foreignKey:RoleID" json:"-"`
	Resource *Resource `gorm:"foreignKey:ResourceID" json:"-"`
	Action   *Action   `gorm:"foreignKey:ActionID" json:"-"`
}

// EmptyConditions is stored for permissions without extra conditions.
var EmptyConditions = datatypes.JSON("{}")

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if len(p.Conditions) == 0 {
		p.Conditions = EmptyConditions
	}
	return nil
}
