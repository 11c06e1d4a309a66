package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned by the model hooks when anything tries to change or remove an audit row.
var ErrAuditImmutable = errors.New("permission audit: entries are append-only")

// Audit actions.
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)

// PermissionAudit records one permission write with its before and after state.
type PermissionAudit struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	ActorUserID  *uint          `gorm:"index" json:"actor_user_id"`
	Action       string         `gorm:"size:16;not null;index" json:"action"`
	PermissionID uint           `gorm:"not null;index" json:"permission_id"`
	RoleID       uint           `gorm:"not null;index" json:"role_id"`
	ResourceID   uint           `gorm:"not null" json:"resource_id"`
	ActionID     uint           `gorm:"not null" json:"action_id"`
	ResourceName string         `gorm:"size:64;index" json:"resource_name"`
	ActionName   string         `gorm:"size:64" json:"action_name"`
	OldValue     datatypes.JSON `json:"old_value,omitempty"`
	NewValue     datatypes.JSON `json:"new_value,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (a *PermissionAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *PermissionAudit) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *PermissionAudit) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
