package permissions

import "context"

// AuditAction classifies a permission write.
type AuditAction string

const (
	AuditCreated AuditAction = "created"
	AuditUpdated AuditAction = "updated"
	AuditDeleted AuditAction = "deleted"
)

// AuditRecord describes one permission write. Before is nil for creations.
type AuditRecord struct {
	ActorUserID  *uint
	Action       AuditAction
	PermissionID uint
	RoleID       uint
	ResourceID   uint
	ActionID     uint
	ResourceName string
	ActionName   string
	Before       *PermissionRecord
	After        *PermissionRecord
}

// AuditRecorder appends audit entries. Entries are never updated or removed.
type AuditRecorder interface {
	Record(ctx context.Context, record AuditRecord) error
}
