package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

const (
	// DefaultAuditLimit applies when a listing does not specify a limit.
	DefaultAuditLimit = 50
	// MaxAuditLimit caps a single listing.
	MaxAuditLimit = 100
)

// AuditFilters encapsulates optional filters when querying the permission audit trail.
type AuditFilters struct {
	ActorUserID  *uint
	RoleID       *uint
	PermissionID *uint
	ResourceName string
	Action       string
	Since        *time.Time
	Until        *time.Time
	Limit        int
}

// AuditService appends and lists permission audit entries. Entries are never changed.
type AuditService struct {
	db *gorm.DB
}

var _ permissions.AuditRecorder = (*AuditService)(nil)

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

type permissionSnapshot struct {
	ID       uint              `json:"id"`
	Scope    permissions.Scope `json:"scope"`
	IsActive bool              `json:"is_active"`
}

// Record appends one entry describing a permission write.
func (s *AuditService) Record(ctx context.Context, rec permissions.AuditRecord) error {
	ctx = ensureContext(ctx)

	if rec.Action == "" {
		return errors.New("audit service: action is required")
	}

	oldValue, err := snapshot(rec.Before)
	if err != nil {
		return err
	}
	newValue, err := snapshot(rec.After)
	if err != nil {
		return err
	}

	entry := models.PermissionAudit{
		ActorUserID:  rec.ActorUserID,
		Action:       string(rec.Action),
		PermissionID: rec.PermissionID,
		RoleID:       rec.RoleID,
		ResourceID:   rec.ResourceID,
		ActionID:     rec.ActionID,
		ResourceName: rec.ResourceName,
		ActionName:   rec.ActionName,
		OldValue:     oldValue,
		NewValue:     newValue,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit service: record entry: %w", err)
	}
	return nil
}

// List returns entries matching the filters, newest first.
func (s *AuditService) List(ctx context.Context, filters AuditFilters) ([]models.PermissionAudit, error) {
	ctx = ensureContext(ctx)

	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.PermissionAudit{}), filters)

	var entries []models.PermissionAudit
	if err := query.
		Order("created_at DESC").
		Order("id").
		Limit(clampLimit(filters.Limit, DefaultAuditLimit, MaxAuditLimit)).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit service: list entries: %w", err)
	}
	return entries, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.ActorUserID != nil {
		query = query.Where("actor_user_id = ?", *filters.ActorUserID)
	}
	if filters.RoleID != nil {
		query = query.Where("role_id = ?", *filters.RoleID)
	}
	if filters.PermissionID != nil {
		query = query.Where("permission_id = ?", *filters.PermissionID)
	}
	if name := strings.TrimSpace(filters.ResourceName); name != "" {
		query = query.Where("resource_name = ?", name)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

// snapshot encodes a permission state; a missing state is stored as JSON null.
func snapshot(rec *permissions.PermissionRecord) (datatypes.JSON, error) {
	if rec == nil {
		return datatypes.JSON("null"), nil
	}
	encoded, err := json.Marshal(permissionSnapshot{ID: rec.ID, Scope: rec.Scope, IsActive: rec.IsActive})
	if err != nil {
		return nil, fmt.Errorf("audit service: encode snapshot: %w", err)
	}
	return datatypes.JSON(encoded), nil
}
