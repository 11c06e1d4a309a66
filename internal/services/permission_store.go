package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

// GormStore implements permissions.Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

var _ permissions.Store = (*GormStore)(nil)

// NewGormStore constructs a store using the provided database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("permission store: db is required")
	}
	return &GormStore{db: db}, nil
}

type principalRow struct {
	UserID        uint
	TeamID        *uint
	RoleID        uint
	RoleName      string
	RoleHierarchy int
}

type grantRow struct {
	ResourceName string
	ActionName   string
	Scope        string
	Conditions   []byte
}

type permissionRow struct {
	ID         uint
	RoleID     uint
	ResourceID uint
	ActionID   uint
	Scope      string
	Conditions []byte
	IsActive   bool
}

const permissionColumns = "id, role_id, resource_id, action_id, scope, conditions, is_active"

func (s *GormStore) GetPrincipal(ctx context.Context, userID uint) (*permissions.Principal, error) {
	var row principalRow
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id AS user_id, users.team_id AS team_id, roles.id AS role_id, roles.name AS role_name, roles.hierarchy AS role_hierarchy").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.id = ? AND users.is_active = ? AND roles.is_active = ?", userID, true, true).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission store: load principal: %w", err)
	}

	return &permissions.Principal{
		UserID:        row.UserID,
		RoleID:        row.RoleID,
		RoleName:      row.RoleName,
		RoleHierarchy: row.RoleHierarchy,
		TeamID:        row.TeamID,
	}, nil
}

func (s *GormStore) GetActivePermissionsForRole(ctx context.Context, roleID uint) ([]permissions.Grant, error) {
	var rows []grantRow
	err := s.db.WithContext(ctx).
		Table("permissions").
		Select("resources.name AS resource_name, actions.name AS action_name, permissions.scope AS scope, permissions.conditions AS conditions").
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Joins("JOIN actions ON actions.id = permissions.action_id").
		Where("permissions.role_id = ? AND permissions.is_active = ?", roleID, true).
		Order("resources.name, actions.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("permission store: load role grants: %w", err)
	}

	grants := make([]permissions.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, permissions.Grant{
			Resource:   row.ResourceName,
			Action:     row.ActionName,
			Scope:      permissions.Scope(row.Scope),
			Conditions: conditionsOf(row.Conditions),
		})
	}
	return grants, nil
}

func (s *GormStore) GetAllRoles(ctx context.Context) ([]permissions.RoleInfo, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("hierarchy DESC, name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("permission store: list roles: %w", err)
	}

	out := make([]permissions.RoleInfo, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleInfo(role))
	}
	return out, nil
}

func (s *GormStore) GetAllResources(ctx context.Context) ([]permissions.CatalogItem, error) {
	var resources []models.Resource
	if err := s.db.WithContext(ctx).Order("display_name, name").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("permission store: list resources: %w", err)
	}

	out := make([]permissions.CatalogItem, 0, len(resources))
	for _, res := range resources {
		out = append(out, permissions.CatalogItem{ID: res.ID, Name: res.Name, DisplayName: res.DisplayName})
	}
	return out, nil
}

func (s *GormStore) GetAllActions(ctx context.Context) ([]permissions.CatalogItem, error) {
	var actions []models.Action
	if err := s.db.WithContext(ctx).Order("display_name, name").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("permission store: list actions: %w", err)
	}

	out := make([]permissions.CatalogItem, 0, len(actions))
	for _, act := range actions {
		out = append(out, permissions.CatalogItem{ID: act.ID, Name: act.Name, DisplayName: act.DisplayName})
	}
	return out, nil
}

func (s *GormStore) GetAllPermissions(ctx context.Context, includeInactive bool) ([]permissions.PermissionRecord, error) {
	query := s.db.WithContext(ctx).Model(&models.Permission{}).Select(permissionColumns)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []permissionRow
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("permission store: list permissions: %w", err)
	}

	out := make([]permissions.PermissionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (s *GormStore) FindPermission(ctx context.Context, roleID, resourceID, actionID uint) (*permissions.PermissionRecord, error) {
	return s.findTriple(s.db.WithContext(ctx), roleID, resourceID, actionID)
}

func (s *GormStore) findTriple(tx *gorm.DB, roleID, resourceID, actionID uint) (*permissions.PermissionRecord, error) {
	var row permissionRow
	err := tx.Model(&models.Permission{}).
		Select(permissionColumns).
		Where("role_id = ? AND resource_id = ? AND action_id = ?", roleID, resourceID, actionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission store: find permission: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// UpsertPermission inserts the triple or, when it exists, updates its scope and reactivates it.
func (s *GormStore) UpsertPermission(ctx context.Context, roleID, resourceID, actionID uint, scope permissions.Scope) (*permissions.PermissionRecord, error) {
	var stored *permissions.PermissionRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perm := models.Permission{
			RoleID:     roleID,
			ResourceID: resourceID,
			ActionID:   actionID,
			Scope:      string(scope),
			IsActive:   true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "resource_id"}, {Name: "action_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"scope", "is_active", "updated_at"}),
		}).Create(&perm).Error; err != nil {
			return err
		}

		rec, err := s.findTriple(tx, roleID, resourceID, actionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.New("upserted permission not found")
		}
		stored = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("permission store: upsert permission: %w", err)
	}
	return stored, nil
}

func (s *GormStore) DeactivatePermission(ctx context.Context, permissionID uint) (*permissions.PermissionRecord, error) {
	var stored permissionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Permission{}).
			Where("id = ?", permissionID).
			Updates(map[string]any{"is_active": false, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Permission{}).Select(permissionColumns).Where("id = ?", permissionID).Take(&stored).Error
	})
	if err != nil {
		return nil, fmt.Errorf("permission store: deactivate permission %d: %w", permissionID, err)
	}
	rec := stored.record()
	return &rec, nil
}

func (r permissionRow) record() permissions.PermissionRecord {
	return permissions.PermissionRecord{
		ID:         r.ID,
		RoleID:     r.RoleID,
		ResourceID: r.ResourceID,
		ActionID:   r.ActionID,
		Scope:      permissions.Scope(r.Scope),
		Conditions: conditionsOf(r.Conditions),
		IsActive:   r.IsActive,
	}
}

func roleInfo(role models.Role) permissions.RoleInfo {
	return permissions.RoleInfo{
		ID:          role.ID,
		Name:        role.Name,
		DisplayName: role.DisplayName,
		Hierarchy:   role.Hierarchy,
		IsActive:    role.IsActive,
	}
}

// conditionsOf returns nil for absent or empty condition documents.
func conditionsOf(raw []byte) json.RawMessage {
	switch string(raw) {
	case "", "null", "{}":
		return nil
	}
	return json.RawMessage(append([]byte(nil), raw...))
}
