package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
	apperrors "github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/logger"
)

// PermissionService is the application facade over the authorization engine: checks,
// the admin matrix, grant mutations, role lifecycle and the audit trail.
type PermissionService struct {
	db      *gorm.DB
	checker *permissions.Checker
	matrix  *permissions.MatrixBuilder
	mutator *permissions.Mutator
	audit   *AuditService
	log     *zap.Logger
}

// NewPermissionService wires the engine components around a shared store and checker.
func NewPermissionService(db *gorm.DB, store permissions.Store, checker *permissions.Checker, audit *AuditService) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	if checker == nil {
		return nil, errors.New("permission service: checker is required")
	}
	if audit == nil {
		return nil, errors.New("permission service: audit service is required")
	}

	matrix, err := permissions.NewMatrixBuilder(store)
	if err != nil {
		return nil, fmt.Errorf("permission service: %w", err)
	}
	mutator, err := permissions.NewMutator(store, audit, checker)
	if err != nil {
		return nil, fmt.Errorf("permission service: %w", err)
	}

	return &PermissionService{
		db:      db,
		checker: checker,
		matrix:  matrix,
		mutator: mutator,
		audit:   audit,
		log:     logger.WithModule("permission_service"),
	}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name        string `json:"name" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required"`
	Description string `json:"description"`
	Hierarchy   int    `json:"hierarchy" validate:"gte=0"`
}

// Check delegates to the engine.
func (s *PermissionService) Check(ctx context.Context, userID uint, resource, action string, scope ...permissions.Scope) (bool, error) {
	return s.checker.Check(ctx, userID, resource, action, scope...)
}

// CheckInstance delegates to the engine.
func (s *PermissionService) CheckInstance(ctx context.Context, userID uint, resource, action string, target permissions.Target) (bool, error) {
	return s.checker.CheckInstance(ctx, userID, resource, action, target)
}

// CheckMany delegates to the engine.
func (s *PermissionService) CheckMany(ctx context.Context, userID uint, checks []permissions.CheckRequest) (map[string]bool, error) {
	return s.checker.CheckMany(ctx, userID, checks)
}

// HasHierarchyAtLeast delegates to the engine.
func (s *PermissionService) HasHierarchyAtLeast(ctx context.Context, userID uint, level int) (bool, error) {
	return s.checker.HasHierarchyAtLeast(ctx, userID, level)
}

// Resolve returns the caller's role and active grants, or nil when the user cannot act.
func (s *PermissionService) Resolve(ctx context.Context, userID uint) (*permissions.ResolvedSet, error) {
	return s.checker.Resolve(ctx, userID)
}

// GetMatrix builds the full roles x resources x actions matrix.
func (s *PermissionService) GetMatrix(ctx context.Context) (*permissions.Matrix, error) {
	return s.matrix.Build(ctx)
}

// UpdatePermissions applies a batch of grants and revocations to a role.
func (s *PermissionService) UpdatePermissions(ctx context.Context, roleID uint, updates []permissions.Update) (permissions.UpdateResult, error) {
	ctx = ensureContext(ctx)
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return permissions.UpdateResult{}, err
	}
	return s.mutator.UpdateMany(ctx, roleID, updates), nil
}

// GrantPermission grants one action on one resource to the role at scope.
func (s *PermissionService) GrantPermission(ctx context.Context, roleID, resourceID, actionID uint, scope permissions.Scope) error {
	ctx = ensureContext(ctx)
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return err
	}
	return s.mutator.CreateSingle(ctx, roleID, resourceID, actionID, scope)
}

// RevokePermission deactivates one grant of the role.
func (s *PermissionService) RevokePermission(ctx context.Context, roleID, resourceID, actionID uint) error {
	ctx = ensureContext(ctx)
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return err
	}
	return s.mutator.RevokeSingle(ctx, roleID, resourceID, actionID)
}

// Invalidate drops cached permission sets for the given users, or for everyone when none are given.
func (s *PermissionService) Invalidate(userIDs ...uint) {
	if len(userIDs) == 0 {
		s.checker.InvalidateAll()
		return
	}
	s.checker.Invalidate(userIDs...)
}

// ListRoles returns every role ordered by hierarchy descending.
func (s *PermissionService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("hierarchy DESC, name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("permission service: list roles: %w", err)
	}
	return roles, nil
}

// CreateRole registers a new, active role without grants.
func (s *PermissionService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.ToLower(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = name
	}

	role := &models.Role{
		Name:        name,
		DisplayName: displayName,
		Description: strings.TrimSpace(input.Description),
		Hierarchy:   input.Hierarchy,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("permission service: create role: %w", err)
	}

	s.log.Info("role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return role, nil
}

// SetRoleActive enables or disables a role. Users bound to a disabled role are denied
// everything, so the whole cache is dropped.
func (s *PermissionService) SetRoleActive(ctx context.Context, roleID uint, active bool) error {
	ctx = ensureContext(ctx)

	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsActive == active {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(role).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("permission service: update role state: %w", err)
	}
	s.checker.InvalidateAll()

	s.log.Info("role state changed", zap.Uint("role_id", roleID), zap.Bool("active", active))
	return nil
}

// ListAudit returns permission audit entries.
func (s *PermissionService) ListAudit(ctx context.Context, filters AuditFilters) ([]models.PermissionAudit, error) {
	return s.audit.List(ctx, filters)
}

func (s *PermissionService) loadRole(ctx context.Context, roleID uint) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).First(&role, roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load role: %w", permissions.ErrStoreUnavailable, err)
	}
	return &role, nil
}
