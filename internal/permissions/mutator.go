package permissions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/qualitrack/qualitrack/internal/auditctx"
	"github.com/qualitrack/qualitrack/pkg/logger"
	"github.com/qualitrack/qualitrack/pkg/metrics"
)

// Update is one requested change to a role's permissions.
type Update struct {
	ResourceID uint  `json:"resource_id" validate:"required"`
	ActionID   uint  `json:"action_id" validate:"required"`
	Granted    bool  `json:"granted"`
	Scope      Scope `json:"scope" validate:"omitempty,oneof=own team all"`
}

// UpdateError ties a failure to the index of the update that caused it.
type UpdateError struct {
	Index      int    `json:"index"`
	ResourceID uint   `json:"resource_id"`
	ActionID   uint   `json:"action_id"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e UpdateError) Error() string {
	return fmt.Sprintf("update %d (resource %d, action %d): %v", e.Index, e.ResourceID, e.ActionID, e.Err)
}

func (e UpdateError) Unwrap() error {
	return e.Err
}

// UpdateResult summarises a batch. UpdatedCount counts writes that reached the store.
type UpdateResult struct {
	UpdatedCount int           `json:"updated_count"`
	Errors       []UpdateError `json:"errors"`
}

// Err folds the per-update errors into one error, or nil when the batch fully succeeded.
func (r UpdateResult) Err() error {
	var err error
	for _, itemErr := range r.Errors {
		err = multierr.Append(err, itemErr)
	}
	return err
}

// Invalidator drops cached permission sets.
type Invalidator interface {
	InvalidateAll()
}

// Mutator applies grants and revocations, writing one audit entry per change.
type Mutator struct {
	store Store
	audit AuditRecorder
	cache Invalidator
	log   *zap.Logger
}

// NewMutator constructs a mutator.
func NewMutator(store Store, audit AuditRecorder, cache Invalidator) (*Mutator, error) {
	if store == nil {
		return nil, errors.New("permission mutator: store is required")
	}
	if audit == nil {
		return nil, errors.New("permission mutator: audit recorder is required")
	}
	if cache == nil {
		return nil, errors.New("permission mutator: cache invalidator is required")
	}
	return &Mutator{
		store: store,
		audit: audit,
		cache: cache,
		log:   logger.WithModule("permissions"),
	}, nil
}

type mutationCatalog struct {
	role      *RoleInfo
	roleList  []RoleInfo
	resources map[uint]CatalogItem
	actions   map[uint]CatalogItem
}

// UpdateMany applies updates to the role in order. A failing update is reported in the
// result and does not stop the rest. The cache is cleared once when the batch ends.
func (m *Mutator) UpdateMany(ctx context.Context, roleID uint, updates []Update) UpdateResult {
	ctx = ensureContext(ctx)
	defer m.cache.InvalidateAll()

	var result UpdateResult
	if len(updates) == 0 {
		return result
	}

	catalog, err := m.loadCatalog(ctx)
	if err != nil {
		for i, update := range updates {
			result.Errors = append(result.Errors, newUpdateError(i, update, err))
		}
		m.log.Error("permission batch aborted", zap.Uint("role_id", roleID), zap.Error(err))
		return result
	}
	catalog.role = catalog.findRole(roleID)

	for i, update := range updates {
		written, err := m.apply(ctx, catalog, roleID, update)
		if written {
			result.UpdatedCount++
		}
		if err != nil {
			result.Errors = append(result.Errors, newUpdateError(i, update, err))
		}
	}

	m.log.Info("permission batch applied",
		zap.Uint("role_id", roleID),
		zap.Int("requested", len(updates)),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", len(result.Errors)),
	)
	return result
}

// CreateSingle grants one action on one resource to the role.
func (m *Mutator) CreateSingle(ctx context.Context, roleID, resourceID, actionID uint, scope Scope) error {
	result := m.UpdateMany(ctx, roleID, []Update{{
		ResourceID: resourceID,
		ActionID:   actionID,
		Granted:    true,
		Scope:      scope,
	}})
	return result.Err()
}

// RevokeSingle deactivates one grant of the role. Revoking a triple that was never
// granted, or is already revoked, is a no-op.
func (m *Mutator) RevokeSingle(ctx context.Context, roleID, resourceID, actionID uint) error {
	result := m.UpdateMany(ctx, roleID, []Update{{
		ResourceID: resourceID,
		ActionID:   actionID,
	}})
	return result.Err()
}

func (m *Mutator) loadCatalog(ctx context.Context) (*mutationCatalog, error) {
	roles, err := m.store.GetAllRoles(ctx)
	if err != nil {
		return nil, storeFailure("list roles", err)
	}
	resources, err := m.store.GetAllResources(ctx)
	if err != nil {
		return nil, storeFailure("list resources", err)
	}
	actions, err := m.store.GetAllActions(ctx)
	if err != nil {
		return nil, storeFailure("list actions", err)
	}

	catalog := &mutationCatalog{
		resources: make(map[uint]CatalogItem, len(resources)),
		actions:   make(map[uint]CatalogItem, len(actions)),
	}
	for _, res := range resources {
		catalog.resources[res.ID] = res
	}
	for _, act := range actions {
		catalog.actions[act.ID] = act
	}
	catalog.roleList = roles
	return catalog, nil
}

func (c *mutationCatalog) findRole(roleID uint) *RoleInfo {
	for i := range c.roleList {
		if c.roleList[i].ID == roleID {
			role := c.roleList[i]
			return &role
		}
	}
	return nil
}

// apply performs one update. written reports whether the store was changed, which can
// be true alongside an audit error.
func (m *Mutator) apply(ctx context.Context, catalog *mutationCatalog, roleID uint, update Update) (written bool, err error) {
	if catalog.role == nil {
		return false, &ValidationError{Field: "role_id", Message: fmt.Sprintf("role %d does not exist", roleID)}
	}
	resource, ok := catalog.resources[update.ResourceID]
	if !ok {
		return false, &ValidationError{Field: "resource_id", Message: fmt.Sprintf("resource %d does not exist", update.ResourceID)}
	}
	action, ok := catalog.actions[update.ActionID]
	if !ok {
		return false, &ValidationError{Field: "action_id", Message: fmt.Sprintf("action %d does not exist", update.ActionID)}
	}
	if update.Granted && !update.Scope.Valid() {
		return false, &ValidationError{Field: "scope", Message: fmt.Sprintf("%q is not one of own, team, all", update.Scope)}
	}

	existing, err := m.store.FindPermission(ctx, roleID, resource.ID, action.ID)
	if err != nil {
		return false, storeFailure("find permission", err)
	}

	var (
		after *PermissionRecord
		kind  AuditAction
	)
	switch {
	case update.Granted:
		after, err = m.store.UpsertPermission(ctx, roleID, resource.ID, action.ID, update.Scope)
		if err != nil {
			metrics.PermissionMutations.WithLabelValues("grant", "error").Inc()
			return false, storeFailure("upsert permission", err)
		}
		kind = AuditCreated
		if existing != nil {
			kind = AuditUpdated
		}
	case existing == nil || !existing.IsActive:
		return false, nil
	default:
		after, err = m.store.DeactivatePermission(ctx, existing.ID)
		if err != nil {
			metrics.PermissionMutations.WithLabelValues("revoke", "error").Inc()
			return false, storeFailure("deactivate permission", err)
		}
		kind = AuditDeleted
	}
	metrics.PermissionMutations.WithLabelValues(string(kind), "success").Inc()

	record := AuditRecord{
		ActorUserID:  auditctx.ActorUserID(ctx),
		Action:       kind,
		RoleID:       roleID,
		ResourceID:   resource.ID,
		ActionID:     action.ID,
		ResourceName: resource.Name,
		ActionName:   action.Name,
		Before:       existing,
		After:        after,
	}
	if after != nil {
		record.PermissionID = after.ID
	} else if existing != nil {
		record.PermissionID = existing.ID
	}

	if err := m.audit.Record(ctx, record); err != nil {
		m.log.Error("permission audit write failed",
			zap.Uint("role_id", roleID),
			zap.String("resource", resource.Name),
			zap.String("action", action.Name),
			zap.Error(err),
		)
		return true, fmt.Errorf("record audit: %w", err)
	}
	return true, nil
}

func newUpdateError(index int, update Update, err error) UpdateError {
	return UpdateError{
		Index:      index,
		ResourceID: update.ResourceID,
		ActionID:   update.ActionID,
		Message:    err.Error(),
		Err:        err,
	}
}

// IsValidationError reports whether err rejects input rather than signalling a store fault.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
