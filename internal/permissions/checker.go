package permissions

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/qualitrack/qualitrack/pkg/logger"
	"github.com/qualitrack/qualitrack/pkg/metrics"
)

// DefaultStoreTimeout bounds a single principal resolution against the store.
const DefaultStoreTimeout = 2 * time.Second

// Checker answers authorization questions for users. Resolved sets are cached per user;
// concurrent misses for the same user share one store round trip.
type Checker struct {
	store   Store
	cache   Cache
	timeout time.Duration
	log     *zap.Logger

	group singleflight.Group
	// generation changes on every invalidation so loads started earlier are not cached.
	generation atomic.Uint64
}

// CheckerOption customises a Checker.
type CheckerOption func(*Checker)

// WithCache replaces the default in-memory cache.
func WithCache(cache Cache) CheckerOption {
	return func(c *Checker) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithStoreTimeout bounds each resolution; zero disables the bound.
func WithStoreTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.timeout = timeout
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) CheckerOption {
	return func(c *Checker) {
		if log != nil {
			c.log = log
		}
	}
}

// NewChecker constructs a checker over the store.
func NewChecker(store Store, opts ...CheckerOption) (*Checker, error) {
	if store == nil {
		return nil, errors.New("permission checker: store is required")
	}
	c := &Checker{
		store:   store,
		cache:   NewMemoryCache(DefaultCacheTTL),
		timeout: DefaultStoreTimeout,
		log:     logger.WithModule("permissions"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve returns the user's principal and active grants. A nil set with a nil error
// means the user cannot act: unknown, inactive, or bound to an inactive role.
func (c *Checker) Resolve(ctx context.Context, userID uint) (*ResolvedSet, error) {
	ctx = ensureContext(ctx)
	if userID == 0 {
		return nil, nil
	}

	if set, ok := c.cache.Get(userID); ok {
		metrics.PermissionCacheLookups.WithLabelValues("hit").Inc()
		return set, nil
	}
	metrics.PermissionCacheLookups.WithLabelValues("miss").Inc()

	gen := c.generation.Load()
	key := fmt.Sprintf("%d:%d", gen, userID)
	value, err, _ := c.group.Do(key, func() (any, error) {
		set, err := c.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		if set != nil && c.generation.Load() == gen {
			c.cache.Set(userID, set)
		}
		return set, nil
	})
	if err != nil {
		c.log.Warn("resolve permissions failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	set, _ := value.(*ResolvedSet)
	return set, nil
}

func (c *Checker) load(ctx context.Context, userID uint) (*ResolvedSet, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	principal, err := c.store.GetPrincipal(ctx, userID)
	if err != nil {
		return nil, storeFailure("load principal", err)
	}
	if principal == nil {
		return nil, nil
	}

	grants, err := c.store.GetActivePermissionsForRole(ctx, principal.RoleID)
	if err != nil {
		return nil, storeFailure("load role permissions", err)
	}

	return &ResolvedSet{Principal: *principal, Grants: grants}, nil
}

// Check reports whether the user holds the action on the resource. When a scope is
// supplied the grant must be at least that broad; otherwise any grant suffices.
// Store failures deny and are returned alongside false.
func (c *Checker) Check(ctx context.Context, userID uint, resource, action string, required ...Scope) (bool, error) {
	var scope Scope
	if len(required) > 0 {
		scope = required[0]
	}

	set, err := c.Resolve(ctx, userID)
	if err != nil {
		observe(resource, action, "error")
		return false, err
	}

	allowed := allows(set, resource, action, scope)
	observe(resource, action, outcome(allowed))
	return allowed, nil
}

// CheckInstance decides access to a concrete record from the grant's scope and the
// record's owner and team.
func (c *Checker) CheckInstance(ctx context.Context, userID uint, resource, action string, target Target) (bool, error) {
	set, err := c.Resolve(ctx, userID)
	if err != nil {
		observe(resource, action, "error")
		return false, err
	}

	allowed := allowsInstance(set, resource, action, target)
	observe(resource, action, outcome(allowed))
	return allowed, nil
}

// CheckMany evaluates a batch against one resolution. Results are keyed "resource:action";
// when a key repeats, every request under it must pass. On store failure every key is
// false and the error is returned.
func (c *Checker) CheckMany(ctx context.Context, userID uint, checks []CheckRequest) (map[string]bool, error) {
	results := make(map[string]bool, len(checks))

	set, err := c.Resolve(ctx, userID)
	for _, check := range checks {
		key := Key(check.Resource, check.Action)
		if err != nil {
			results[key] = false
			continue
		}
		allowed := allows(set, check.Resource, check.Action, check.Scope)
		if prev, seen := results[key]; seen {
			allowed = allowed && prev
		}
		results[key] = allowed
	}
	return results, err
}

// HasHierarchyAtLeast reports whether the user's role sits at or above level.
func (c *Checker) HasHierarchyAtLeast(ctx context.Context, userID uint, level int) (bool, error) {
	set, err := c.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	if set == nil {
		return false, nil
	}
	return set.RoleHierarchy >= level, nil
}

// Invalidate drops the cached set of each user.
func (c *Checker) Invalidate(userIDs ...uint) {
	c.generation.Add(1)
	for _, id := range userIDs {
		c.cache.Invalidate(id)
	}
	metrics.PermissionCacheInvalidations.WithLabelValues("user").Add(float64(len(userIDs)))
}

// InvalidateAll drops every cached set.
func (c *Checker) InvalidateAll() {
	c.generation.Add(1)
	c.cache.InvalidateAll()
	metrics.PermissionCacheInvalidations.WithLabelValues("all").Inc()
	c.log.Debug("permission cache cleared")
}

// SweepCache removes expired cache entries.
func (c *Checker) SweepCache() {
	c.cache.DeleteExpired()
}

func allows(set *ResolvedSet, resource, action string, required Scope) bool {
	grant, ok := set.Find(resource, action)
	if !ok {
		return false
	}
	if required == "" {
		return true
	}
	return Satisfies(grant.Scope, required)
}

func allowsInstance(set *ResolvedSet, resource, action string, target Target) bool {
	grant, ok := set.Find(resource, action)
	if !ok {
		return false
	}

	switch grant.Scope {
	case ScopeAll:
		return true
	case ScopeTeam:
		return set.TeamID != nil && target.TeamID != nil && *set.TeamID == *target.TeamID
	case ScopeOwn:
		return target.OwnerID != nil && *target.OwnerID == set.UserID
	default:
		return false
	}
}

// unknownLabel stands in for resource and action names outside the catalog.
const unknownLabel = "unknown"

func observe(resource, action, result string) {
	if !knownResource(resource) {
		resource = unknownLabel
	}
	if !knownAction(action) {
		action = unknownLabel
	}
	metrics.PermissionChecks.WithLabelValues(resource, action, result).Inc()
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
