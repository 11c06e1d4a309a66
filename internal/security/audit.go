package security

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/app"
	iauth "github.com/qualitrack/qualitrack/internal/auth"
	"github.com/qualitrack/qualitrack/internal/models"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

// CheckStatus captures the outcome of a posture check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	checkAdminPresent     = "admin_present"
	checkJWTSecret        = "jwt_secret_strength"
	checkAccessTokenTTL   = "access_token_ttl"
	checkCacheTTL         = "permission_cache_ttl"
	checkPrivilegedGrants = "privileged_grants"

	maxRecommendedTokenTTL = 24 * time.Hour
	maxRecommendedCacheTTL = 15 * time.Minute
)

// Check contains the result of a single verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a per-status count.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates the authorization deployment: who can administer it, how long
// credentials and cached grants live, and whether permission management leaked below the
// admin tier.
type AuditService struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		jwt: jwt,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkAdminPresent(ctx),
		s.checkJWTSecret(),
		s.checkAccessTokenTTL(),
		s.checkCacheTTL(),
		s.checkPrivilegedGrants(ctx),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) checkAdminPresent(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          checkAdminPresent,
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to confirm an administrator exists.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.is_active = ? AND roles.is_active = ? AND roles.hierarchy >= ?", true, true, permissions.HierarchyAdmin).
		Count(&count).Error
	if err != nil {
		return Check{
			ID:          checkAdminPresent,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count administrators: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          checkAdminPresent,
			Status:      StatusFail,
			Message:     "No active administrator found.",
			Remediation: "Enable auth.bootstrap_admin or assign the admin role to an active user.",
		}
	}

	return Check{
		ID:      checkAdminPresent,
		Status:  StatusPass,
		Message: "Active administrator present.",
		Details: map[string]any{"count": count},
	}
}

func (s *AuditService) checkJWTSecret() Check {
	if s.jwt == nil {
		return Check{
			ID:          checkJWTSecret,
			Status:      StatusWarn,
			Message:     "JWT service not initialised, unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := s.jwt.SecretLength()
	switch {
	case length < 32:
		return Check{
			ID:          checkJWTSecret,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
			Details:     map[string]any{"length": length},
		}
	case length < 48:
		return Check{
			ID:          checkJWTSecret,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of QUALITRACK_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      checkJWTSecret,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkAccessTokenTTL() Check {
	if s.jwt == nil {
		return Check{
			ID:          checkAccessTokenTTL,
			Status:      StatusWarn,
			Message:     "JWT service not initialised, unable to evaluate token lifetime.",
			Remediation: "Initialise the JWT service before running the audit.",
		}
	}

	ttl := s.jwt.TTL()
	if ttl > maxRecommendedTokenTTL {
		return Check{
			ID:          checkAccessTokenTTL,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedTokenTTL),
			Remediation: "Reduce auth.jwt.access_token_ttl so deactivated users lose their tokens sooner.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      checkAccessTokenTTL,
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkCacheTTL() Check {
	if s.cfg == nil {
		return Check{
			ID:          checkCacheTTL,
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to evaluate permission cache lifetime.",
			Remediation: "Load configuration before running the audit.",
		}
	}

	ttl := s.cfg.Permissions.CacheTTL
	if ttl <= 0 {
		ttl = permissions.DefaultCacheTTL
	}
	if ttl > maxRecommendedCacheTTL {
		return Check{
			ID:          checkCacheTTL,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Permission cache TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommendedCacheTTL),
			Remediation: "Lower permissions.cache_ttl; changes made directly in the database are only picked up on expiry.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      checkCacheTTL,
		Status:  StatusPass,
		Message: fmt.Sprintf("Permission cache TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

// checkPrivilegedGrants flags roles below the admin tier holding permissions:manage, which
// lets them rewrite the matrix for every role including their own.
func (s *AuditService) checkPrivilegedGrants(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          checkPrivilegedGrants,
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to inspect permission grants.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var roles []string
	err := s.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN roles ON roles.id = permissions.role_id").
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Joins("JOIN actions ON actions.id = permissions.action_id").
		Where("permissions.is_active = ? AND roles.is_active = ?", true, true).
		Where("resources.name = ? AND actions.name = ?", permissions.ResourcePermissions, permissions.ActionManage).
		Where("roles.hierarchy < ?", permissions.HierarchyAdmin).
		Order("roles.name").
		Pluck("roles.name", &roles).Error
	if err != nil {
		return Check{
			ID:          checkPrivilegedGrants,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not inspect permission grants: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if len(roles) > 0 {
		return Check{
			ID:          checkPrivilegedGrants,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d role(s) below admin can manage permissions.", len(roles)),
			Remediation: "Revoke permissions:manage from roles that should not edit the permission matrix.",
			Details:     map[string]any{"roles": roles},
		}
	}

	return Check{
		ID:      checkPrivilegedGrants,
		Status:  StatusPass,
		Message: "Only administrators can manage permissions.",
	}
}
