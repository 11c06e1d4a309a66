package checks

import (
	"context"
	"time"

	"github.com/qualitrack/qualitrack/internal/monitoring"
	"github.com/qualitrack/qualitrack/internal/permissions"
)

// RoleCatalog is the slice of the permission store the probe reads.
type RoleCatalog interface {
	GetAllRoles(ctx context.Context) ([]permissions.RoleInfo, error)
}

// PermissionStore verifies that the store answering authorization lookups is reachable and
// seeded. Without an active role every check would be denied, so an empty catalog counts
// as degraded.
func PermissionStore(store RoleCatalog) monitoring.Check {
	return monitoring.NewCheck("permission_store", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "permission store not configured"}
		}

		roles, err := store.GetAllRoles(ctx)
		if err != nil {
			return monitoring.ResultFromError("permission_store", err, time.Since(start))
		}

		for _, role := range roles {
			if role.IsActive {
				return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
			}
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusDegraded,
			Details:  "no active roles",
			Duration: time.Since(start),
		}
	})
}
