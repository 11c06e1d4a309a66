package checks

import (
	"context"
	"strings"
	"time"

	"github.com/qualitrack/qualitrack/internal/monitoring"
)

const defaultMaintenanceMaxAge = 10 * time.Minute

// JobSource exposes tracked background jobs.
type JobSource interface {
	Snapshot() []monitoring.JobSummary
}

// Maintenance verifies that background jobs keep succeeding. A job failing repeatedly is
// down; a job that has not run within maxAge is degraded. A non-positive maxAge selects
// ten minutes.
func Maintenance(source JobSource, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if source == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		jobs := source.Snapshot()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no maintenance runs recorded",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var failures []string
		for _, job := range jobs {
			if job.ConsecutiveFailures > 1 {
				status = monitoring.WorstStatus(status, monitoring.StatusDown)
				failures = append(failures, job.Job+": "+job.LastError)
				continue
			}
			if !job.LastRunAt.IsZero() && start.Sub(job.LastRunAt) > maxAge {
				status = monitoring.WorstStatus(status, monitoring.StatusDegraded)
				failures = append(failures, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(failures, "; "),
			Duration: time.Since(start),
		}
	})
}
