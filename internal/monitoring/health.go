package monitoring

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qualitrack/qualitrack/internal/permissions"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results. Checks keep registration order.
type HealthReport struct {
	Success   bool          `json:"success"`
	Status    ProbeStatus   `json:"status"`
	Checks    []ProbeResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Check encapsulates a single dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck constructs a health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager runs the readiness probes behind /health. Probes run concurrently and
// every probe is bounded by the manager timeout.
type HealthManager struct {
	checks  []Check
	timeout time.Duration
}

// NewHealthManager constructs an empty manager. A non-positive timeout falls back to the
// permission store timeout.
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = permissions.DefaultStoreTimeout
	}
	return &HealthManager{timeout: timeout}
}

// Register appends a probe. Unnamed probes are ignored.
func (m *HealthManager) Register(check Check) {
	if check.Name == "" {
		return
	}
	m.checks = append(m.checks, check)
}

// Len reports how many probes are registered.
func (m *HealthManager) Len() int {
	return len(m.checks)
}

// Evaluate executes every probe and folds the results: any probe down makes the report
// down, otherwise any degraded probe makes it degraded.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ProbeResult, len(m.checks))
	var g errgroup.Group
	for i, check := range m.checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			results[i] = runCheck(probeCtx, check)
			return nil
		})
	}
	_ = g.Wait()

	report := HealthReport{
		Success:   true,
		Status:    StatusUp,
		Checks:    results,
		CheckedAt: time.Now().UTC(),
	}
	for _, result := range results {
		report.Status = WorstStatus(report.Status, result.Status)
	}
	report.Success = report.Status == StatusUp
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			details := "panic recovered"
			switch v := rec.(type) {
			case string:
				details = v
			case error:
				details = v.Error()
			}
			result = ProbeResult{Status: StatusDown, Details: details}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(ctx)
}

// WorstStatus returns the more severe of two statuses.
func WorstStatus(current, candidate ProbeStatus) ProbeStatus {
	if current == StatusDown || candidate == StatusDown {
		return StatusDown
	}
	if current == StatusDegraded || candidate == StatusDegraded {
		return StatusDegraded
	}
	return StatusUp
}

// ResultFromError converts an error into a ProbeResult. Timeouts count as degraded.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
