package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/qualitrack/qualitrack/pkg/metrics"
)

// JobSummary is the last known state of a background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastError           string        `json:"last_error,omitempty"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	LastDuration        time.Duration `json:"last_duration"`
	TotalRuns           uint64        `json:"total_runs"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
}

// JobTracker records background job outcomes for the maintenance health probe and the
// maintenance metrics.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobSummary
	now  func() time.Time
}

// NewJobTracker constructs an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*JobSummary), now: time.Now}
}

// RecordRun stores the outcome of one job execution.
func (t *JobTracker) RecordRun(job string, err error, duration time.Duration) {
	if job == "" {
		return
	}
	if duration < 0 {
		duration = 0
	}

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.jobs[job]
	if !ok {
		entry = &JobSummary{Job: job}
		t.jobs[job] = entry
	}
	entry.LastStatus = result
	entry.LastRunAt = now
	entry.LastDuration = duration
	entry.TotalRuns++
	if err != nil {
		entry.LastError = err.Error()
		entry.ConsecutiveFailures++
		return
	}
	entry.LastError = ""
	entry.LastSuccessAt = now
	entry.ConsecutiveFailures = 0
}

// Snapshot returns a copy of every tracked job ordered by name.
func (t *JobTracker) Snapshot() []JobSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]JobSummary, 0, len(t.jobs))
	for _, entry := range t.jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
