package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations by resource, action and outcome (allowed|denied|error).
	// Names outside the permission catalog are reported as "unknown".
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitrack_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource", "action", "result"},
	)

	// PermissionCacheLookups counts resolved-permission cache lookups by result (hit|miss).
	PermissionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitrack_permission_cache_lookups_total",
			Help: "Permission cache lookups",
		},
		[]string{"result"},
	)

	// PermissionCacheInvalidations counts cache invalidations by kind (user|all).
	PermissionCacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitrack_permission_cache_invalidations_total",
			Help: "Permission cache invalidations",
		},
		[]string{"kind"},
	)

	// PermissionMutations counts grant/revoke writes by audit action and result.
	PermissionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitrack_permission_mutations_total",
			Help: "Permission grant and revoke writes",
		},
		[]string{"action", "result"},
	)

	// MaintenanceRuns counts background job executions by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitrack_maintenance_runs_total",
			Help: "Maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qualitrack_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
