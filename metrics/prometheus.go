package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the storage engine.
type Metrics struct {
	// Request-path operations
	GetsTotal         prometheus.Counter
	CreatesTotal      prometheus.Counter
	BatchCreatesTotal prometheus.Counter
	DeletesTotal      prometheus.Counter

	// Rejections
	QuotaRejectionsTotal  prometheus.Counter
	KeyConflictsTotal     prometheus.Counter
	VersionConflictsTotal prometheus.Counter

	// Sweeper
	SweepRunsTotal     prometheus.Counter
	SweepFailuresTotal prometheus.Counter
	SweepMarkedTotal   prometheus.Counter
}

// New creates and registers all metrics with the given registerer. Tests
// should pass a fresh prometheus.NewRegistry() so repeated construction
// doesn't collide on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_gets_total",
			Help: "Total number of get operations",
		}),
		CreatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_creates_total",
			Help: "Total number of single create operations",
		}),
		BatchCreatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_batch_creates_total",
			Help: "Total number of batch create operations",
		}),
		DeletesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_deletes_total",
			Help: "Total number of delete operations",
		}),
		QuotaRejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_quota_rejections_total",
			Help: "Total number of writes rejected for exceeding a tenant's storage limit",
		}),
		KeyConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_key_conflicts_total",
			Help: "Total number of creates rejected because the key was already taken",
		}),
		VersionConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_version_conflicts_total",
			Help: "Total number of operations that lost an optimistic concurrency race",
		}),
		SweepRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_sweep_runs_total",
			Help: "Total number of expiration sweep passes",
		}),
		SweepFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_sweep_failures_total",
			Help: "Total number of sweep passes that failed and will retry on the next tick",
		}),
		SweepMarkedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tenantkv_sweep_marked_total",
			Help: "Total number of entries flagged expired by the sweeper",
		}),
	}
}
