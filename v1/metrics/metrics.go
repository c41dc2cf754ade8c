package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IncrementCounter tracks completed counter increments.
	IncrementCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tandem_increments_total",
		Help: "Total number of completed counter increments",
	})
	// FailureCounter tracks increments abandoned because the lock could
	// not be acquired.
	FailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tandem_increment_failures_total",
		Help: "Total number of increments that failed to acquire the lock",
	})
	// WorkerGauge reports the number of active driver workers.
	WorkerGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tandem_active_workers",
		Help: "Current number of active driver workers",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers tandem core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(IncrementCounter, FailureCounter, WorkerGauge)
}
