package presets

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirkobrombin/go-tandem/v1/counter"
	"github.com/mirkobrombin/go-tandem/v1/lock"
	"github.com/mirkobrombin/go-tandem/v1/metrics"
)

// Options tunes a preset wiring. Zero fields keep the package defaults.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	WorkDelay    time.Duration
}

// NewStandalone creates a counter protected by a Peterson lock with the
// default timing and no instrumentation. Useful for demos and tests.
func NewStandalone() *counter.Counter {
	return counter.New(lock.NewPeterson())
}

// NewTuned creates a counter protected by a Peterson lock with the given
// timing. Zero fields fall back to the defaults.
func NewTuned(opts Options) *counter.Counter {
	l := lock.NewPeterson(
		lock.WithTimeout(opts.Timeout),
		lock.WithPollInterval(opts.PollInterval),
	)
	var copts []counter.Option
	if opts.WorkDelay > 0 {
		copts = append(copts, counter.WithWorkDelay(opts.WorkDelay))
	}
	return counter.New(l, copts...)
}

// NewInstrumented creates a counter whose lock exports Prometheus metrics
// to reg and emits OpenTelemetry spans, with the module metrics
// registered alongside. This is the wiring the telemetry example uses.
func NewInstrumented(reg prometheus.Registerer) *counter.Counter {
	metrics.RegisterCoreMetrics(reg)
	l := lock.NewPeterson(lock.WithMetrics(reg), lock.WithTracing())
	return counter.New(l, counter.WithTracing())
}
