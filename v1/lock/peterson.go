package lock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-tandem/v1/lock")

// procLabel maps a validated process identity to its metric label.
var procLabel = [NumProcesses]string{"0", "1"}

// Peterson implements Locker using Peterson's algorithm. A process
// announces its intention in flag, yields the turn to the other side and
// waits while the other side both wants the lock and owns the turn.
// Waiting is a genuine polling loop; the waiter re-reads the shared cells
// at the configured interval rather than parking on a runtime primitive.
type Peterson struct {
	flag [NumProcesses]atomic.Bool
	turn atomic.Int32

	timeout time.Duration
	poll    time.Duration

	counters [NumProcesses]procCounters

	acquireCounter *prometheus.CounterVec
	waitHist       *prometheus.HistogramVec
	heldGauge      *prometheus.GaugeVec
	traceEnabled   bool
}

// Option configures a Peterson lock.
type Option func(*Peterson)

// WithTimeout sets the bound on how long a single acquisition may wait
// before it fails. A zero or negative duration is ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Peterson) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollInterval sets how long a waiting process sleeps between checks
// of the shared cells. A zero or negative duration is ignored.
func WithPollInterval(d time.Duration) Option {
	return func(p *Peterson) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithMetrics enables Prometheus metrics collection using the provided registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Peterson) {
		p.acquireCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_lock_acquisitions_total",
			Help: "Total number of lock acquisition attempts by outcome",
		}, []string{"process", "result"})
		p.waitHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandem_lock_wait_seconds",
			Help:    "Time spent waiting to enter the critical section",
			Buckets: prometheus.DefBuckets,
		}, []string{"process"})
		p.heldGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tandem_lock_held",
			Help: "Whether the lock is currently held by the process",
		}, []string{"process"})
		reg.MustRegister(p.acquireCounter, p.waitHist, p.heldGauge)
	}
}

// defaultTimeout bounds a single acquisition wait; defaultPollInterval
// paces the re-check loop. Both can be overridden per lock.
const (
	defaultTimeout      = 5 * time.Second
	defaultPollInterval = 10 * time.Millisecond
)

// NewPeterson returns a new two-party Peterson lock.
//
// The wait bound and poll interval can be adjusted with WithTimeout and
// WithPollInterval. The defaults are five seconds and ten milliseconds.
func NewPeterson(opts ...Option) *Peterson {
	p := &Peterson{
		timeout: defaultTimeout,
		poll:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire blocks until the lock is obtained for process, the configured
// timeout elapses, or the context is cancelled. Timeouts and
// cancellations roll the intention flag back before returning, so a
// failed waiter can never block the other side.
func (p *Peterson) Acquire(ctx context.Context, process int) error {
	var span trace.Span
	if p.traceEnabled {
		ctx, span = tracer.Start(ctx, "Lock.Acquire")
		defer span.End()
		span.SetAttributes(attribute.Int("tandem.process", process))
	}
	if !validProcess(process) {
		if p.traceEnabled {
			span.SetAttributes(attribute.String("tandem.result", "invalid"))
		}
		return ErrInvalidProcess
	}
	if err := ctx.Err(); err != nil {
		if p.traceEnabled {
			span.SetAttributes(attribute.String("tandem.result", "canceled"))
		}
		return &AcquireError{Process: process, Err: err}
	}

	other := 1 - process
	start := time.Now()

	p.flag[process].Store(true)
	p.turn.Store(int32(other))
	for p.flag[other].Load() && p.turn.Load() == int32(other) {
		wait := time.Since(start)
		if wait > p.timeout {
			p.flag[process].Store(false)
			p.counters[process].fails.Add(1)
			if p.acquireCounter != nil {
				p.acquireCounter.WithLabelValues(procLabel[process], "timeout").Inc()
			}
			if p.traceEnabled {
				span.SetAttributes(attribute.String("tandem.result", "timeout"))
			}
			return &AcquireError{Process: process, Wait: wait, Err: ErrAcquireTimeout}
		}
		if err := ctx.Err(); err != nil {
			p.flag[process].Store(false)
			if p.acquireCounter != nil {
				p.acquireCounter.WithLabelValues(procLabel[process], "canceled").Inc()
			}
			if p.traceEnabled {
				span.SetAttributes(attribute.String("tandem.result", "canceled"))
			}
			return &AcquireError{Process: process, Wait: wait, Err: err}
		}
		time.Sleep(p.poll)
	}

	wait := time.Since(start)
	p.counters[process].recordEntry(wait)
	if p.acquireCounter != nil {
		p.acquireCounter.WithLabelValues(procLabel[process], "acquired").Inc()
	}
	if p.waitHist != nil {
		p.waitHist.WithLabelValues(procLabel[process]).Observe(wait.Seconds())
	}
	if p.heldGauge != nil {
		p.heldGauge.WithLabelValues(procLabel[process]).Set(1)
	}
	if p.traceEnabled {
		span.SetAttributes(
			attribute.String("tandem.result", "acquired"),
			attribute.Int64("tandem.wait_ms", wait.Milliseconds()),
		)
	}
	return nil
}

// TryAcquire attempts to obtain the lock for process without waiting. It
// returns true on success; on failure the intention flag is rolled back
// so no stale claim is left behind.
func (p *Peterson) TryAcquire(process int) (bool, error) {
	if !validProcess(process) {
		return false, ErrInvalidProcess
	}
	other := 1 - process
	p.flag[process].Store(true)
	p.turn.Store(int32(other))
	if p.flag[other].Load() && p.turn.Load() == int32(other) {
		p.flag[process].Store(false)
		return false, nil
	}
	p.counters[process].recordEntry(0)
	if p.acquireCounter != nil {
		p.acquireCounter.WithLabelValues(procLabel[process], "acquired").Inc()
	}
	if p.heldGauge != nil {
		p.heldGauge.WithLabelValues(procLabel[process]).Set(1)
	}
	return true, nil
}

// Release withdraws the process's intention, letting a waiting peer
// proceed. Releasing a lock that is not held is a no-op; the algorithm
// tracks intentions, not owners.
func (p *Peterson) Release(process int) error {
	if !validProcess(process) {
		return ErrInvalidProcess
	}
	p.flag[process].Store(false)
	if p.heldGauge != nil {
		p.heldGauge.WithLabelValues(procLabel[process]).Set(0)
	}
	return nil
}

// Metrics returns current usage statistics for both processes.
func (p *Peterson) Metrics() Stats {
	return Stats{Processes: [NumProcesses]ProcessStats{
		p.counters[0].snapshot(),
		p.counters[1].snapshot(),
	}}
}

// WithTracing enables OpenTelemetry tracing for acquisitions.
func WithTracing() Option {
	return func(p *Peterson) {
		p.traceEnabled = true
	}
}
