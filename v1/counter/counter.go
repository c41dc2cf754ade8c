// Package counter provides a shared counter whose increments are
// serialized through a two-party lock, with an append-only access log.
package counter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-tandem/v1/lock"
	"github.com/mirkobrombin/go-tandem/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-tandem/v1/counter")

// AccessEntry records one completed increment. Duration spans from the
// start of the call to the append, so it includes the time spent waiting
// for the lock.
type AccessEntry struct {
	ID       string
	Process  int
	Op       string
	Amount   int64
	At       time.Time
	Duration time.Duration
}

// Counter is a shared counter whose mutations are serialized through a
// two-party lock. The value and the access log are guarded by that lock
// alone; the read accessors are meant for inspection once the workers
// have quiesced.
type Counter struct {
	lk    lock.Locker
	value int64
	log   []AccessEntry

	workDelay    time.Duration
	traceEnabled bool
}

// Option configures a Counter.
type Option func(*Counter)

// WithWorkDelay sets how long an increment holds the lock to simulate
// work inside the critical section. A negative duration is treated as
// zero.
func WithWorkDelay(d time.Duration) Option {
	return func(c *Counter) {
		if d < 0 {
			d = 0
		}
		c.workDelay = d
	}
}

// defaultWorkDelay keeps the critical section open long enough to make
// contention observable in demos.
const defaultWorkDelay = 100 * time.Millisecond

// New returns a Counter protected by lk.
func New(lk lock.Locker, opts ...Option) *Counter {
	c := &Counter{lk: lk, workDelay: defaultWorkDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Increment adds amount to the counter as process. The value is read,
// the work delay is spent and the sum is written back, all inside the
// critical section, followed by the access log append. The lock is
// released on every exit path once it has been acquired; a failed
// acquisition leaves the value and the log untouched.
func (c *Counter) Increment(ctx context.Context, process int, amount int64) error {
	var span trace.Span
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Counter.Increment")
		defer span.End()
		span.SetAttributes(
			attribute.Int("tandem.process", process),
			attribute.Int64("tandem.amount", amount),
		)
	}
	start := time.Now()
	if err := c.lk.Acquire(ctx, process); err != nil {
		metrics.FailureCounter.Inc()
		if c.traceEnabled {
			span.SetAttributes(attribute.String("tandem.result", "failed"))
		}
		return err
	}
	defer func() {
		_ = c.lk.Release(process)
	}()

	v := c.value
	if c.workDelay > 0 {
		time.Sleep(c.workDelay)
	}
	c.value = v + amount
	c.log = append(c.log, AccessEntry{
		ID:       uuid.NewString(),
		Process:  process,
		Op:       "increment",
		Amount:   amount,
		At:       time.Now(),
		Duration: time.Since(start),
	})
	metrics.IncrementCounter.Inc()
	if c.traceEnabled {
		span.SetAttributes(attribute.String("tandem.result", "ok"))
	}
	return nil
}

// Value returns the current counter value. Call it only when no worker
// is mid-increment; the bound lock is the sole guard.
func (c *Counter) Value() int64 {
	return c.value
}

// AccessLog returns a copy of the access log in completion order.
func (c *Counter) AccessLog() []AccessEntry {
	out := make([]AccessEntry, len(c.log))
	copy(out, c.log)
	return out
}

// Lock returns the lock guarding the counter.
func (c *Counter) Lock() lock.Locker {
	return c.lk
}

// WithTracing enables OpenTelemetry tracing for increments.
func WithTracing() Option {
	return func(c *Counter) {
		c.traceEnabled = true
	}
}
