// Package driver runs the canonical two-worker demonstration against a
// lock-protected counter and reports the outcome.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mirkobrombin/go-tandem/v1/counter"
	"github.com/mirkobrombin/go-tandem/v1/lock"
	"github.com/mirkobrombin/go-tandem/v1/metrics"
)

// ErrWorkerProcesses is returned when the two workers do not cover the
// process identities 0 and 1 exactly.
var ErrWorkerProcesses = errors.New("tandem: workers must cover processes 0 and 1")

// Worker describes one side of the demonstration: the process identity
// it runs as, the amounts it increments by and the pause between calls.
type Worker struct {
	Process int
	Amounts []int64
	Delay   time.Duration
}

// WorkerResult accounts for one worker's increments.
type WorkerResult struct {
	Process   int
	Attempted int
	Completed int
	Failed    int
}

// Report summarizes a completed run.
type Report struct {
	RunID   string
	Final   int64
	Workers [lock.NumProcesses]WorkerResult
	Stats   lock.Stats
	Log     []counter.AccessEntry
	Elapsed time.Duration
}

// Run drives both workers against c until their amounts are exhausted,
// then collects the final value, the access log and the lock statistics.
// A failed increment is logged and recorded, not fatal: the worker moves
// on to its next amount. Run itself fails only on invalid worker wiring
// or a cancelled context.
func Run(ctx context.Context, c *counter.Counter, a, b Worker) (*Report, error) {
	if a.Process < 0 || a.Process >= lock.NumProcesses ||
		b.Process < 0 || b.Process >= lock.NumProcesses ||
		a.Process == b.Process {
		return nil, ErrWorkerProcesses
	}
	runID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	rep := &Report{RunID: runID}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range []Worker{a, b} {
		w := w
		g.Go(func() error {
			res, err := runWorker(ctx, c, w)
			rep.Workers[w.Process] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Final = c.Value()
	rep.Stats = c.Lock().Metrics()
	rep.Log = c.AccessLog()
	rep.Elapsed = time.Since(start)
	slog.Info("tandem: run complete",
		"run_id", rep.RunID,
		"final", rep.Final,
		"completed", rep.Workers[0].Completed+rep.Workers[1].Completed,
		"failed", rep.Workers[0].Failed+rep.Workers[1].Failed,
		"elapsed", rep.Elapsed)
	return rep, nil
}

// runWorker paces one worker through its amounts. Increment failures are
// swallowed so a timed out acquisition never ends the demonstration.
func runWorker(ctx context.Context, c *counter.Counter, w Worker) (WorkerResult, error) {
	res := WorkerResult{Process: w.Process}
	metrics.WorkerGauge.Inc()
	defer metrics.WorkerGauge.Dec()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if w.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(w.Delay), 1)
	}
	for _, amount := range w.Amounts {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		res.Attempted++
		if err := c.Increment(ctx, w.Process, amount); err != nil {
			res.Failed++
			slog.Warn("tandem: increment failed (continuing)",
				"process", w.Process, "amount", amount, "error", err)
			continue
		}
		res.Completed++
	}
	return res, nil
}
