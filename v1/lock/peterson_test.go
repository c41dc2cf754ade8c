package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPetersonAcquireRelease(t *testing.T) {
	l := NewPeterson()
	ctx := context.Background()
	if err := l.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release(0); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := l.Acquire(ctx, 1); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := l.Release(1); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestPetersonMutualExclusion(t *testing.T) {
	l := NewPeterson(WithTimeout(10*time.Second), WithPollInterval(time.Microsecond))
	ctx := context.Background()

	const iterations = 200
	var inside atomic.Int32
	var overlaps atomic.Int32
	shared := 0

	var wg sync.WaitGroup
	for process := 0; process < NumProcesses; process++ {
		wg.Add(1)
		go func(process int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if err := l.Acquire(ctx, process); err != nil {
					t.Errorf("process %d acquire: %v", process, err)
					return
				}
				if inside.Add(1) != 1 {
					overlaps.Add(1)
				}
				shared++
				inside.Add(-1)
				if err := l.Release(process); err != nil {
					t.Errorf("process %d release: %v", process, err)
					return
				}
			}
		}(process)
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Fatalf("critical section overlapped %d times", n)
	}
	if shared != NumProcesses*iterations {
		t.Fatalf("shared counter = %d, want %d", shared, NumProcesses*iterations)
	}
	s := l.Metrics()
	if s.Processes[0].Entries != iterations || s.Processes[1].Entries != iterations {
		t.Fatalf("entries = %d/%d, want %d each", s.Processes[0].Entries, s.Processes[1].Entries, iterations)
	}
}

func TestPetersonTimeout(t *testing.T) {
	l := NewPeterson(WithTimeout(30*time.Millisecond), WithPollInterval(time.Millisecond))
	ctx := context.Background()
	if err := l.Acquire(ctx, 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	start := time.Now()
	err := l.Acquire(ctx, 0)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("expected ErrAcquireTimeout, got %v", err)
	}
	var aerr *AcquireError
	if !errors.As(err, &aerr) || aerr.Process != 0 {
		t.Fatalf("expected AcquireError for process 0, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("timed out after %s, before the configured bound", elapsed)
	}
	if l.flag[0].Load() {
		t.Fatal("intention flag not rolled back after timeout")
	}
	s := l.Metrics()
	if s.Processes[0].Fails != 1 || s.Processes[0].Entries != 0 {
		t.Fatalf("unexpected stats after timeout: %+v", s.Processes[0])
	}

	if err := l.Release(1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := l.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire after peer release: %v", err)
	}
	_ = l.Release(0)
}

func TestPetersonTimeoutClearsIntention(t *testing.T) {
	l := NewPeterson(WithTimeout(20*time.Millisecond), WithPollInterval(time.Millisecond))
	ctx := context.Background()
	if err := l.Acquire(ctx, 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Acquire(ctx, 0); err == nil {
		t.Fatal("expected timeout while peer holds the lock")
	}
	if err := l.Release(1); err != nil {
		t.Fatalf("release: %v", err)
	}
	// a stale intention from the timed out side would make this wait
	if err := l.Acquire(ctx, 1); err != nil {
		t.Fatalf("reacquire after peer timeout: %v", err)
	}
	_ = l.Release(1)
}

func TestPetersonContextCanceled(t *testing.T) {
	l := NewPeterson(WithTimeout(10*time.Second), WithPollInterval(time.Millisecond))
	if err := l.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Acquire(cctx, 0)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	if errors.Is(err, ErrAcquireTimeout) {
		t.Fatal("cancellation must not report a lock timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatal("acquire did not respect context cancellation")
	}
	if l.flag[0].Load() {
		t.Fatal("intention flag not rolled back on cancellation")
	}
	if s := l.Metrics(); s.Processes[0].Fails != 0 {
		t.Fatalf("cancellation counted as timeout failure: %+v", s.Processes[0])
	}
}

func TestPetersonTryAcquire(t *testing.T) {
	l := NewPeterson()
	ok, err := l.TryAcquire(0)
	if err != nil || !ok {
		t.Fatalf("tryacquire: %v ok %v", err, ok)
	}
	if ok, err := l.TryAcquire(1); err != nil || ok {
		t.Fatalf("expected lock held, got ok %v err %v", ok, err)
	}
	if l.flag[1].Load() {
		t.Fatal("failed tryacquire left an intention behind")
	}
	if err := l.Release(0); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := l.TryAcquire(1); err != nil || !ok {
		t.Fatalf("expected lock re-acquired, ok %v err %v", ok, err)
	}
}

func TestPetersonInvalidProcess(t *testing.T) {
	l := NewPeterson()
	ctx := context.Background()
	if err := l.Acquire(ctx, 2); !errors.Is(err, ErrInvalidProcess) {
		t.Fatalf("acquire(2): %v", err)
	}
	if err := l.Release(-1); !errors.Is(err, ErrInvalidProcess) {
		t.Fatalf("release(-1): %v", err)
	}
	if _, err := l.TryAcquire(7); !errors.Is(err, ErrInvalidProcess) {
		t.Fatalf("tryacquire(7): %v", err)
	}
	if l.flag[0].Load() || l.flag[1].Load() {
		t.Fatal("rejected call touched shared state")
	}
	s := l.Metrics()
	for i, ps := range s.Processes {
		if ps.Entries != 0 || ps.Fails != 0 {
			t.Fatalf("process %d stats mutated: %+v", i, ps)
		}
	}
}

func TestPetersonReleaseWithoutHold(t *testing.T) {
	l := NewPeterson()
	if err := l.Release(0); err != nil {
		t.Fatalf("release without hold: %v", err)
	}
	if err := l.Release(1); err != nil {
		t.Fatalf("release without hold: %v", err)
	}
	if err := l.Acquire(context.Background(), 0); err != nil {
		t.Fatalf("acquire after idle releases: %v", err)
	}
	_ = l.Release(0)
}

func TestPetersonStats(t *testing.T) {
	l := NewPeterson()
	ctx := context.Background()

	if s := l.Metrics(); s.Processes[0].AvgWait != 0 {
		t.Fatalf("avg wait without entries = %s, want 0", s.Processes[0].AvgWait)
	}

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx, 0); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if err := l.Release(0); err != nil {
			t.Fatalf("release: %v", err)
		}
	}
	if err := l.Acquire(ctx, 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_ = l.Release(1)

	s := l.Metrics()
	if s.Processes[0].Entries != 3 || s.Processes[1].Entries != 1 {
		t.Fatalf("entries = %d/%d, want 3/1", s.Processes[0].Entries, s.Processes[1].Entries)
	}
	if s.Processes[0].Fails != 0 || s.Processes[1].Fails != 0 {
		t.Fatalf("unexpected fails: %+v", s)
	}
	if s.Processes[0].AvgWait > s.Processes[0].WaitTotal {
		t.Fatalf("avg wait %s exceeds total %s", s.Processes[0].AvgWait, s.Processes[0].WaitTotal)
	}
}

func TestPetersonWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewPeterson(WithMetrics(reg), WithTimeout(20*time.Millisecond), WithPollInterval(time.Millisecond))
	ctx := context.Background()
	if err := l.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Acquire(ctx, 1); err == nil {
		t.Fatal("expected timeout")
	}
	_ = l.Release(0)

	fams, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range fams {
		found[f.GetName()] = true
	}
	for _, name := range []string{"tandem_lock_acquisitions_total", "tandem_lock_wait_seconds", "tandem_lock_held"} {
		if !found[name] {
			t.Fatalf("metric %s not gathered", name)
		}
	}
}
