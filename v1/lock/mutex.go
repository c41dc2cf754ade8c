package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Mutex implements Locker using the runtime's sync.Mutex. Validation,
// timeout handling and statistics match Peterson; only the exclusion
// mechanism differs. It is the baseline the bench command compares the
// algorithm against.
type Mutex struct {
	mu     sync.Mutex
	holder atomic.Int32

	timeout time.Duration
	poll    time.Duration

	counters [NumProcesses]procCounters
}

// NewMutex returns a mutex-backed locker. Non-positive durations fall
// back to the package defaults.
func NewMutex(timeout, poll time.Duration) *Mutex {
	m := &Mutex{timeout: defaultTimeout, poll: defaultPollInterval}
	if timeout > 0 {
		m.timeout = timeout
	}
	if poll > 0 {
		m.poll = poll
	}
	m.holder.Store(-1)
	return m
}

// Acquire blocks until the lock is obtained for process, the configured
// timeout elapses, or the context is cancelled.
func (m *Mutex) Acquire(ctx context.Context, process int) error {
	if !validProcess(process) {
		return ErrInvalidProcess
	}
	if err := ctx.Err(); err != nil {
		return &AcquireError{Process: process, Err: err}
	}
	start := time.Now()
	for !m.mu.TryLock() {
		wait := time.Since(start)
		if wait > m.timeout {
			m.counters[process].fails.Add(1)
			return &AcquireError{Process: process, Wait: wait, Err: ErrAcquireTimeout}
		}
		if err := ctx.Err(); err != nil {
			return &AcquireError{Process: process, Wait: wait, Err: err}
		}
		time.Sleep(m.poll)
	}
	m.holder.Store(int32(process))
	m.counters[process].recordEntry(time.Since(start))
	return nil
}

// TryAcquire attempts to obtain the lock without waiting. It returns
// true on success.
func (m *Mutex) TryAcquire(process int) (bool, error) {
	if !validProcess(process) {
		return false, ErrInvalidProcess
	}
	if !m.mu.TryLock() {
		return false, nil
	}
	m.holder.Store(int32(process))
	m.counters[process].recordEntry(0)
	return true, nil
}

// Release frees the lock if the process holds it. Releasing a lock held
// by the other process, or not held at all, is a no-op.
func (m *Mutex) Release(process int) error {
	if !validProcess(process) {
		return ErrInvalidProcess
	}
	if m.holder.CompareAndSwap(int32(process), -1) {
		m.mu.Unlock()
	}
	return nil
}

// Metrics returns current usage statistics for both processes.
func (m *Mutex) Metrics() Stats {
	return Stats{Processes: [NumProcesses]ProcessStats{
		m.counters[0].snapshot(),
		m.counters[1].snapshot(),
	}}
}
