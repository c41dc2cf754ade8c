package lock

import "context"

// NumProcesses is the number of process identities the lock arbitrates.
// Valid identities are 0 and 1.
const NumProcesses = 2

// Locker is the two-party mutual exclusion contract shared by the
// implementations in this package.
type Locker interface {
	// Acquire blocks until the lock is obtained for process, the
	// configured timeout elapses, or the context is cancelled.
	Acquire(ctx context.Context, process int) error
	// TryAcquire attempts to obtain the lock without waiting. It
	// returns true on success.
	TryAcquire(process int) (bool, error)
	// Release withdraws the process's hold on the lock. Releasing a
	// lock that is not held is a no-op.
	Release(process int) error
	// Metrics returns current usage statistics for both processes.
	Metrics() Stats
}

func validProcess(process int) bool {
	return process >= 0 && process < NumProcesses
}
