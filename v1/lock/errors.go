package lock

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProcess is returned when a process identity is outside the
// valid range. No shared lock state is touched in that case.
var ErrInvalidProcess = errors.New("tandem: process identity must be 0 or 1")

// ErrAcquireTimeout is the cause carried by an AcquireError when the
// configured wait bound elapses before the lock is obtained.
var ErrAcquireTimeout = errors.New("tandem: lock acquisition timed out")

// AcquireError reports a failed acquisition attempt. Err is the cause,
// either ErrAcquireTimeout or the context error that aborted the wait.
// The intention flag is always rolled back before the error is returned.
type AcquireError struct {
	Process int
	Wait    time.Duration
	Err     error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("tandem: process %d failed to acquire lock after %s: %v", e.Process, e.Wait, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AcquireError) Unwrap() error { return e.Err }

// ReleaseError reports a failed release attempt. The implementations in
// this package never fail a release after identity validation; the type
// is part of the contract for lockers whose release path can fail.
type ReleaseError struct {
	Process int
	Err     error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("tandem: process %d failed to release lock: %v", e.Process, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ReleaseError) Unwrap() error { return e.Err }
