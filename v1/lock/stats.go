package lock

import (
	"sync/atomic"
	"time"
)

// ProcessStats reports lock usage for a single process identity. AvgWait
// is derived from WaitTotal and Entries at snapshot time; it is zero when
// the process has never entered the critical section.
type ProcessStats struct {
	Entries   uint64
	WaitTotal time.Duration
	AvgWait   time.Duration
	Fails     uint64
}

// Stats reports lock usage for both process identities, indexed by
// process.
type Stats struct {
	Processes [NumProcesses]ProcessStats
}

// procCounters accumulates usage for one process. The fields are atomics
// so a snapshot never tears while the other side is mid-acquisition.
type procCounters struct {
	entries   atomic.Uint64
	waitNanos atomic.Int64
	fails     atomic.Uint64
}

func (c *procCounters) recordEntry(wait time.Duration) {
	c.entries.Add(1)
	c.waitNanos.Add(int64(wait))
}

func (c *procCounters) snapshot() ProcessStats {
	s := ProcessStats{
		Entries:   c.entries.Load(),
		WaitTotal: time.Duration(c.waitNanos.Load()),
		Fails:     c.fails.Load(),
	}
	if s.Entries > 0 {
		s.AvgWait = s.WaitTotal / time.Duration(s.Entries)
	}
	return s
}
