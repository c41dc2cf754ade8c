package validator

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mirkobrombin/go-tandem/v1/driver"
	"github.com/mirkobrombin/go-tandem/v1/lock"
)

// Mode defines validator behaviour.
type Mode int

const (
	ModeNoop Mode = iota
	ModeAlert
)

// Issue describes one invariant violation found in a report.
type Issue struct {
	Kind   string
	Detail string
}

// Validator audits completed runs against the invariants the lock is
// meant to preserve: the final value must equal the sum of the logged
// amounts, worker accounting must add up and each process must have
// entered the lock once per completed increment. The last check assumes
// the audited lock served only that run.
type Validator struct {
	mode       Mode
	mismatches uint64
}

// New creates a new Validator.
func New(mode Mode) *Validator {
	return &Validator{mode: mode}
}

// Audit checks rep for inconsistencies and returns the issues found.
// In ModeAlert each issue is also logged.
func (v *Validator) Audit(rep *driver.Report) []Issue {
	var issues []Issue

	var sum int64
	for _, e := range rep.Log {
		sum += e.Amount
	}
	if sum != rep.Final {
		issues = append(issues, Issue{
			Kind:   "value-mismatch",
			Detail: fmt.Sprintf("final value %d, access log sums to %d", rep.Final, sum),
		})
	}

	completed := 0
	for p := 0; p < lock.NumProcesses; p++ {
		w := rep.Workers[p]
		completed += w.Completed
		if w.Attempted != w.Completed+w.Failed {
			issues = append(issues, Issue{
				Kind:   "accounting",
				Detail: fmt.Sprintf("process %d attempted %d, completed %d and failed %d", p, w.Attempted, w.Completed, w.Failed),
			})
		}
		if entries := rep.Stats.Processes[p].Entries; entries != uint64(w.Completed) {
			issues = append(issues, Issue{
				Kind:   "entries-mismatch",
				Detail: fmt.Sprintf("process %d completed %d increments but entered the lock %d times", p, w.Completed, entries),
			})
		}
	}
	if len(rep.Log) != completed {
		issues = append(issues, Issue{
			Kind:   "log-length",
			Detail: fmt.Sprintf("access log holds %d entries for %d completed increments", len(rep.Log), completed),
		})
	}

	if len(issues) > 0 {
		atomic.AddUint64(&v.mismatches, uint64(len(issues)))
		if v.mode == ModeAlert {
			for _, is := range issues {
				slog.Warn("tandem: run audit failed", "run_id", rep.RunID, "kind", is.Kind, "detail", is.Detail)
			}
		}
	}
	return issues
}

// Metrics returns the number of issues detected across audits.
func (v *Validator) Metrics() uint64 {
	return atomic.LoadUint64(&v.mismatches)
}
