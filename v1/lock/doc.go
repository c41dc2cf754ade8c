// Package lock provides two-party mutual exclusion built on Peterson's
// algorithm: two intention flags and a turn cell, manipulated with
// sequentially consistent atomics, give exclusion and bounded waiting
// without a runtime mutex. Acquisitions carry a configurable wait bound
// and per-process usage statistics, with optional Prometheus and
// OpenTelemetry instrumentation. A sync.Mutex backed implementation of
// the same contract is included as a baseline.
package lock
