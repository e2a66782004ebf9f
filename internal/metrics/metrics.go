// Package metrics records operational metrics for pipeline runs behind a
// small pluggable Backend. The default backend is a no-op, so recording is
// always safe even when nothing is configured. Concrete systems (Datadog
// API, DogStatsD, Prometheus Pushgateway) live in subpackages.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Metric names understood by every backend.
const (
	StepTotal       = "etl_step_total"
	StepDuration    = "etl_step_duration_seconds"
	RetryTotal      = "etl_retries_total"
	RunTotal        = "etl_run_total"
	RunDuration     = "etl_run_duration_seconds"
	CheckTotal      = "etl_quality_checks_total"
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusSkipped   = "upstream_failed"
	StatusCancelled = "cancelled"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style sample.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	}
	return StatusFailure
}

// RecordStep records one task attempt: a count and its latency, labeled with
// success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordSkipped counts a task that never ran because an upstream failed or
// the run was stopped before dispatch.
func RecordSkipped(job, step, reason string) {
	current().IncCounter(StepTotal, 1, Labels{"job": job, "step": step, "status": reason})
}

// RecordRetry counts a retry scheduled after a failed attempt.
func RecordRetry(job, step string) {
	current().IncCounter(RetryTotal, 1, Labels{"job": job, "step": step})
}

// RecordRun records a whole DAG run. A run stopped by its context is
// labeled cancelled.
func RecordRun(job string, err error, d time.Duration) {
	lbls := Labels{"job": job, "status": status(err)}
	b := current()
	b.IncCounter(RunTotal, 1, lbls)
	b.ObserveHistogram(RunDuration, d.Seconds(), lbls)
}

// RecordChecks counts data quality checks by outcome.
func RecordChecks(job string, passed, failed int) {
	b := current()
	if passed > 0 {
		b.IncCounter(CheckTotal, float64(passed), Labels{"job": job, "status": StatusSuccess})
	}
	if failed > 0 {
		b.IncCounter(CheckTotal, float64(failed), Labels{"job": job, "status": StatusFailure})
	}
}
