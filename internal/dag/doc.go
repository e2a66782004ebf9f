// Package dag holds the task graph that sequences a pipeline run: an immutable
// validated graph, the per-run state machine, a pure ready-task scheduler and a
// bounded-parallel executor with a uniform retry policy.
package dag
