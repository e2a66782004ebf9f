package dag

import (
	"time"
)

// Result is the outcome of one Executor.Run.
type Result struct {
	Run        Run
	GraphHash  GraphHash
	FinalState ExecutionState
	// Order lists tasks in the order they were started.
	Order     []string
	Attempts  map[string]int
	Durations map[string]time.Duration
	Errors    map[string]error
	Started   time.Time
	Finished  time.Time

	graph *Graph
}

// Succeeded reports whether every task succeeded.
func (r *Result) Succeeded() bool {
	for _, st := range r.FinalState {
		if st != TaskSucceeded {
			return false
		}
	}
	return true
}

// InState returns the tasks in state st, in topological order.
func (r *Result) InState(st TaskState) []string {
	var out []string
	for _, name := range r.graph.TopologicalOrder() {
		if r.FinalState[name] == st {
			out = append(out, name)
		}
	}
	return out
}

// Failed returns the tasks that ran and failed, in topological order.
func (r *Result) Failed() []string { return r.InState(TaskFailed) }

// UpstreamFailed returns the tasks never attempted because a dependency failed.
func (r *Result) UpstreamFailed() []string { return r.InState(TaskUpstreamFailed) }
