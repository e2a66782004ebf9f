package dag

// TaskState is the runtime execution state of a node. It lives outside the
// Graph so one graph can be executed many times.
type TaskState string

const (
	TaskPending        TaskState = "pending"
	TaskRunning        TaskState = "running"
	TaskSucceeded      TaskState = "succeeded"
	TaskFailed         TaskState = "failed"
	TaskUpstreamFailed TaskState = "upstream_failed"
)

// ExecutionState maps task name to its current TaskState.
type ExecutionState map[string]TaskState

// NewExecutionState returns a state with every node pending.
func NewExecutionState(g *Graph) ExecutionState {
	st := make(ExecutionState, len(g.nodes))
	for _, n := range g.nodes {
		st[n.Name] = TaskPending
	}
	return st
}

// Clone returns an independent copy.
func (s ExecutionState) Clone() ExecutionState {
	cp := make(ExecutionState, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// IsTerminal reports whether the state is final for this run.
func IsTerminal(s TaskState) bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskUpstreamFailed:
		return true
	default:
		return false
	}
}
