package dag

import "fmt"

// Transition moves one task from state from to state to.
//
// When to use: every executor state change goes through here so a task
// cannot, for example, succeed without having been started.
//
// Edge cases:
//   - from must match the current state; a mismatch is an error and the
//     state is left untouched.
//   - Allowed moves are pending -> running, pending -> upstream_failed,
//     running -> succeeded and running -> failed. Terminal states never move.
func Transition(state ExecutionState, taskName string, from, to TaskState) error {
	cur, ok := state[taskName]
	switch {
	case !ok:
		return fmt.Errorf("transition %q: task not in state", taskName)
	case cur != from:
		return fmt.Errorf("transition %q: state is %s, caller expected %s", taskName, cur, from)
	case !allowed(from, to):
		return fmt.Errorf("transition %q: %s -> %s not allowed", taskName, from, to)
	}
	state[taskName] = to
	return nil
}

func allowed(from, to TaskState) bool {
	switch from {
	case TaskPending:
		return to == TaskRunning || to == TaskUpstreamFailed
	case TaskRunning:
		return to == TaskSucceeded || to == TaskFailed
	}
	return false
}

// FailAndPropagate marks taskName failed and every pending descendant
// upstream_failed. It returns the descendants it marked, in name order.
//
// When to use: the executor calls it once per task whose last attempt
// failed, so nothing downstream of a failure is ever dispatched.
//
// Edge cases:
//   - taskName may already be failed; propagation is repeated harmlessly.
//   - Descendants already terminal are left as they are.
//   - A running descendant means a task started before its inputs
//     succeeded. That is reported as an error and state is not changed.
func FailAndPropagate(g *Graph, state ExecutionState, taskName string) ([]string, error) {
	if g == nil {
		return nil, fmt.Errorf("fail %q: nil graph", taskName)
	}
	node, ok := g.nodesByName[taskName]
	if !ok {
		return nil, fmt.Errorf("fail %q: unknown task", taskName)
	}
	if cur := state[taskName]; cur != TaskRunning && cur != TaskFailed {
		return nil, fmt.Errorf("fail %q: cannot fail from state %q", taskName, cur)
	}

	reach := g.descendants(node.index)
	for i, in := range reach {
		if in && state[g.nodes[i].Name] == TaskRunning {
			return nil, fmt.Errorf("fail %q: descendant %q is already running", taskName, g.nodes[i].Name)
		}
	}

	state[taskName] = TaskFailed
	var marked []string
	for i, in := range reach {
		name := g.nodes[i].Name
		if in && state[name] == TaskPending {
			state[name] = TaskUpstreamFailed
			marked = append(marked, name)
		}
	}
	return marked, nil
}

// descendants flags every node reachable from u, excluding u itself.
func (g *Graph) descendants(u int) []bool {
	seen := make([]bool, len(g.nodes))
	stack := append([]int(nil), g.outgoing[u]...)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v] {
			continue
		}
		seen[v] = true
		stack = append(stack, g.outgoing[v]...)
	}
	return seen
}
