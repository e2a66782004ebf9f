package dag

import "sort"

// ReadyTasks returns the task names eligible to start.
//
// A task is ready iff it is pending and every dependency has succeeded. The
// list is sorted by (depth asc, name asc). ReadyTasks does not mutate its
// arguments.
func ReadyTasks(g *Graph, state ExecutionState) []string {
	if g == nil {
		return nil
	}

	var ready []string
	for _, n := range g.nodes {
		if state[n.Name] != TaskPending {
			continue
		}
		depsOK := true
		for _, p := range g.incoming[n.index] {
			if state[g.nodes[p].Name] != TaskSucceeded {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, n.Name)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := g.nodesByName[ready[i]], g.nodesByName[ready[j]]
		if g.depth[a.index] != g.depth[b.index] {
			return g.depth[a.index] < g.depth[b.index]
		}
		return a.Name < b.Name
	})
	return ready
}
