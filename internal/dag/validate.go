package dag

import "container/heap"

// validateAcyclic returns a cycle error when Kahn's pass cannot order every
// node.
//
// Edge cases:
//   - Several cycles: only the first one met by findCycle is reported.
//   - Self-loops never get here; NewGraph rejects them earlier.
func (g *Graph) validateAcyclic() error {
	if len(g.topoOrderIndices()) == len(g.nodes) {
		return nil
	}
	return cycleError(g.findCycle())
}

// indexQueue pops the smallest node index first.
type indexQueue []int

func (q indexQueue) Len() int           { return len(q) }
func (q indexQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q indexQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *indexQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *indexQueue) Pop() any {
	last := (*q)[len(*q)-1]
	*q = (*q)[:len(*q)-1]
	return last
}

// topoOrderIndices is Kahn's algorithm over node indices. Ties between ready
// nodes go to the lower index, which is name order, so the result is stable.
// On a cyclic graph the nodes on or behind a cycle are missing from the
// result.
func (g *Graph) topoOrderIndices() []int {
	remaining := append([]int(nil), g.indeg...)

	q := &indexQueue{}
	for i, n := range remaining {
		if n == 0 {
			heap.Push(q, i)
		}
	}

	order := make([]int, 0, len(remaining))
	for q.Len() > 0 {
		u := heap.Pop(q).(int)
		order = append(order, u)
		for _, v := range g.outgoing[u] {
			if remaining[v]--; remaining[v] == 0 {
				heap.Push(q, v)
			}
		}
	}
	return order
}

// findCycle walks the graph depth first in name order and returns the first
// cycle it closes, as names with the entry node repeated at the end
// ("a -> b -> c -> a" comes back as [a b c a]). It returns nil on an acyclic
// graph.
func (g *Graph) findCycle() []string {
	const (
		unseen = iota
		onPath
		done
	)
	mark := make([]int, len(g.nodes))
	var path []int

	var walk func(u int) []int
	walk = func(u int) []int {
		mark[u] = onPath
		path = append(path, u)
		for _, v := range g.outgoing[u] {
			switch mark[v] {
			case onPath:
				for i, p := range path {
					if p == v {
						return append(append([]int(nil), path[i:]...), v)
					}
				}
			case unseen:
				if c := walk(v); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		mark[u] = done
		return nil
	}

	for i := range g.nodes {
		if mark[i] != unseen {
			continue
		}
		if c := walk(i); c != nil {
			return g.names(c)
		}
	}
	return nil
}
