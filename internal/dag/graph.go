package dag

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"
)

type edgeIndex struct {
	from int
	to   int
}

// Graph is an immutable, validated DAG definition.
//
// It is safe for concurrent read access.
type Graph struct {
	nodesByName map[string]*Node
	nodes       []*Node // canonical order: by name

	edges []edgeIndex // sorted

	outgoing [][]int // by canonical index, sorted ascending
	incoming [][]int // by canonical index, sorted ascending
	indeg    []int
	depth    []int // longest path from any root

	hash GraphHash
}

// NewGraph builds and validates a Graph.
//
// Validation runs immediately and rejects:
//   - an empty task list, nil tasks, empty or duplicate task names
//   - edges referencing unknown tasks
//   - duplicate edges
//   - self-loops
//   - any cycle (direct or indirect)
func NewGraph(tasks []Task, edges []Edge) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	nodesByName := make(map[string]*Node, len(tasks))
	nodes := make([]*Node, 0, len(tasks))
	for i, t := range tasks {
		if t == nil {
			return nil, invalidf("task %d is nil", i)
		}
		name := t.Name()
		if name == "" {
			return nil, invalidf("task name is required")
		}
		if _, exists := nodesByName[name]; exists {
			return nil, invalidf("duplicate task name: %q", name)
		}
		n := &Node{Name: name, Kind: t.Kind(), Task: t}
		nodesByName[name] = n
		nodes = append(nodes, n)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for i, n := range nodes {
		n.index = i
	}

	mapped := make([]edgeIndex, 0, len(edges))
	seen := make(map[edgeIndex]struct{}, len(edges))
	for _, e := range edges {
		from, okFrom := nodesByName[e.From]
		to, okTo := nodesByName[e.To]
		if !okFrom {
			return nil, invalidf("edge references unknown task (from): %q", e.From)
		}
		if !okTo {
			return nil, invalidf("edge references unknown task (to): %q", e.To)
		}
		if from == to {
			return nil, invalidf("self-loop: %q -> %q", e.From, e.To)
		}
		pair := edgeIndex{from: from.index, to: to.index}
		if _, exists := seen[pair]; exists {
			return nil, invalidf("duplicate edge: %q -> %q", e.From, e.To)
		}
		seen[pair] = struct{}{}
		mapped = append(mapped, pair)
	}

	sort.Slice(mapped, func(i, j int) bool {
		a, b := mapped[i], mapped[j]
		if a.from != b.from {
			return a.from < b.from
		}
		return a.to < b.to
	})

	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for _, e := range mapped {
		outgoing[e.from] = append(outgoing[e.from], e.to)
		incoming[e.to] = append(incoming[e.to], e.from)
		indeg[e.to]++
	}
	for i := range nodes {
		sort.Ints(outgoing[i])
		sort.Ints(incoming[i])
	}

	g := &Graph{
		nodesByName: nodesByName,
		nodes:       nodes,
		edges:       mapped,
		outgoing:    outgoing,
		incoming:    incoming,
		indeg:       indeg,
	}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	g.depth = g.computeDepth()
	g.hash = g.computeHash()
	return g, nil
}

// Hash returns the stable identity for this graph.
func (g *Graph) Hash() GraphHash { return g.hash }

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodesByName[name]
	return n, ok
}

// Nodes returns the nodes in canonical order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the dependency edges as (From, To) name pairs in canonical order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.nodes[e.from].Name, To: g.nodes[e.to].Name})
	}
	return out
}

// Upstream returns the direct dependencies of name, sorted.
func (g *Graph) Upstream(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	return g.names(g.incoming[n.index])
}

// Downstream returns the direct dependents of name, sorted.
func (g *Graph) Downstream(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[n.index])
}

// Depth returns the length of the longest path from any root to the node.
func (g *Graph) Depth(name string) (int, bool) {
	n, ok := g.nodesByName[name]
	if !ok {
		return 0, false
	}
	return g.depth[n.index], true
}

// TopologicalOrder returns a deterministic topological ordering of task names.
func (g *Graph) TopologicalOrder() []string {
	return g.names(g.topoOrderIndices())
}

// Levels groups task names by depth. Tasks in the same level never depend on
// each other and may run concurrently.
func (g *Graph) Levels() [][]string {
	maxDepth := 0
	for _, d := range g.depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	levels := make([][]string, maxDepth+1)
	for _, n := range g.nodes {
		d := g.depth[n.index]
		levels[d] = append(levels[d], n.Name)
	}
	return levels
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.nodes[i].Name)
	}
	return out
}

func (g *Graph) computeDepth() []int {
	depth := make([]int, len(g.nodes))
	for _, u := range g.topoOrderIndices() {
		for _, p := range g.incoming[u] {
			if d := depth[p] + 1; d > depth[u] {
				depth[u] = d
			}
		}
	}
	return depth
}

func (g *Graph) computeHash() GraphHash {
	h := xxh3.New()
	for _, n := range g.nodes {
		fmt.Fprintf(h, "n:%d:%s:%s\n", len(n.Name), n.Name, n.Kind)
	}
	for _, e := range g.edges {
		fmt.Fprintf(h, "e:%d:%d\n", e.from, e.to)
	}
	return GraphHash(fmt.Sprintf("%016x", h.Sum64()))
}
