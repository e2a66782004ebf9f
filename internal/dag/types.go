package dag

import (
	"context"
	"time"
)

// Kind tags what a task does. The executor treats every kind the same way;
// the tag is carried for logging, metrics and graph rendering.
type Kind string

const (
	KindMarker        Kind = "marker"
	KindStage         Kind = "stage"
	KindLoadFact      Kind = "load_fact"
	KindLoadDimension Kind = "load_dimension"
	KindValidate      Kind = "validate"
)

// Run identifies one execution of a graph.
type Run struct {
	// ID is unique per execution.
	ID string
	// Token is the run token handed in by the caller (usually a date).
	Token string
	// LogicalDate is the point in time the run processes data for.
	LogicalDate time.Time
}

// Task is a unit of work in the graph.
//
// Run must be safe to call again after a failed attempt.
type Task interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context, run Run) error
}

// Edge represents a dependency relation: To depends on From.
type Edge struct {
	From string
	To   string
}

// Node is an immutable node in the Graph.
type Node struct {
	Name  string
	Kind  Kind
	Task  Task
	index int
}

// GraphHash is the deterministic identity of a Graph, computed from task
// names, kinds and edges. It does not depend on declaration order.
type GraphHash string

func (h GraphHash) String() string { return string(h) }

type marker struct{ name string }

// Marker returns a no-op task used to anchor the start and end of a graph.
func Marker(name string) Task { return marker{name: name} }

func (m marker) Name() string                         { return m.name }
func (m marker) Kind() Kind                           { return KindMarker }
func (m marker) Run(ctx context.Context, _ Run) error { return nil }
