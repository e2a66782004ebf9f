package dag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds concurrent tasks when Executor.Parallelism is unset.
const DefaultParallelism = 4

// Hooks observe execution. All hooks are optional and are called from the
// goroutine that owns the change: OnTransition from the coordinator,
// OnAttempt from the task goroutine.
type Hooks struct {
	OnTransition func(task string, from, to TaskState)
	OnAttempt    func(node *Node, attempt int, err error, d time.Duration)
}

// Executor runs a Graph.
//
// A task is dispatched as soon as all of its dependencies have succeeded, up
// to Parallelism tasks at a time. Task attempts run on a context detached from
// cancellation: once a statement is issued it is allowed to finish. Cancelling
// the Run context stops new dispatches and retries; tasks not yet started
// stay pending.
type Executor struct {
	Graph       *Graph
	Parallelism int
	Retry       RetryPolicy
	Logger      *zap.Logger
	Hooks       Hooks

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor for g.
func NewExecutor(g *Graph) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	return &Executor{Graph: g, Parallelism: DefaultParallelism}, nil
}

type outcome struct {
	name     string
	err      error
	attempts int
	dur      time.Duration
}

// Run executes the graph once. The returned Result is always non-nil when
// the error is nil or a context error. A non-nil error other than a context
// error means an executor invariant was broken.
func (e *Executor) Run(ctx context.Context, run Run) (*Result, error) {
	if e.Graph == nil {
		return nil, fmt.Errorf("nil graph")
	}
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := e.now
	if now == nil {
		now = time.Now
	}
	limit := e.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}

	g := e.Graph
	state := NewExecutionState(g)
	res := &Result{
		Run:       run,
		GraphHash: g.Hash(),
		Attempts:  make(map[string]int, g.Len()),
		Durations: make(map[string]time.Duration, g.Len()),
		Errors:    map[string]error{},
		Started:   now(),
		graph:     g,
	}

	transition := func(name string, from, to TaskState) error {
		if err := Transition(state, name, from, to); err != nil {
			return err
		}
		if e.Hooks.OnTransition != nil {
			e.Hooks.OnTransition(name, from, to)
		}
		return nil
	}

	// Buffered to the node count so task goroutines never block on send.
	results := make(chan outcome, g.Len())
	var eg errgroup.Group
	eg.SetLimit(limit)

	inflight := 0
	for {
		if ctx.Err() == nil {
			for _, name := range ReadyTasks(g, state) {
				if err := transition(name, TaskPending, TaskRunning); err != nil {
					return nil, err
				}
				res.Order = append(res.Order, name)
				inflight++

				node := g.nodesByName[name]
				log.Info("task queued", zap.String("task", name), zap.String("kind", string(node.Kind)))
				eg.Go(func() error {
					results <- e.runTask(ctx, node, run, log)
					return nil
				})
			}
		}
		if inflight == 0 {
			break
		}

		o := <-results
		inflight--
		res.Attempts[o.name] = o.attempts
		res.Durations[o.name] = o.dur

		if o.err == nil {
			if err := transition(o.name, TaskRunning, TaskSucceeded); err != nil {
				return nil, err
			}
			log.Info("task succeeded", zap.String("task", o.name), zap.Int("attempts", o.attempts), zap.Duration("duration", o.dur))
			continue
		}

		res.Errors[o.name] = o.err
		marked, err := FailAndPropagate(g, state, o.name)
		if err != nil {
			return nil, err
		}
		if e.Hooks.OnTransition != nil {
			e.Hooks.OnTransition(o.name, TaskRunning, TaskFailed)
			for _, m := range marked {
				e.Hooks.OnTransition(m, TaskPending, TaskUpstreamFailed)
			}
		}
		log.Error("task failed",
			zap.String("task", o.name),
			zap.Int("attempts", o.attempts),
			zap.Strings("upstream_failed", marked),
			zap.Error(o.err))
	}
	_ = eg.Wait()

	res.FinalState = state.Clone()
	res.Finished = now()
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("run %s stopped: %w", run.ID, err)
	}
	return res, nil
}

func (e *Executor) runTask(ctx context.Context, node *Node, run Run, log *zap.Logger) outcome {
	sleep := e.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	now := e.now
	if now == nil {
		now = time.Now
	}

	// Statements already issued must not be cancelled mid-flight.
	taskCtx := context.WithoutCancel(ctx)

	start := now()
	attempts := e.Retry.Attempts()
	var err error
	n := 0
	for n < attempts {
		if n > 0 {
			wait := e.Retry.Backoff(n)
			log.Warn("task retrying",
				zap.String("task", node.Name),
				zap.Int("attempt", n+1),
				zap.Duration("backoff", wait),
				zap.Error(err))
			if serr := sleep(ctx, wait); serr != nil {
				break
			}
		}
		n++

		t0 := now()
		err = runAttempt(taskCtx, node, run)
		if e.Hooks.OnAttempt != nil {
			e.Hooks.OnAttempt(node, n, err, now().Sub(t0))
		}
		if err == nil {
			break
		}
	}
	return outcome{name: node.Name, err: err, attempts: n, dur: now().Sub(start)}
}

func runAttempt(ctx context.Context, node *Node, run Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: node.Name, Value: r}
		}
	}()
	return node.Task.Run(ctx, run)
}
