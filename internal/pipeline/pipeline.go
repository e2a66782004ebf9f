// Package pipeline turns a pipeline configuration into the Sparkify DAG and
// runs it:
//
//	begin_execution
//	  -> stage tasks (parallel)
//	  -> fact load
//	  -> dimension loads (parallel)
//	  -> data quality checks
//	  -> stop_execution
//
// The orchestrator owns no warehouse logic. It wires loaders and the
// validator into a dag.Executor, records metrics and reports the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparkify/internal/config"
	"sparkify/internal/credentials"
	"sparkify/internal/dag"
	"sparkify/internal/loader"
	"sparkify/internal/metrics"
	"sparkify/internal/objectstore"
	"sparkify/internal/quality"
	"sparkify/internal/warehouse"
)

// Marker task names anchoring the graph.
const (
	BeginTask = "begin_execution"
	EndTask   = "stop_execution"
)

// Deps are the collaborators the tasks run against.
type Deps struct {
	Warehouse   warehouse.Pool
	Credentials credentials.Provider
	// Objects is optional; it enables stage preflight.
	Objects objectstore.Lister
	Logger  *zap.Logger
}

// Orchestrator runs one configured pipeline. It is safe to call Run from a
// scheduler; each call is an independent DAG run.
type Orchestrator struct {
	job    string
	graph  *dag.Graph
	exec   *dag.Executor
	checks int
	log    *zap.Logger

	now   func() time.Time
	newID func() string
}

// New validates p, builds every task and the graph, and prepares the
// executor. Validation warnings are logged; errors are returned together.
func New(p config.Pipeline, deps Deps) (*Orchestrator, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Warehouse == nil {
		return nil, fmt.Errorf("pipeline %s: nil warehouse", p.Job)
	}

	var errs []error
	for _, iss := range config.ValidatePipeline(p) {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
			continue
		}
		log.Warn("config warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("pipeline %s: invalid config: %w", p.Job, errors.Join(errs...))
	}

	tasks, edges, err := buildTasks(p, deps, log)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", p.Job, err)
	}
	g, err := dag.NewGraph(tasks, edges)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", p.Job, err)
	}
	exec, err := dag.NewExecutor(g)
	if err != nil {
		return nil, err
	}
	if p.Runtime.MaxParallel > 0 {
		exec.Parallelism = p.Runtime.MaxParallel
	}
	exec.Retry = dag.RetryPolicy{
		Retries:    p.Runtime.Retries,
		Delay:      p.Runtime.RetryDelay.Std(),
		Multiplier: p.Runtime.RetryMultiplier,
		MaxDelay:   p.Runtime.MaxRetryDelay.Std(),
	}
	exec.Logger = log

	o := &Orchestrator{
		job:    p.Job,
		graph:  g,
		exec:   exec,
		checks: len(p.Quality.TestCases),
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	exec.Hooks = dag.Hooks{
		OnAttempt:    o.onAttempt,
		OnTransition: o.onTransition,
	}
	return o, nil
}

// Graph returns the task graph.
func (o *Orchestrator) Graph() *dag.Graph { return o.graph }

// Run executes the DAG once for the given run token. A date or RFC 3339
// token sets the logical date; any other token is kept as an opaque id and
// the run uses the current time. Empty means now. The Result is returned whenever the graph ran.
// The error is a *RunError when any task failed, or wraps the context error
// when the run was stopped.
func (o *Orchestrator) Run(ctx context.Context, token string) (*dag.Result, error) {
	run := NewRun(token, o.now(), o.newID)
	log := o.log.With(zap.String("run_id", run.ID), zap.String("token", run.Token))
	log.Info("run started", zap.String("job", o.job), zap.String("graph", o.graph.Hash().String()))

	start := o.now()
	res, err := o.exec.Run(ctx, run)
	if res == nil {
		return nil, err
	}
	if runErr := newRunError(res); runErr != nil {
		if err != nil {
			err = errors.Join(runErr, err)
		} else {
			err = runErr
		}
	}
	if ctx.Err() != nil {
		for _, name := range res.InState(dag.TaskPending) {
			metrics.RecordSkipped(o.job, name, metrics.StatusCancelled)
		}
	}
	metrics.RecordRun(o.job, err, o.now().Sub(start))

	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("duration", o.now().Sub(start)))
		return res, err
	}
	log.Info("run succeeded", zap.Duration("duration", o.now().Sub(start)))
	return res, nil
}

func (o *Orchestrator) onAttempt(node *dag.Node, attempt int, err error, d time.Duration) {
	if node.Kind == dag.KindMarker {
		return
	}
	metrics.RecordStep(o.job, node.Name, err, d)
	if err != nil && attempt < o.exec.Retry.Attempts() {
		metrics.RecordRetry(o.job, node.Name)
	}
	if node.Kind == dag.KindValidate {
		var qe *quality.Error
		switch {
		case err == nil:
			metrics.RecordChecks(o.job, o.checks, 0)
		case errors.As(err, &qe):
			metrics.RecordChecks(o.job, o.checks-len(qe.Failures), len(qe.Failures))
		}
	}
}

func (o *Orchestrator) onTransition(task string, from, to dag.TaskState) {
	if to == dag.TaskUpstreamFailed {
		metrics.RecordSkipped(o.job, task, metrics.StatusSkipped)
	}
}

// RunError reports a run in which at least one task failed.
type RunError struct {
	RunID string
	// Failed lists tasks that ran and failed, UpstreamFailed the tasks never
	// attempted because of them. Both in topological order.
	Failed         []string
	UpstreamFailed []string
	Errors         map[string]error
}

func newRunError(res *dag.Result) *RunError {
	failed := res.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &RunError{
		RunID:          res.Run.ID,
		Failed:         failed,
		UpstreamFailed: res.UpstreamFailed(),
		Errors:         res.Errors,
	}
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: failed: %s", e.RunID, strings.Join(e.Failed, ", "))
	if len(e.UpstreamFailed) > 0 {
		fmt.Fprintf(&b, "; upstream_failed: %s", strings.Join(e.UpstreamFailed, ", "))
	}
	for _, name := range e.Failed {
		fmt.Fprintf(&b, "\n%s: %v", name, e.Errors[name])
	}
	return b.String()
}

// Unwrap exposes every task error, so errors.As finds a *quality.Error or a
// *loader.StatementError.
func (e *RunError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, name := range e.Failed {
		if err := e.Errors[name]; err != nil {
			out = append(out, err)
		}
	}
	return out
}

func buildTasks(p config.Pipeline, deps Deps, log *zap.Logger) ([]dag.Task, []dag.Edge, error) {
	env := loader.Env{
		Warehouse:   deps.Warehouse,
		Credentials: deps.Credentials,
		Objects:     deps.Objects,
		Logger:      log,
	}

	tasks := []dag.Task{dag.Marker(BeginTask)}
	var edges []dag.Edge
	edge := func(from, to string) { edges = append(edges, dag.Edge{From: from, To: to}) }

	var stageNames []string
	for _, s := range p.Stages {
		spec := loader.StageSpec{
			Name:           s.Name,
			Table:          s.Table,
			Bucket:         firstNonEmpty(s.Bucket, p.ObjectStorage.Bucket),
			Key:            s.S3Key,
			JSONPath:       s.JSONPath,
			Region:         firstNonEmpty(s.Region, p.ObjectStorage.Region),
			CredentialsRef: p.ObjectStorage.Credentials,
			IAMRole:        p.ObjectStorage.IAMRole,
			Preflight:      p.ObjectStorage.Preflight,
		}
		st, err := loader.NewStage(spec, env)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, st)
		edge(BeginTask, st.Name())
		stageNames = append(stageNames, st.Name())
	}

	fact, err := loader.NewFact(p.Fact.Name, p.Fact.Table, p.Fact.Columns, p.Fact.SQLQuery, env)
	if err != nil {
		return nil, nil, err
	}
	tasks = append(tasks, fact)
	if len(stageNames) == 0 {
		edge(BeginTask, fact.Name())
	}
	for _, s := range stageNames {
		edge(s, fact.Name())
	}

	var dimNames []string
	for _, d := range p.Dimensions {
		mode, err := loader.ParseMode(d.InsertMode)
		if err != nil {
			return nil, nil, fmt.Errorf("dimension %s: %w", d.Name, err)
		}
		dim, err := loader.NewDimension(d.Name, d.Table, d.Columns, d.SQLQuery, mode, env)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, dim)
		edge(fact.Name(), dim.Name())
		dimNames = append(dimNames, dim.Name())
	}

	checks := make([]quality.Check, len(p.Quality.TestCases))
	for i, tc := range p.Quality.TestCases {
		checks[i] = quality.Check{SQL: tc.CheckSQL, Expected: tc.ExpectedResult}
	}
	v, err := quality.NewValidator(p.Quality.Name, checks, deps.Warehouse, log)
	if err != nil {
		return nil, nil, err
	}
	tasks = append(tasks, v)
	if len(dimNames) == 0 {
		edge(fact.Name(), v.Name())
	}
	for _, d := range dimNames {
		edge(d, v.Name())
	}

	tasks = append(tasks, dag.Marker(EndTask))
	edge(v.Name(), EndTask)
	return tasks, edges, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
