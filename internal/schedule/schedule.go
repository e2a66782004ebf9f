// Package schedule triggers pipeline runs on a cron schedule. Runs never
// overlap: a tick that arrives while the previous run is still going is
// skipped and logged.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"sparkify/internal/dag"
)

// DefaultSpec runs once an hour, on the hour.
const DefaultSpec = "@hourly"

// Runner runs the pipeline once for a run token.
type Runner interface {
	Run(ctx context.Context, token string) (*dag.Result, error)
}

// Scheduler wraps a cron with a single pipeline job.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	runner Runner
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	now func() time.Time
}

// New parses spec (standard five-field cron or a descriptor such as
// "@hourly"; empty means DefaultSpec) and registers the job. Nothing runs
// until Start.
func New(spec string, r Runner, log *zap.Logger) (*Scheduler, error) {
	if r == nil {
		return nil, fmt.Errorf("schedule: nil runner")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSpec
	}

	clog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, runner: r, log: log, ctx: ctx, cancel: cancel, now: time.Now}
	id, err := c.AddFunc(spec, s.tick)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// tick runs the pipeline for the current minute.
func (s *Scheduler) tick() {
	token := s.now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	s.log.Info("scheduled run", zap.String("token", token))

	res, err := s.runner.Run(s.ctx, token)
	if err != nil {
		s.log.Error("scheduled run failed", zap.String("token", token), zap.Error(err))
		return
	}
	s.log.Info("scheduled run finished",
		zap.String("token", token),
		zap.Duration("duration", res.Finished.Sub(res.Started)))
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Time("next", s.Next()))
}

// Stop stops ticking and asks a running pipeline to stop dispatching new
// tasks, then waits for it to return.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		done := s.cron.Stop()
		s.cancel()
		<-done.Done()
		s.log.Info("scheduler stopped")
	})
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}
