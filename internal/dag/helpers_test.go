package dag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errBoom = errors.New("boom")

// recorder captures task start and end events in order.
type recorder struct {
	mu     sync.Mutex
	events []string

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) index(ev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == ev {
			return i
		}
	}
	return -1
}

type fakeTask struct {
	name  string
	kind  Kind
	delay time.Duration
	// failFirst makes the first N attempts fail.
	failFirst int32
	panics    bool
	rec       *recorder

	calls atomic.Int32
}

func (f *fakeTask) Name() string { return f.name }
func (f *fakeTask) Kind() Kind {
	if f.kind == "" {
		return KindStage
	}
	return f.kind
}

func (f *fakeTask) Run(ctx context.Context, run Run) error {
	n := f.calls.Add(1)
	if f.rec != nil {
		cur := f.rec.running.Add(1)
		for {
			m := f.rec.maxRunning.Load()
			if cur <= m || f.rec.maxRunning.CompareAndSwap(m, cur) {
				break
			}
		}
		f.rec.add("start:" + f.name)
		defer func() {
			f.rec.add("end:" + f.name)
			f.rec.running.Add(-1)
		}()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("kaboom")
	}
	if n <= f.failFirst {
		return errBoom
	}
	return nil
}

func tasks(ts ...*fakeTask) []Task {
	out := make([]Task, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }
