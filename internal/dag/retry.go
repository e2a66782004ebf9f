package dag

import (
	"context"
	"time"
)

// RetryPolicy applies to every task kind alike. A task gets Retries+1
// attempts; the wait before attempt n+1 is Delay*Multiplier^(n-1), capped at
// MaxDelay when MaxDelay > 0.
type RetryPolicy struct {
	Retries    int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// Attempts returns the total number of attempts a task gets.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(failed int) time.Duration {
	if failed < 1 || p.Delay <= 0 {
		return 0
	}
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	d := float64(p.Delay)
	for i := 1; i < failed; i++ {
		d *= m
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
