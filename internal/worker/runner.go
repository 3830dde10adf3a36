// Package worker drives the polling loop: run one cycle, sleep out the
// remainder of the interval, repeat until the context is cancelled.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Runner invokes CycleFn on a fixed cadence. The interval is measured from
// cycle start, so slow cycles shorten the following sleep down to zero but
// never stack.
type Runner struct {
	Interval time.Duration
	CycleFn  func(ctx context.Context) error
	Logger   *log.Logger
}

// Run loops until ctx is cancelled. Cycle errors are logged and absorbed;
// the next cycle runs on schedule regardless. Cancellation is honored at
// cycle boundaries, never mid-cycle.
func (r Runner) Run(ctx context.Context) error {
	if r.CycleFn == nil {
		return errors.New("worker: cycle function is nil")
	}
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}

	for {
		start := time.Now()

		if err := r.CycleFn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log().Error("cycle failed", "err", err)
		}

		wait := r.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		r.log().Info("cycle complete", "elapsed", time.Since(start).Round(time.Millisecond), "next_in", wait.Round(time.Millisecond))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r Runner) log() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
