// Package sched triggers a display refresh at the top of every hour.
package sched

import (
	"context"
	"log/slog"
	"time"
)

// Refresher is invoked at each hour boundary.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler sleeps until the next top of the hour, refreshes, and repeats.
// The sleep is recomputed from the wall clock after each refresh, so a
// slow refresh delays the next boundary rather than skipping it.
type Scheduler struct {
	refresher Refresher
	now       func() time.Time
}

// New creates a Scheduler driving r.
func New(r Refresher) *Scheduler {
	return &Scheduler{refresher: r, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		d := untilNextHour(s.now())
		slog.Info("scheduler: sleeping until next top of the hour", "sleep", d)

		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}

		slog.Info("scheduler: top of the hour reached, refreshing")
		s.refresher.Refresh(ctx)
	}
}

// untilNextHour returns the duration from now to the next hour boundary.
// Exactly on a boundary it returns a full hour, matching the original
// frame's behavior of never firing twice for one boundary.
func untilNextHour(now time.Time) time.Duration {
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	return top.Add(time.Hour).Sub(now)
}
