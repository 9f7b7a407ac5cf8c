// Package scheduler runs background jobs on cron schedules. Currently that is
// the month-insight prefetch.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tetcal/internal/calendar"
	appLog "tetcal/internal/log"
)

// Prefetcher warms a cache for the given month names and reports how many
// entries it stored.
type Prefetcher interface {
	Prefetch(ctx context.Context, monthNames ...string) int
}

type Scheduler struct {
	cron     *cron.Cron
	cache    Prefetcher
	year     int
	now      func() time.Time
	timeout  time.Duration
	spec     string
	location *time.Location
}

// Options configures New.
type Options struct {
	// Spec is a standard five-field cron expression.
	Spec string
	// Year is the calendar year served; outside it the job warms January
	// and February.
	Year     int
	Location *time.Location
	// Timeout bounds one prefetch run.
	Timeout time.Duration
	Now     func() time.Time
}

func New(cache Prefetcher, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(opts.Location)),
		cache:    cache,
		year:     opts.Year,
		now:      opts.Now,
		timeout:  opts.Timeout,
		spec:     opts.Spec,
		location: opts.Location,
	}
}

// Start registers the prefetch job and blocks until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("add insight prefetch: %w", err)
	}

	s.cron.Start()
	appLog.Info("scheduler started", "prefetch", s.spec, "tz", s.location.String())

	<-ctx.Done()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	appLog.Info("scheduler stopped")
}

// RunOnce warms the current and next month.
func (s *Scheduler) RunOnce(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	months := s.upcomingMonths()
	stored := s.cache.Prefetch(ctx, months...)
	appLog.Info("insight prefetch done", "months", months, "stored", stored)
	return stored
}

// upcomingMonths returns the display names of the current month and the
// next one. Dates outside the served year map to its start.
func (s *Scheduler) upcomingMonths() []string {
	now := s.now().In(s.location)
	m := int(now.Month()) - 1
	if s.year != 0 && now.Year() != s.year {
		m = 0
	}
	return []string{calendar.MonthName(m), calendar.MonthName(calendar.NextMonth(m))}
}
