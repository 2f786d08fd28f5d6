package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"GrantScanner/internal/ports"
)

// CronScheduler fires a job on every tick of a five-field cron expression.
type CronScheduler struct {
	expr       string
	loc        *time.Location
	runOnStart bool
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Options tunes a CronScheduler.
type Options struct {
	Location   *time.Location
	RunOnStart bool
	Logger     *slog.Logger
}

// NewCronScheduler validates the cron expression up front.
func NewCronScheduler(expr string, opts Options) (*CronScheduler, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{
		expr:       expr,
		loc:        loc,
		runOnStart: opts.RunOnStart,
		logger:     opts.Logger,
		now:        time.Now,
	}, nil
}

// NextRun returns the first tick strictly after from, in the scheduler location.
func (c *CronScheduler) NextRun(from time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(c.expr, from.In(c.loc), false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next tick for %q: %w", c.expr, err)
	}
	return next, nil
}

// Start launches the tick loop; a second Start while running is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go c.loop(ctx, job, stop, done)
	return nil
}

func (c *CronScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)

	if c.runOnStart {
		job(c.now())
	}

	for {
		next, err := c.NextRun(c.now())
		if err != nil {
			c.logError("cron schedule stopped", "error", err)
			return
		}
		c.debug("next scheduled run", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case t := <-timer.C:
			job(t)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop halts the tick loop and waits for a running job to return.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronScheduler) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *CronScheduler) logError(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
