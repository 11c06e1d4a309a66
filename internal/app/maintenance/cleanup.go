package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qualitrack/qualitrack/internal/database"
	"github.com/qualitrack/qualitrack/pkg/logger"
)

const (
	defaultSweepSpec = "@every 1m"
	defaultProbeSpec = "@every 30s"
)

const (
	jobCacheSweep = "permission_cache_sweep"
	jobStoreProbe = "permission_store_probe"
)

// CacheSweeper drops expired entries from the permission cache.
type CacheSweeper interface {
	SweepCache()
}

// RunRecorder receives the outcome of every job execution.
type RunRecorder interface {
	RecordRun(job string, err error, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, error, time.Duration) {}

// Cleaner coordinates background upkeep for the authorization engine: sweeping expired
// permission-cache entries and probing the permission store so outages show up in logs
// before requests start failing closed.
type Cleaner struct {
	sweeper CacheSweeper
	db      *gorm.DB
	cron    *cron.Cron
	log     *zap.Logger
	runs    RunRecorder

	sweepSchedule string
	probeSchedule string
	started       bool
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSweepSchedule overrides the cron expression for cache sweeps.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// WithProbeSchedule overrides the cron expression for store probes.
func WithProbeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.probeSchedule = spec
		}
	}
}

// WithRunRecorder reports job outcomes, typically to the maintenance health probe.
func WithRunRecorder(rec RunRecorder) Option {
	return func(cleaner *Cleaner) {
		if rec != nil {
			cleaner.runs = rec
		}
	}
}

// WithLogger overrides the logger used for job failures.
func WithLogger(log *zap.Logger) Option {
	return func(cleaner *Cleaner) {
		if log != nil {
			cleaner.log = log
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(sweeper CacheSweeper, db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sweeper:       sweeper,
		db:            db,
		sweepSchedule: defaultSweepSpec,
		probeSchedule: defaultProbeSpec,
		log:           logger.WithModule("maintenance"),
		runs:          nopRecorder{},
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it when at least one job exists.
func (c *Cleaner) Start() error {
	if c.sweeper == nil && c.db == nil {
		return nil
	}

	if c.sweeper != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, c.sweep); err != nil {
			return fmt.Errorf("maintenance: schedule cache sweep: %w", err)
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.probeSchedule, func() {
			if err := c.probe(); err != nil {
				c.log.Warn("permission store probe failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule store probe: %w", err)
		}
	}

	c.cron.Start()
	c.started = true
	return nil
}

// Stop halts the underlying scheduler, returning a context that is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil || !c.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	c.started = false
	return c.cron.Stop()
}

// Entries reports how many jobs are scheduled.
func (c *Cleaner) Entries() int {
	return len(c.cron.Entries())
}

// RunOnce executes every configured job sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sweeper != nil {
		c.sweep()
	}

	if c.db != nil {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, c.probe())
	}

	return errs
}

func (c *Cleaner) sweep() {
	start := time.Now()
	c.sweeper.SweepCache()
	elapsed := time.Since(start)
	c.runs.RecordRun(jobCacheSweep, nil, elapsed)
	c.log.Debug("permission cache swept", zap.Duration("elapsed", elapsed))
}

func (c *Cleaner) probe() error {
	start := time.Now()
	err := database.Ping(c.db)
	if err != nil {
		err = fmt.Errorf("maintenance: probe store: %w", err)
	}
	c.runs.RecordRun(jobStoreProbe, err, time.Since(start))
	return err
}
