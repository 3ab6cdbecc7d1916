// Package scheduler triggers the daily billing run and overdue sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/gymledger/internal/usecase"
)

// Jobs is the work the scheduler triggers. *usecase.BillingGenerator satisfies it.
type Jobs interface {
	RunAll(ctx context.Context) (*usecase.GenerationResult, error)
	SweepAll(ctx context.Context) (*usecase.SweepResult, error)
}

var _ Jobs = (*usecase.BillingGenerator)(nil)

// Config for Scheduler.
type Config struct {
	Location    *time.Location
	BillingSpec string        // standard 5-field cron spec
	OverdueSpec string        // standard 5-field cron spec
	JobTimeout  time.Duration // upper bound of one run
}

// Scheduler runs Jobs on cron specs in a fixed location.
// A run still in progress when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	logger  zerolog.Logger
	timeout time.Duration
	ctx     context.Context
}

// New registers both jobs. It fails on an invalid spec.
func New(cfg Config, jobs Jobs, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    jobs,
		logger:  logger,
		timeout: cfg.JobTimeout,
		ctx:     context.Background(),
	}

	if _, err := s.cron.AddFunc(cfg.BillingSpec, func() { s.RunBilling(s.ctx) }); err != nil {
		return nil, fmt.Errorf("billing schedule %q: %w", cfg.BillingSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.OverdueSpec, func() { s.RunOverdueSweep(s.ctx) }); err != nil {
		return nil, fmt.Errorf("overdue schedule %q: %w", cfg.OverdueSpec, err)
	}
	return s, nil
}

// Start runs the cron loop in the background. Jobs derive their context from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info().Time("next", e.Next).Msg("job scheduled")
	}
}

// Stop halts scheduling and waits for running jobs, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunBilling executes one billing run across every tenant.
func (s *Scheduler) RunBilling(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.jobs.RunAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("billing run failed")
		return
	}
	s.logger.Info().
		Int("generated", res.Generated).
		Int("existing", res.Existing).
		Int("skipped", res.Skipped).
		Int("errored", res.Errored).
		Dur("elapsed", time.Since(start)).
		Msg("billing run finished")
}

// RunOverdueSweep executes one overdue sweep across every tenant.
func (s *Scheduler) RunOverdueSweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.jobs.SweepAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	s.logger.Info().Int64("updated", res.Updated).Int("failed_tenants", len(res.Errors)).Msg("overdue sweep finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
