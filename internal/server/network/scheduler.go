package network

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/robfig/cron/v3"
)

// Runner is satisfied by *Dispatcher.
type Runner interface {
	Run(ctx context.Context) ([]string, error)
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(context.Background(), msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}

// Scheduler triggers a Runner on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	runner   Runner
	logger   logging.Logger
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 15m").
func NewScheduler(spec string, runner Runner, logger logging.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}

	logger = logger.With("module", "scheduler")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger})))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		spec:     spec,
		runner:   runner,
		logger:   logger,
	}, nil
}

func (s *Scheduler) tick(ctx context.Context) {
	ids, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ErrDispatchInProgress):
		s.logger.Debug(ctx, "previous batch still running, skipping")
	case err != nil:
		s.logger.Error(ctx, "scheduled batch failed", "error", err)
	case len(ids) > 0:
		s.logger.Info(ctx, "scheduled batch submitted", "count", len(ids))
	}
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.tick(ctx) }))
	s.cron.Start()
	s.logger.Info(ctx, "batch schedule started", "schedule", s.spec)

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info(ctx, "batch schedule stopped")
	return nil
}
