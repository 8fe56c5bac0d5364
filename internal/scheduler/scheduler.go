package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// ReportRunner produces and delivers the daily report.
type ReportRunner interface {
	RunDaily(ctx context.Context) (models.DistributionReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	runner ReportRunner
	loc    *time.Location
	logger *zap.Logger
}

// NewScheduler registers the daily report on a standard 5-field cron schedule
// evaluated in loc.
func NewScheduler(schedule string, loc *time.Location, runner ReportRunner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		loc:    loc,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.runDailyReport); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Time("next_report", s.NextRun()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// NextRun returns when the daily report fires next.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// Trigger runs the daily report immediately.
func (s *Scheduler) Trigger(ctx context.Context) (models.DistributionReport, error) {
	return s.runner.RunDaily(ctx)
}

func (s *Scheduler) runDailyReport() {
	s.logger.Info("generating daily report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.runner.RunDaily(ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
		return
	}
	s.logger.Info("daily report sent successfully")
}
