package scheduler

import (
	"context"
	"fmt"
	"time"

	"attendance_poll_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sweepSpec runs the session cleanup once a minute.
const sweepSpec = "* * * * *"

// Ticker is the engine side the scheduler drives.
type Ticker interface {
	Tick(ctx context.Context) app.TickReport
}

// Sweeper drops finished answer sessions.
type Sweeper interface {
	Sweep() int
}

// TickScheduler drives the schedule engine from cron. Overlapping runs of
// the same job are skipped, so a slow callback never stacks up ticks.
type TickScheduler struct {
	cronEngine  *cron.Cron
	ticker      Ticker
	sweeper     Sweeper
	logger      *logrus.Entry
	tickSpec    string
	tickTimeout time.Duration
}

func NewTickScheduler(
	ticker Ticker,
	sweeper Sweeper,
	loc *time.Location,
	logger *logrus.Entry,
	tickSpec string, // e.g. "* * * * *" (every minute)
) *TickScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &TickScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		ticker:      ticker,
		sweeper:     sweeper,
		logger:      logger,
		tickSpec:    tickSpec,
		tickTimeout: 50 * time.Second,
	}
}

// Start registers the jobs and starts cron. An invalid spec is returned
// before anything runs.
func (s *TickScheduler) Start() error {
	s.logger.Info("Starting tick scheduler...")

	if _, err := s.cronEngine.AddFunc(s.tickSpec, s.runTick); err != nil {
		return fmt.Errorf("could not add tick cron job %q: %w", s.tickSpec, err)
	}
	if s.sweeper != nil {
		if _, err := s.cronEngine.AddFunc(sweepSpec, s.runSweep); err != nil {
			return fmt.Errorf("could not add session sweep cron job: %w", err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("tick_spec", s.tickSpec).Info("Tick scheduler started with jobs.")
	return nil
}

func (s *TickScheduler) runTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	report := s.ticker.Tick(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"minute":        report.MinuteKey,
		"prompt_fired":  report.PromptFired,
		"summary_fired": report.SummaryFired,
	})
	if report.PromptFired || report.SummaryFired {
		entry.Info("Tick completed")
	} else {
		entry.Debug("Tick completed")
	}
}

func (s *TickScheduler) runSweep() {
	if dropped := s.sweeper.Sweep(); dropped > 0 {
		s.logger.WithField("dropped", dropped).Debug("Session sweep completed")
	}
}

// Stop waits for running jobs to finish.
func (s *TickScheduler) Stop() {
	s.logger.Info("Stopping tick scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Tick scheduler gracefully stopped.")
}
