// Package scheduler runs the periodic maintenance and reporting jobs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/service/analytics"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// Job names, used as metric labels.
const (
	JobRetention    = "retention"
	JobDigest       = "digest"
	JobSessionSweep = "session_sweep"
)

// DigestPeriod is the report period posted by the daily digest.
const DigestPeriod = "1d"

// Pruner deletes analytics records past the retention window.
type Pruner interface {
	CleanupOldData(ctx context.Context) (int64, error)
}

// Reporter generates analytics reports.
type Reporter interface {
	Generate(ctx context.Context, period string) (analytics.Report, error)
}

// DigestSender posts a report summary.
type DigestSender interface {
	Enabled() bool
	SendDailyDigest(ctx context.Context, r analytics.Report) error
}

// SessionSweeper evicts idle visitor sessions.
type SessionSweeper interface {
	EvictIdle(idle time.Duration) int
}

// Service handles cron job scheduling.
type Service struct {
	config   *config.Config
	pruner   Pruner
	reporter Reporter
	digest   DigestSender
	sessions SessionSweeper
	log      *logger.Logger
	cron     *cron.Cron
}

// NewService creates a new scheduler service. Any dependency may be nil, which
// leaves its job unregistered.
func NewService(
	cfg *config.Config,
	pruner Pruner,
	reporter Reporter,
	digest DigestSender,
	sessions SessionSweeper,
	log *logger.Logger,
) *Service {
	return &Service{
		config:   cfg,
		pruner:   pruner,
		reporter: reporter,
		digest:   digest,
		sessions: sessions,
		log:      log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if err := s.register(); err != nil {
		return err
	}

	s.cron.Start()

	for _, e := range s.cron.Entries() {
		s.log.Debug().Int("entry", int(e.ID)).Str("next_run", e.Next.Format(time.RFC3339)).Msg("Scheduled job")
	}

	s.log.Info().
		Str("timezone", s.config.Scheduler.Timezone).
		Int("jobs", len(s.cron.Entries())).
		Msg("Scheduler started successfully")

	return nil
}

func (s *Service) register() error {
	if s.pruner != nil && s.config.Scheduler.RetentionSchedule != "" {
		if err := s.addJob(JobRetention, s.config.Scheduler.RetentionSchedule, s.runRetention); err != nil {
			return err
		}
	}

	if s.reporter != nil && s.digest != nil && s.digest.Enabled() {
		expr, err := buildCronExpression(s.config.Scheduler.DigestTime, s.config.Scheduler.SkipWeekends)
		if err != nil {
			return fmt.Errorf("failed to build cron expression: %w", err)
		}
		if err := s.addJob(JobDigest, expr, s.runDigest); err != nil {
			return err
		}
	}

	if s.sessions != nil && s.config.Scheduler.SessionSweep != "" {
		if err := s.addJob(JobSessionSweep, s.config.Scheduler.SessionSweep, s.runSessionSweep); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) addJob(name, spec string, fn func(context.Context) error) error {
	if _, err := s.cron.AddFunc(spec, func() { s.runJob(context.Background(), name, fn) }); err != nil {
		return fmt.Errorf("failed to register %s job: %w", name, err)
	}
	s.log.Info().Str("job", name).Str("schedule", spec).Msg("Job registered")
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression turns an "HH:MM" time into a daily cron expression,
// weekdays only when skipWeekends is set.
func buildCronExpression(hhmm string, skipWeekends bool) (string, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", hhmm)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if skipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
