package scheduler

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/aimd54/engagement-engine/internal/metrics"
)

// RunNow executes a job synchronously by name, outside the cron schedule.
func (s *Service) RunNow(ctx context.Context, name string) error {
	var fn func(context.Context) error
	switch name {
	case JobRetention:
		if s.pruner != nil {
			fn = s.runRetention
		}
	case JobDigest:
		if s.reporter != nil && s.digest != nil {
			fn = s.runDigest
		}
	case JobSessionSweep:
		if s.sessions != nil {
			fn = s.runSessionSweep
		}
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	if fn == nil {
		return fmt.Errorf("job %q is not configured", name)
	}
	return s.runJob(ctx, name, fn)
}

// runJob wraps a job with timing, status metrics and logging.
func (s *Service) runJob(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()

	defer func() {
		prommetrics.ObserveSchedulerJobDuration(name, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(name)
	}()

	s.log.Info().Str("job", name).Msg("Running scheduled job")

	if err := fn(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Scheduled job failed")
		prommetrics.RecordSchedulerJobRun(name, "error")
		return err
	}

	prommetrics.RecordSchedulerJobRun(name, "success")
	s.log.Info().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("Scheduled job completed")
	return nil
}

func (s *Service) runRetention(ctx context.Context) error {
	deleted, err := s.pruner.CleanupOldData(ctx)
	if err != nil {
		return err
	}
	s.log.Debug().Int64("deleted", deleted).Msg("Retention job pruned records")
	return nil
}

func (s *Service) runDigest(ctx context.Context) error {
	r, err := s.reporter.Generate(ctx, DigestPeriod)
	if err != nil {
		return fmt.Errorf("failed to generate digest report: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.digest.SendDailyDigest(sendCtx, r); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.log.Info().
		Int("page_views", r.PageViews).
		Int("unique_visitors", r.UniqueVisitors).
		Msg("Daily digest sent")
	return nil
}

func (s *Service) runSessionSweep(_ context.Context) error {
	evicted := s.sessions.EvictIdle(s.config.Progress.SessionIdle)
	s.log.Debug().Int("evicted", evicted).Msg("Session sweep finished")
	return nil
}
