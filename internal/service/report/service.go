// Package report loads the analytics log for a period and produces reports and CSV exports.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aimd54/engagement-engine/internal/config"
	prommetrics "github.com/aimd54/engagement-engine/internal/metrics"
	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/analytics"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// DefaultPeriod is used when the caller does not pick one.
const DefaultPeriod = "7d"

// PeriodAll covers the whole retained log.
const PeriodAll = "all"

// ErrInvalidPeriod is returned for a period outside ValidPeriods.
var ErrInvalidPeriod = errors.New("invalid period")

var periodWindows = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// ValidPeriods lists the accepted period labels.
var ValidPeriods = []string{"1d", "7d", "30d", "90d", PeriodAll}

// RecordSource reads the analytics log.
type RecordSource interface {
	ListSince(ctx context.Context, since time.Time) ([]models.AnalyticsRecord, error)
	ListAll(ctx context.Context) ([]models.AnalyticsRecord, error)
}

// Service generates analytics reports.
type Service struct {
	records    RecordSource
	aggregator analytics.Aggregator
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a report service.
func NewService(records RecordSource, cfg config.AnalyticsConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{records: records, log: log, now: time.Now}
	s.aggregator = analytics.Aggregator{TopN: cfg.TopN, Now: func() time.Time { return s.now() }}
	return s
}

// ValidatePeriod checks a period label.
func ValidatePeriod(period string) error {
	if period == PeriodAll {
		return nil
	}
	if _, ok := periodWindows[period]; !ok {
		return fmt.Errorf("%w %q (valid: %v)", ErrInvalidPeriod, period, ValidPeriods)
	}
	return nil
}

// Generate builds the report for period.
func (s *Service) Generate(ctx context.Context, period string) (analytics.Report, error) {
	if err := ValidatePeriod(period); err != nil {
		return analytics.Report{}, err
	}

	start := time.Now()
	records, err := s.load(ctx, period)
	if err != nil {
		return analytics.Report{}, err
	}

	r := s.aggregator.Generate(records, period)
	duration := time.Since(start)
	prommetrics.ObserveReportDuration(period, duration.Seconds())

	s.log.Debug().
		Str("period", period).
		Int("records", len(records)).
		Dur("duration", duration).
		Msg("Report generated")

	return r, nil
}

// ExportCSV builds the report for period and flattens it to CSV.
func (s *Service) ExportCSV(ctx context.Context, period string) (string, error) {
	r, err := s.Generate(ctx, period)
	if err != nil {
		return "", err
	}
	return analytics.ExportToCSV(r), nil
}

func (s *Service) load(ctx context.Context, period string) ([]models.AnalyticsRecord, error) {
	if period == PeriodAll {
		records, err := s.records.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load analytics records: %w", err)
		}
		return records, nil
	}

	since := s.now().Add(-periodWindows[period])
	records, err := s.records.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics records since %s: %w", since.Format(time.RFC3339), err)
	}
	return records, nil
}
