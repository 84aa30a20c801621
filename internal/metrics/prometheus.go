// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the engagement engine.
var (
	// Progress engine.
	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_points_awarded_total",
			Help: "Total points awarded to visitors, by action label",
		},
		[]string{"action"},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagement_level_ups_total",
			Help: "Total number of level increases across visitors",
		},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement", "rarity"},
	)

	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_persistence_failures_total",
			Help: "Total number of failed key-value store operations that were swallowed",
		},
		[]string{"operation"},
	)

	ActiveNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagement_active_notifications",
			Help: "Current number of notifications waiting to expire",
		},
	)

	ActiveTimeTrackers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagement_active_time_trackers",
			Help: "Current number of running visitor time trackers",
		},
	)

	// Analytics.
	RecordsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_records_tracked_total",
			Help: "Total number of analytics records appended, by endpoint",
		},
		[]string{"endpoint"},
	)

	RecordsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_records_dropped_total",
			Help: "Total number of analytics records not recorded, by reason",
		},
		[]string{"reason"},
	)

	RecordsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_records_pruned_total",
			Help: "Total number of analytics records deleted by retention",
		},
	)

	ReportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_report_duration_seconds",
			Help:    "Time taken to load records and generate a report",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"period"},
	)

	// Scheduler.
	SchedulerJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of scheduler job runs",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Timestamp of the last scheduler job run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of scheduler job execution",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~51s
		},
		[]string{"job"},
	)
)

// RecordPointsAwarded adds points to the awarded counter.
// Non-positive amounts are ignored since counters cannot decrease.
func RecordPointsAwarded(action string, points int) {
	if points <= 0 {
		return
	}
	PointsAwardedTotal.WithLabelValues(action).Add(float64(points))
}

// RecordLevelUp increments the level-up counter.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// RecordAchievementUnlocked increments the achievements unlocked counter.
func RecordAchievementUnlocked(achievement, rarity string) {
	AchievementsUnlockedTotal.WithLabelValues(achievement, rarity).Inc()
}

// RecordPersistenceFailure increments the persistence failure counter.
func RecordPersistenceFailure(operation string) {
	PersistenceFailuresTotal.WithLabelValues(operation).Inc()
}

// AddActiveNotifications adjusts the active notifications gauge by delta.
func AddActiveNotifications(delta int) {
	ActiveNotifications.Add(float64(delta))
}

// IncActiveTimeTrackers increments the running trackers gauge.
func IncActiveTimeTrackers() {
	ActiveTimeTrackers.Inc()
}

// DecActiveTimeTrackers decrements the running trackers gauge.
func DecActiveTimeTrackers() {
	ActiveTimeTrackers.Dec()
}

// RecordRecordTracked increments the tracked records counter.
func RecordRecordTracked(endpoint string) {
	RecordsTrackedTotal.WithLabelValues(endpoint).Inc()
}

// RecordRecordDropped increments the dropped records counter.
func RecordRecordDropped(reason string) {
	RecordsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordRecordsPruned adds n to the pruned records counter.
func RecordRecordsPruned(n int64) {
	if n <= 0 {
		return
	}
	RecordsPrunedTotal.Add(float64(n))
}

// ObserveReportDuration records report generation time.
func ObserveReportDuration(period string, seconds float64) {
	ReportDurationSeconds.WithLabelValues(period).Observe(seconds)
}

// RecordSchedulerJobRun increments the scheduler job runs counter.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobRunsTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the last run timestamp to now.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration records scheduler job duration.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}
