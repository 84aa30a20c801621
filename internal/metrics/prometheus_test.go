package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPointsAwarded(t *testing.T) {
	// Reset the counter before test
	PointsAwardedTotal.Reset()

	RecordPointsAwarded("page visit", 10)
	RecordPointsAwarded("page visit", 5)
	RecordPointsAwarded("demo", 100)

	count := testutil.ToFloat64(PointsAwardedTotal.WithLabelValues("page visit"))
	if count != 15 {
		t.Errorf("Expected page visit points = 15, got %f", count)
	}

	count = testutil.ToFloat64(PointsAwardedTotal.WithLabelValues("demo"))
	if count != 100 {
		t.Errorf("Expected demo points = 100, got %f", count)
	}
}

func TestRecordPointsAwarded_IgnoresNonPositive(t *testing.T) {
	PointsAwardedTotal.Reset()

	// Negative amounts must not panic the counter
	RecordPointsAwarded("penalty", -5)
	RecordPointsAwarded("noop", 0)

	if n := testutil.CollectAndCount(PointsAwardedTotal); n != 0 {
		t.Errorf("Expected no series, got %d", n)
	}
}

func TestRecordAchievementUnlocked(t *testing.T) {
	AchievementsUnlockedTotal.Reset()

	RecordAchievementUnlocked("page-explorer", "common")
	RecordAchievementUnlocked("page-explorer", "common")

	count := testutil.ToFloat64(AchievementsUnlockedTotal.WithLabelValues("page-explorer", "common"))
	if count != 2 {
		t.Errorf("Expected page-explorer count = 2, got %f", count)
	}
}

func TestRecordPersistenceFailure(t *testing.T) {
	PersistenceFailuresTotal.Reset()

	RecordPersistenceFailure("save_progress")

	count := testutil.ToFloat64(PersistenceFailuresTotal.WithLabelValues("save_progress"))
	if count != 1 {
		t.Errorf("Expected save_progress failures = 1, got %f", count)
	}
}

func TestActiveGauges(t *testing.T) {
	notifications := testutil.ToFloat64(ActiveNotifications)
	AddActiveNotifications(3)
	AddActiveNotifications(-1)

	if v := testutil.ToFloat64(ActiveNotifications); v != notifications+2 {
		t.Errorf("Expected active notifications = %f, got %f", notifications+2, v)
	}

	before := testutil.ToFloat64(ActiveTimeTrackers)
	IncActiveTimeTrackers()
	IncActiveTimeTrackers()
	DecActiveTimeTrackers()

	if v := testutil.ToFloat64(ActiveTimeTrackers); v != before+1 {
		t.Errorf("Expected active trackers = %f, got %f", before+1, v)
	}
}

func TestRecordRecordsPruned(t *testing.T) {
	before := testutil.ToFloat64(RecordsPrunedTotal)

	RecordRecordsPruned(4)
	RecordRecordsPruned(0)

	if v := testutil.ToFloat64(RecordsPrunedTotal); v != before+4 {
		t.Errorf("Expected pruned = %f, got %f", before+4, v)
	}
}

func TestRecordSchedulerJobRun(t *testing.T) {
	SchedulerJobRunsTotal.Reset()

	RecordSchedulerJobRun("retention", "success")
	RecordSchedulerJobRun("retention", "success")
	RecordSchedulerJobRun("digest", "error")

	count := testutil.ToFloat64(SchedulerJobRunsTotal.WithLabelValues("retention", "success"))
	if count != 2 {
		t.Errorf("Expected retention success = 2, got %f", count)
	}
	count = testutil.ToFloat64(SchedulerJobRunsTotal.WithLabelValues("digest", "error"))
	if count != 1 {
		t.Errorf("Expected digest error = 1, got %f", count)
	}
}

func TestSetSchedulerLastRun(t *testing.T) {
	SchedulerLastRunTimestamp.Reset()

	SetSchedulerLastRun("digest")

	if v := testutil.ToFloat64(SchedulerLastRunTimestamp.WithLabelValues("digest")); v <= 0 {
		t.Errorf("Expected positive timestamp, got %f", v)
	}
}

func TestHistogramsObserve(t *testing.T) {
	ReportDurationSeconds.Reset()
	SchedulerJobDurationSeconds.Reset()

	ObserveReportDuration("7d", 0.02)
	ObserveSchedulerJobDuration("retention", 1.5)

	if n := testutil.CollectAndCount(ReportDurationSeconds); n != 1 {
		t.Errorf("Expected 1 report duration series, got %d", n)
	}
	if n := testutil.CollectAndCount(SchedulerJobDurationSeconds); n != 1 {
		t.Errorf("Expected 1 job duration series, got %d", n)
	}
}

func TestMetricsRegistered(t *testing.T) {
	collectors := []prometheus.Collector{
		PointsAwardedTotal,
		LevelUpsTotal,
		AchievementsUnlockedTotal,
		PersistenceFailuresTotal,
		ActiveNotifications,
		ActiveTimeTrackers,
		RecordsTrackedTotal,
		RecordsDroppedTotal,
		RecordsPrunedTotal,
		ReportDurationSeconds,
		SchedulerJobRunsTotal,
		SchedulerLastRunTimestamp,
		SchedulerJobDurationSeconds,
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err == nil {
			t.Errorf("Expected collector to be already registered")
		}
	}
}
