package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aimd54/engagement-engine/internal/models"
)

func createTestRecord(t *testing.T, repo *RecordRepository, page string, recordedAt time.Time) *models.AnalyticsRecord {
	t.Helper()

	record := &models.AnalyticsRecord{
		Endpoint:        models.EndpointPageView,
		SessionID:       "session-1",
		Page:            page,
		DeviceType:      "desktop",
		ClientTimestamp: recordedAt.UnixMilli(),
		RecordedAt:      recordedAt,
	}
	if err := repo.Append(context.Background(), record); err != nil {
		t.Fatalf("Failed to append test record: %v", err)
	}
	return record
}

func TestRecordRepository_Append(t *testing.T) {
	repo := NewRecordRepository(setupTestDB(t))

	record := createTestRecord(t, repo, "/", time.Now())
	if record.ID == 0 {
		t.Error("Expected record ID to be set after Append()")
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}
}

func TestRecordRepository_ListSince(t *testing.T) {
	repo := NewRecordRepository(setupTestDB(t))
	now := time.Now().UTC()

	createTestRecord(t, repo, "/old", now.Add(-10*24*time.Hour))
	createTestRecord(t, repo, "/recent", now.Add(-2*time.Hour))
	createTestRecord(t, repo, "/latest", now.Add(-1*time.Hour))

	records, err := repo.ListSince(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListSince() failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	// Oldest first
	if records[0].Page != "/recent" || records[1].Page != "/latest" {
		t.Errorf("Unexpected order: %q, %q", records[0].Page, records[1].Page)
	}
}

func TestRecordRepository_ListAll(t *testing.T) {
	repo := NewRecordRepository(setupTestDB(t))
	now := time.Now().UTC()

	createTestRecord(t, repo, "/b", now)
	createTestRecord(t, repo, "/a", now.Add(-time.Hour))

	records, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(records) != 2 || records[0].Page != "/a" {
		t.Errorf("Expected 2 records starting with /a, got %+v", records)
	}
}

func TestRecordRepository_DeleteBefore(t *testing.T) {
	repo := NewRecordRepository(setupTestDB(t))
	now := time.Now().UTC()
	ctx := context.Background()

	createTestRecord(t, repo, "/ancient", now.AddDate(-3, 0, 0))
	createTestRecord(t, repo, "/fresh", now)

	cutoff := now.AddDate(0, -26, 0)
	deleted, err := repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted record, got %d", deleted)
	}

	// Idempotent
	deleted, err = repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("Second DeleteBefore() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected second prune to delete nothing, got %d", deleted)
	}

	records, _ := repo.ListAll(ctx)
	if len(records) != 1 || records[0].Page != "/fresh" {
		t.Errorf("Expected only /fresh to survive, got %+v", records)
	}
}

func TestRecordRepository_ExtraJSON(t *testing.T) {
	repo := NewRecordRepository(setupTestDB(t))
	ctx := context.Background()

	record := &models.AnalyticsRecord{
		Endpoint:   models.EndpointEvent,
		SessionID:  "s",
		Extra:      []byte(`{"x":120,"y":340}`),
		RecordedAt: time.Now(),
	}
	if err := repo.Append(ctx, record); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, _ := repo.ListAll(ctx)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if string(records[0].Extra) != `{"x":120,"y":340}` {
		t.Errorf("Expected extra payload to round-trip, got %s", records[0].Extra)
	}
}
