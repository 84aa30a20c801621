package repository

import (
	"context"
	"time"

	"github.com/aimd54/engagement-engine/internal/models"
)

// RecordRepository handles the append-only analytics record log.
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Append stores a new analytics record.
func (r *RecordRepository) Append(ctx context.Context, record *models.AnalyticsRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListSince returns records received at or after since, oldest first.
func (r *RecordRepository) ListSince(ctx context.Context, since time.Time) ([]models.AnalyticsRecord, error) {
	var records []models.AnalyticsRecord
	err := r.db.WithContext(ctx).
		Where("recorded_at >= ?", since).
		Order("recorded_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

// ListAll returns the whole log, oldest first.
func (r *RecordRepository) ListAll(ctx context.Context) ([]models.AnalyticsRecord, error) {
	var records []models.AnalyticsRecord
	err := r.db.WithContext(ctx).Order("recorded_at ASC, id ASC").Find(&records).Error
	return records, err
}

// DeleteBefore removes records received at or before cutoff and returns how many were removed.
func (r *RecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at <= ?", cutoff).
		Delete(&models.AnalyticsRecord{})
	return result.RowsAffected, result.Error
}

// Count returns the number of stored records.
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AnalyticsRecord{}).Count(&count).Error
	return count, err
}
