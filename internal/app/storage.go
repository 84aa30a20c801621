package app

import (
	"context"
	"fmt"

	"github.com/aimd54/engagement-engine/internal/api"
	"github.com/aimd54/engagement-engine/internal/cache"
	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/repository"
	"github.com/aimd54/engagement-engine/internal/storage"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

// Storage holds the opened database and the key-value backend chosen by config.
type Storage struct {
	DB      *repository.DB
	Records *repository.RecordRepository
	KV      storage.Store

	redis *cache.RedisStore
	log   *logger.Logger
}

// OpenStorage connects to the database, migrates it and opens the KV backend.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	db, err := repository.NewDB(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s := &Storage{
		DB:      db,
		Records: repository.NewRecordRepository(db),
		log:     log,
	}

	switch cfg.Storage.Backend {
	case "redis":
		rs, err := cache.NewRedisStore(ctx, &cfg.Database.Redis, cfg.Storage.KeyPrefix)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.redis = rs
		s.KV = rs
	default:
		s.KV = repository.NewKVRepository(db)
	}

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("kv_backend", cfg.Storage.Backend).
		Msg("Storage opened")

	return s, nil
}

// HealthChecks returns one probe per backing service.
func (s *Storage) HealthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return s.DB.Health() },
	}
	if s.redis != nil {
		checks["redis"] = s.redis.Health
	}
	return checks
}

// Close releases every connection.
func (s *Storage) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if err := s.DB.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close database")
	}
}
