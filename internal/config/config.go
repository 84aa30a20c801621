// Package config handles application configuration loading and validation using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Storage      StorageConfig       `mapstructure:"storage"`
	Progress     ProgressConfig      `mapstructure:"progress"`
	Analytics    AnalyticsConfig     `mapstructure:"analytics"`
	Scheduler    SchedulerConfig     `mapstructure:"scheduler"`
	Mattermost   MattermostConfig    `mapstructure:"mattermost"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
	Logging      LoggingConfig       `mapstructure:"logging"`
	Achievements []AchievementConfig `mapstructure:"achievements"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains database connection settings for PostgreSQL/SQLite and Redis.
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "postgres" or "sqlite"
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// SQLiteConfig contains the SQLite database file location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig selects where visitor key-value state lives.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // "database" or "redis"
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ProgressConfig contains progress engine settings.
type ProgressConfig struct {
	PointsPerLevel  int           `mapstructure:"points_per_level"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	NotifyOnUnlock  bool          `mapstructure:"notify_on_unlock"`
	SessionIdle     time.Duration `mapstructure:"session_idle"`
}

// AnalyticsConfig contains analytics recording and reporting settings.
type AnalyticsConfig struct {
	RetentionMonths int  `mapstructure:"retention_months"`
	RequireConsent  bool `mapstructure:"require_consent"`
	TopN            int  `mapstructure:"top_n"`
}

// SchedulerConfig contains cron job settings.
type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Timezone          string `mapstructure:"timezone"`
	DigestTime        string `mapstructure:"digest_time"` // HH:MM
	SkipWeekends      bool   `mapstructure:"skip_weekends"`
	RetentionSchedule string `mapstructure:"retention_schedule"` // cron expression
	SessionSweep      string `mapstructure:"session_sweep"`      // cron expression
}

// MattermostConfig contains Mattermost webhook settings for the daily digest.
type MattermostConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AchievementConfig is one entry of the achievement catalog.
type AchievementConfig struct {
	ID          string `mapstructure:"id" yaml:"id"`
	Title       string `mapstructure:"title" yaml:"title"`
	Description string `mapstructure:"description" yaml:"description"`
	Points      int    `mapstructure:"points" yaml:"points"`
	MaxProgress int    `mapstructure:"max_progress" yaml:"max_progress"`
	Rarity      string `mapstructure:"rarity" yaml:"rarity"`
}

// setDefaults registers the values used when neither file nor environment sets a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "engagement.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("storage.backend", "database")
	v.SetDefault("storage.key_prefix", "")

	v.SetDefault("progress.points_per_level", 100)
	v.SetDefault("progress.notification_ttl", 4*time.Second)
	v.SetDefault("progress.tick_interval", time.Second)
	v.SetDefault("progress.notify_on_unlock", false)
	v.SetDefault("progress.session_idle", 30*time.Minute)

	v.SetDefault("analytics.retention_months", 26)
	v.SetDefault("analytics.require_consent", false)
	v.SetDefault("analytics.top_n", 10)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.digest_time", "09:00")
	v.SetDefault("scheduler.retention_schedule", "0 3 * * *")
	v.SetDefault("scheduler.session_sweep", "@every 10m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error when configPath is empty; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/engagement-engine/")
	}

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Database configuration
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.sqlite.path", "SQLITE_PATH")
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")

	_ = v.BindEnv("storage.backend", "STORAGE_BACKEND")

	// Analytics configuration
	_ = v.BindEnv("analytics.retention_months", "ANALYTICS_RETENTION_MONTHS")
	_ = v.BindEnv("analytics.require_consent", "ANALYTICS_REQUIRE_CONSENT")

	// Mattermost configuration
	_ = v.BindEnv("mattermost.webhook_url", "MATTERMOST_WEBHOOK_URL")
	_ = v.BindEnv("mattermost.channel", "MATTERMOST_CHANNEL")
	_ = v.BindEnv("mattermost.enabled", "MATTERMOST_ENABLED")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.digest_time", "SCHEDULER_DIGEST_TIME")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Achievements) == 0 {
		config.Achievements = DefaultAchievements()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q (valid: postgres, sqlite)", c.Database.Driver)
	}

	switch c.Storage.Backend {
	case "database":
	case "redis":
		if c.Database.Redis.Host == "" {
			return fmt.Errorf("database.redis.host is required when storage.backend is redis")
		}
	default:
		return fmt.Errorf("unsupported storage.backend %q (valid: database, redis)", c.Storage.Backend)
	}

	if c.Progress.PointsPerLevel <= 0 {
		return fmt.Errorf("progress.points_per_level must be positive")
	}
	if c.Progress.NotificationTTL <= 0 {
		return fmt.Errorf("progress.notification_ttl must be positive")
	}
	if c.Progress.TickInterval <= 0 {
		return fmt.Errorf("progress.tick_interval must be positive")
	}
	if c.Progress.SessionIdle <= 0 {
		return fmt.Errorf("progress.session_idle must be positive")
	}
	if c.Analytics.RetentionMonths <= 0 {
		return fmt.Errorf("analytics.retention_months must be positive")
	}
	if c.Mattermost.Enabled && c.Mattermost.WebhookURL == "" {
		return fmt.Errorf("mattermost.webhook_url is required when mattermost is enabled")
	}

	seen := make(map[string]bool, len(c.Achievements))
	for _, a := range c.Achievements {
		if a.ID == "" {
			return fmt.Errorf("achievement id is required")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
		if a.MaxProgress <= 0 {
			return fmt.Errorf("achievement %q: max_progress must be positive", a.ID)
		}
	}

	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DefaultAchievements returns the built-in achievement catalog.
func DefaultAchievements() []AchievementConfig {
	return []AchievementConfig{
		{ID: "page-explorer", Title: "Page Explorer", Description: "Visit 5 different pages", Points: 25, MaxProgress: 5, Rarity: "common"},
		{ID: "interaction-king", Title: "Interaction King", Description: "Complete 10 interactions", Points: 50, MaxProgress: 10, Rarity: "rare"},
		{ID: "time-master", Title: "Time Master", Description: "Spend 5 minutes exploring", Points: 75, MaxProgress: 300, Rarity: "epic"},
		{ID: "faq-scholar", Title: "FAQ Scholar", Description: "Read 8 FAQ answers", Points: 30, MaxProgress: 8, Rarity: "rare"},
		{ID: "demo-booker", Title: "Demo Booker", Description: "Book a demo call", Points: 100, MaxProgress: 1, Rarity: "legendary"},
	}
}
