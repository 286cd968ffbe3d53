package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Ingest   IngestConfig
	Gate     GateConfig
	Bucket   BucketConfig
	Actors   ActorsConfig
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

type HTTPConfig struct {
	UserAgent     string
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
	HostInterval  time.Duration
	RespectRobots bool
}

type IngestConfig struct {
	FeedsFile       string
	LookbackDays    int
	MaxItemsPerFeed int
}

type GateConfig struct {
	BatchSize  int
	MaxBatches int
}

type BucketConfig struct {
	WindowHours  int
	MaxSpanHours int
	MinSize      int
	MaxActors    int
}

type ActorsConfig struct {
	Source  string
	CSVPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "sni"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "sni"),
			Name:     getEnv("DB_NAME", "sni"),
			SSLMode:  getEnv("DB_SSL_MODE", "prefer"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		HTTP: HTTPConfig{
			UserAgent:     getEnv("HTTP_USER_AGENT", "sni-pipeline/1.0 (+https://github.com/design4music/sni-platform)"),
			Timeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
			MaxAttempts:   getEnvInt("HTTP_MAX_ATTEMPTS", 3),
			BaseDelay:     getEnvDuration("HTTP_RETRY_BASE_DELAY", 1*time.Second),
			MaxDelay:      getEnvDuration("HTTP_RETRY_MAX_DELAY", 10*time.Second),
			BackoffFactor: getEnvFloat("HTTP_BACKOFF_FACTOR", 2.0),
			JitterFactor:  getEnvFloat("HTTP_JITTER_FACTOR", 1.0),
			HostInterval:  getEnvDuration("HTTP_HOST_INTERVAL", 2*time.Second),
			RespectRobots: getEnvBool("HTTP_RESPECT_ROBOTS", false),
		},
		Ingest: IngestConfig{
			FeedsFile:       getEnv("FEEDS_FILE", "feeds.csv"),
			LookbackDays:    getEnvInt("INGEST_LOOKBACK_DAYS", 1),
			MaxItemsPerFeed: getEnvInt("INGEST_MAX_ITEMS_PER_FEED", 0),
		},
		Gate: GateConfig{
			BatchSize:  getEnvInt("GATE_BATCH_SIZE", 100),
			MaxBatches: getEnvInt("GATE_MAX_BATCHES", 0),
		},
		Bucket: BucketConfig{
			WindowHours:  getEnvInt("BUCKET_WINDOW_HOURS", 72),
			MaxSpanHours: getEnvInt("BUCKET_MAX_SPAN_HOURS", 72),
			MinSize:      getEnvInt("BUCKET_MIN_SIZE", 2),
			MaxActors:    getEnvInt("BUCKET_MAX_ACTORS", 4),
		},
		Actors: ActorsConfig{
			Source:  getEnv("ACTORS_SOURCE", "csv"),
			CSVPath: getEnv("ACTORS_CSV", "actors.csv"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.MaxAttempts < 1 {
		return fmt.Errorf("HTTP_MAX_ATTEMPTS must be at least 1, got %d", c.HTTP.MaxAttempts)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Ingest.FeedsFile == "" {
		return fmt.Errorf("FEEDS_FILE must not be empty")
	}
	if c.Ingest.LookbackDays < 0 {
		return fmt.Errorf("INGEST_LOOKBACK_DAYS must not be negative, got %d", c.Ingest.LookbackDays)
	}
	if c.Gate.BatchSize < 1 {
		return fmt.Errorf("GATE_BATCH_SIZE must be at least 1, got %d", c.Gate.BatchSize)
	}
	if c.Bucket.WindowHours < 1 {
		return fmt.Errorf("BUCKET_WINDOW_HOURS must be at least 1, got %d", c.Bucket.WindowHours)
	}
	if c.Bucket.MaxSpanHours < 1 {
		return fmt.Errorf("BUCKET_MAX_SPAN_HOURS must be at least 1, got %d", c.Bucket.MaxSpanHours)
	}
	if c.Bucket.MinSize < 1 {
		return fmt.Errorf("BUCKET_MIN_SIZE must be at least 1, got %d", c.Bucket.MinSize)
	}
	if c.Bucket.MaxActors < 1 {
		return fmt.Errorf("BUCKET_MAX_ACTORS must be at least 1, got %d", c.Bucket.MaxActors)
	}
	switch c.Actors.Source {
	case "csv", "db":
	default:
		return fmt.Errorf("ACTORS_SOURCE must be csv or db, got %q", c.Actors.Source)
	}
	if c.Actors.Source == "csv" && c.Actors.CSVPath == "" {
		return fmt.Errorf("ACTORS_CSV must not be empty when ACTORS_SOURCE is csv")
	}
	return nil
}

// DSN returns the pgx connection string. DATABASE_URL wins when set;
// otherwise the discrete DB_* parts are composed.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
