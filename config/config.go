package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port           string
	AllowedOrigins string
	ServiceToken   string

	StorageDriver string
	DatabaseURL   string
	RedisURL      string

	AwardTimeout                time.Duration
	ChallengeSettlementInterval time.Duration
	WeeklySettlementCron        string
	SettlementLockTTL           time.Duration

	ReconcileInterval  time.Duration
	ReconcileBatchSize int

	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	R2BucketName        string
}

func Load() (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		ServiceToken:   os.Getenv("SERVICE_TOKEN"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),

		WeeklySettlementCron: getEnv("WEEKLY_SETTLEMENT_CRON", "0 0 * * 1"),

		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:       os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:   os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2BucketName:        os.Getenv("R2_BUCKET_NAME"),
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required with STORAGE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q (want %s or %s)", cfg.StorageDriver, DriverPostgres, DriverMemory)
	}

	var err error
	if cfg.AwardTimeout, err = parseDuration("AWARD_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.ChallengeSettlementInterval, err = parseDuration("CHALLENGE_SETTLEMENT_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.SettlementLockTTL, err = parseDuration("SETTLEMENT_LOCK_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = parseDuration("RECONCILE_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	batch := getEnv("RECONCILE_BATCH_SIZE", "200")
	cfg.ReconcileBatchSize, err = strconv.Atoi(batch)
	if err != nil || cfg.ReconcileBatchSize <= 0 {
		return nil, fmt.Errorf("invalid RECONCILE_BATCH_SIZE %q", batch)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parseDuration accepts "0" to mean disabled.
func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, raw)
	}
	return d, nil
}
