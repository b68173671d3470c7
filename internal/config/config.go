package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StorageDriver string
	StorageDSN    string

	// Kafka rainfall ingestion and report publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaRainfallTopic string
	KafkaReportTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Visual Crossing rainfall download.
	VCAPIKey       string
	VCEnabled      bool
	VCBaseURL      string
	VCTimeout      time.Duration
	VCCacheSize    int
	VCMaxDistanceM int
	SiteLatitude   float64
	SiteLongitude  float64

	RainfallRefreshSchedule string
	BaseYear                int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	vcTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("VC_TIMEOUT", "10s"))
	if err != nil || vcTimeout <= 0 {
		return nil, errors.New("invalid VC_TIMEOUT")
	}

	vcCacheSize, err := positiveInt("VC_CACHE_SIZE", 240)
	if err != nil {
		return nil, err
	}
	maxDistance, err := positiveInt("VC_MAX_DISTANCE_M", 50000)
	if err != nil {
		return nil, err
	}

	baseYear, err := strconv.Atoi(sharedcfg.EnvOrDefault("BASE_YEAR", "0"))
	if err != nil || baseYear < 0 {
		return nil, errors.New("invalid BASE_YEAR")
	}

	schedule := sharedcfg.EnvOrDefault("RAINFALL_REFRESH_SCHEDULE", "@monthly")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid RAINFALL_REFRESH_SCHEDULE: %w", err)
	}

	vcKey := os.Getenv("VC_API_KEY")
	vcEnabled := vcKey != ""
	if v := os.Getenv("VC_ENABLED"); v != "" {
		vcEnabled = v == "true"
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StorageDriver: sharedcfg.EnvOrDefault("STORAGE_DRIVER", "memory"),
		StorageDSN:    sharedcfg.EnvOrDefault("STORAGE_DSN", "simtanka.db"),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRainfallTopic: sharedcfg.EnvOrDefault("KAFKA_RAINFALL_TOPIC", "raw-daily-rainfall"),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "tank-sizing-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "simtanka"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		VCAPIKey:       vcKey,
		VCEnabled:      vcEnabled,
		VCBaseURL:      sharedcfg.EnvOrDefault("VC_BASE_URL", "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"),
		VCTimeout:      vcTimeout,
		VCCacheSize:    vcCacheSize,
		VCMaxDistanceM: maxDistance,

		RainfallRefreshSchedule: schedule,
		BaseYear:                baseYear,
	}

	switch cfg.StorageDriver {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaRainfallTopic == "" {
			return nil, errors.New("KAFKA_RAINFALL_TOPIC is required")
		}
		if cfg.KafkaReportTopic == "" {
			return nil, errors.New("KAFKA_REPORT_TOPIC is required")
		}
	}

	if cfg.VCEnabled {
		if cfg.VCAPIKey == "" {
			return nil, errors.New("VC_ENABLED is true but VC_API_KEY is not set")
		}
		if cfg.SiteLatitude, err = coordinate("SITE_LATITUDE", 90); err != nil {
			return nil, err
		}
		if cfg.SiteLongitude, err = coordinate("SITE_LONGITUDE", 180); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func coordinate(key string, limit float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, fmt.Errorf("%s is required when rainfall download is enabled", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < -limit || v > limit {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}
