// Package config loads service settings from environment variables,
// with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseDSN string

	TelegramToken string

	TranslateEndpoint string
	TranslateAPIKey   string
	TranslateTimeout  time.Duration

	NEREndpoint string
	NERToken    string
	NERTimeout  time.Duration

	// Source page overrides, empty in production.
	WaterPageURL       string
	GasEmergencyURL    string
	GasPlannedURL      string
	ElectricPageURL    string
	SourceFetchTimeout time.Duration

	// Yandex geocoding configuration.
	GeocodeAPIKey    string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Kafka export configuration, disabled when no brokers are set.
	KafkaBrokers     []string
	KafkaOutageTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	TickInterval    time.Duration
	WorkerPoolSize  int
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults
// where unset. A .env file in the working directory is merged in first
// without overriding real environment variables.
func Load() (*Config, error) {
	// Ignore a missing .env; it only exists in development.
	_ = godotenv.Load()

	translateTimeout, err := parseDuration("TRANSLATE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	nerTimeout, err := parseDuration("NER_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("SOURCE_FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	tickInterval, err := parseDuration("TICK_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKER_POOL_SIZE", 8)
	if err != nil {
		return nil, err
	}
	geocodeCacheSize, err := parseInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	geocodeKey := os.Getenv("GEOCODE_API_KEY")
	geocodeEnabled := geocodeKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		TranslateEndpoint: os.Getenv("TRANSLATE_ENDPOINT"),
		TranslateAPIKey:   os.Getenv("TRANSLATE_API_KEY"),
		TranslateTimeout:  translateTimeout,

		NEREndpoint: os.Getenv("NER_ENDPOINT"),
		NERToken:    os.Getenv("NER_TOKEN"),
		NERTimeout:  nerTimeout,

		WaterPageURL:       os.Getenv("WATER_PAGE_URL"),
		GasEmergencyURL:    os.Getenv("GAS_EMERGENCY_URL"),
		GasPlannedURL:      os.Getenv("GAS_PLANNED_URL"),
		ElectricPageURL:    os.Getenv("ELECTRIC_PAGE_URL"),
		SourceFetchTimeout: fetchTimeout,

		GeocodeAPIKey:    geocodeKey,
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: geocodeCacheSize,

		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaOutageTopic: envOrDefault("KAFKA_OUTAGE_TOPIC", "outage-records"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		TickInterval:    tickInterval,
		WorkerPoolSize:  workers,
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}
	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TranslateEndpoint == "" {
		return nil, errors.New("TRANSLATE_ENDPOINT is required")
	}
	if cfg.NEREndpoint == "" {
		return nil, errors.New("NER_ENDPOINT is required")
	}
	if cfg.GeocodeEnabled && cfg.GeocodeAPIKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GEOCODE_API_KEY is not set")
	}
	if cfg.WorkerPoolSize < 1 {
		return nil, errors.New("WORKER_POOL_SIZE must be at least 1")
	}

	return cfg, nil
}

// KafkaEnabled reports whether outage export to Kafka is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
