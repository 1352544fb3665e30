package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default USGS endpoints.
const (
	DefaultFeedURL         = "https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&eventtype=earthquake&orderby=time&minmag=6&limit=10"
	DefaultHeadlineFeedURL = "https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&starttime=2014-01-01&endtime=2014-12-01&minmagnitude=7"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL         string
	HeadlineFeedURL string
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration

	RefreshInterval  time.Duration
	RefreshRateLimit time.Duration
	DisplayLocation  *time.Location

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaBrokers []string
	KafkaEnabled bool
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	connectTimeout, err := parsePositiveDuration("FEED_CONNECT_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	readTimeout, err := parsePositiveDuration("FEED_READ_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshRateLimit, err := parsePositiveDuration("REFRESH_RATE_LIMIT", "10s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "5m"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	loc, err := parseDisplayTimezone()
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		FeedURL:          sharedcfg.EnvOrDefault("FEED_URL", DefaultFeedURL),
		HeadlineFeedURL:  sharedcfg.EnvOrDefault("HEADLINE_FEED_URL", DefaultHeadlineFeedURL),
		ConnectTimeout:   connectTimeout,
		ReadTimeout:      readTimeout,
		RefreshInterval:  refreshInterval,
		RefreshRateLimit: refreshRateLimit,
		DisplayLocation:  loc,
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		KafkaBrokers:     brokers,
		KafkaEnabled:     kafkaEnabled,
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "quake-feed-events"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseDisplayTimezone() (*time.Location, error) {
	name := os.Getenv("DISPLAY_TIMEZONE")
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}
	return loc, nil
}
