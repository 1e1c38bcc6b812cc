package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

const (
	defaultOutputDir     = "~/ooidata/qartod"
	defaultLookupBaseURL = "https://raw.githubusercontent.com/oceanobservatories/qc-lookup/master/qartod/"
)

// Config holds all driver settings, populated from environment variables.
type Config struct {
	// OutputDir is the root of the artifact tree; files land in
	// <OutputDir>/<sensor-type>/.
	OutputDir string

	EngineCmd     string
	EngineTimeout time.Duration

	LookupBaseURL   string
	LookupTimeout   time.Duration
	LookupCacheSize int

	LogLevel        string
	LogFormat       string
	MetricsTextfile string
	ShutdownTimeout time.Duration

	// Optional sinks for completed exports.
	KafkaBrokers []string
	KafkaTopic   string
	DatabaseURL  string
}

// KafkaEnabled reports whether completed exports are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables (and .env, if present),
// applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	engineTimeout, err := parseDuration("QARTOD_ENGINE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	lookupTimeout, err := parseDuration("QC_LOOKUP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	outputDir, err := expandHome(sharedcfg.EnvOrDefault("QARTOD_OUTPUT_DIR", defaultOutputDir))
	if err != nil {
		return nil, err
	}

	var brokers []string
	if s := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	}

	cfg := &Config{
		OutputDir:       outputDir,
		EngineCmd:       strings.TrimSpace(os.Getenv("QARTOD_ENGINE_CMD")),
		EngineTimeout:   engineTimeout,
		LookupBaseURL:   sharedcfg.EnvOrDefault("QC_LOOKUP_BASE_URL", defaultLookupBaseURL),
		LookupTimeout:   lookupTimeout,
		LookupCacheSize: parseCacheSize(),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "qartod-exports"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}

	if cfg.EngineCmd == "" {
		return nil, errors.New("QARTOD_ENGINE_CMD is required")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseCacheSize returns QC_LOOKUP_CACHE_SIZE; 0 disables the document cache.
func parseCacheSize() int {
	if s := os.Getenv("QC_LOOKUP_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 64
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand QARTOD_OUTPUT_DIR: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
