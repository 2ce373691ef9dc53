package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultQuestionLabels is the comma separated default for questions.labels.
const DefaultQuestionLabels = "Question 1 (Temperature and particles),Question 2 (Boyle's law),Question 3 (Heat transfer)"

// Config holds runtime configuration values for the feedback insights service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	LogLevel             zerolog.Level
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	RealtimeChannel      string
	SubmissionTable      string
	SnapshotCacheTTL     time.Duration
	SnapshotFetchTimeout time.Duration
	ClassifierMarker     string
	QuestionLabels       []string
	RefreshRateLimit     int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "GEMA Feedback Insights")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("realtime.channel", "gema:feedback")
	v.SetDefault("snapshot.table", "student_submissions")
	v.SetDefault("snapshot.cache_ttl", "60s")
	v.SetDefault("snapshot.fetch_timeout", "10s")
	v.SetDefault("classifier.marker", "O")
	v.SetDefault("questions.labels", DefaultQuestionLabels)
	v.SetDefault("refresh.rate_limit", 6)

	ttl, err := parseDuration(v, "snapshot.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	fetchTimeout, err := parseDuration(v, "snapshot.fetch_timeout")
	if err != nil {
		return Config{}, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v.GetString("log.level"))))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		LogLevel:             level,
		DatabaseURL:          strings.TrimSpace(v.GetString("database.url")),
		RedisURL:             strings.TrimSpace(v.GetString("redis.url")),
		NATSURL:              strings.TrimSpace(v.GetString("nats.url")),
		RealtimeChannel:      strings.TrimSpace(v.GetString("realtime.channel")),
		SubmissionTable:      strings.TrimSpace(v.GetString("snapshot.table")),
		SnapshotCacheTTL:     ttl,
		SnapshotFetchTimeout: fetchTimeout,
		ClassifierMarker:     strings.TrimSpace(v.GetString("classifier.marker")),
		QuestionLabels:       splitAndTrim(v.GetString("questions.labels")),
		RefreshRateLimit:     v.GetInt("refresh.rate_limit"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.SnapshotCacheTTL <= 0 {
		return Config{}, fmt.Errorf("snapshot cache ttl must be positive")
	}

	if cfg.ClassifierMarker == "" {
		cfg.ClassifierMarker = "O"
	}

	if cfg.RefreshRateLimit <= 0 {
		cfg.RefreshRateLimit = 6
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
