// Package config builds process configuration from environment variables
// so main stays lean. Nothing here is global: values are passed explicitly
// into constructors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DB holds PostgreSQL connection settings.
type DB struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// DSN renders the lib/pq connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Schedule configures the daily pipeline trigger.
type Schedule struct {
	// At is the daily trigger time in "HH:MM", UTC.
	At         string
	MaxRetries int
	RetryDelay time.Duration
}

// Config is the full process configuration.
type Config struct {
	DB              DB
	DuplicateAction string
	DataFile        string

	APIAddr    string
	FetchURL   string
	FetchLimit int

	Schedule Schedule

	// RedisURL enables the distributed run lock when non-empty.
	RedisURL string

	// KafkaBrokers enables run-event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv reads configuration from environment variables with defaults
// suitable for local development.
func FromEnv() Config {
	return Config{
		DB: DB{
			Host:     envString("DB_HOST", "localhost"),
			Port:     envInt("DB_PORT", 5432),
			Name:     envString("DB_NAME", "clinical_trials_db"),
			User:     envString("DB_USER", "postgres"),
			Password: envString("DB_PASSWORD", "password"),
		},
		DuplicateAction: envString("DUPLICATE_ACTION", "skip"),
		DataFile:        envString("DATA_FILE", "data/clinical_trials.json"),

		APIAddr:    envString("API_ADDR", ":8080"),
		FetchURL:   envString("FETCH_URL", "https://clinicaltrials.gov/api/int/studies/download"),
		FetchLimit: envInt("FETCH_LIMIT", 10000),

		Schedule: Schedule{
			At:         envString("SCHEDULE_TIME", "02:00"),
			MaxRetries: envInt("MAX_RETRIES", 3),
			RetryDelay: time.Duration(envInt("RETRY_DELAY_MINUTES", 30)) * time.Minute,
		},

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envString("KAFKA_TOPIC", "trialsearch.runs"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
