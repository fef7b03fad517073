// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names the storage implementation selected by DATABASE_URL.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Events backends.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
)

type Config struct {
	// HTTP server
	Port            string
	ShutdownTimeout time.Duration

	// Storage
	DatabaseURL string
	DevSeed     bool

	// Logging
	LogLevel  string
	LogFormat string

	// Change events
	EventsBackend string
	KafkaBrokers  []string
	KafkaTopic    string
	AMQPURL        string
	AMQPExchange   string
	PublishTimeout time.Duration

	// problems found while reading the environment, reported by Validate
	loadProblems []string
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then builds
// a Config. Missing .env files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port: getEnv("PORT", "8000"),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DevSeed:     getEnvBool("DEV_SEED"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		EventsBackend: strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "spendlog.transactions"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "spendlog"),
	}
	cfg.ShutdownTimeout = cfg.getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.PublishTimeout = cfg.getEnvDuration("EVENTS_PUBLISH_TIMEOUT", 2*time.Second)
	return cfg, nil
}

// Storage reports which backend DATABASE_URL selects and the DSN or file
// path to hand to it.
func (c *Config) Storage() (Backend, string) {
	dsn := c.DatabaseURL
	switch {
	case dsn == "":
		return BackendMemory, ""
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return BackendPostgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return BackendSQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "file:"):
		return BackendSQLite, dsn
	default:
		return Backend(""), dsn
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.loadProblems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch backend, path := c.Storage(); backend {
	case BackendMemory, BackendPostgres:
	case BackendSQLite:
		if path == "" {
			problems = append(problems, "sqlite database path cannot be empty")
		}
	default:
		problems = append(problems, "invalid DATABASE_URL: scheme must be postgres://, postgresql://, sqlite:// or file:")
	}

	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}
	if (c.EventsBackend == EventsKafka || c.EventsBackend == EventsAMQP) && c.PublishTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid publish timeout %v: must be positive", c.PublishTimeout))
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			problems = append(problems, "KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
		if c.KafkaTopic == "" {
			problems = append(problems, "KAFKA_TOPIC cannot be empty when EVENTS_BACKEND=kafka")
		}
	case EventsAMQP:
		if c.AMQPURL == "" {
			problems = append(problems, "AMQP_URL is required when EVENTS_BACKEND=amqp")
		} else if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when EVENTS_BACKEND=amqp")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid events backend '%s': must be one of none, kafka, amqp", c.EventsBackend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// getEnvDuration parses key as a Go duration. An unparsable value is kept
// as a problem for Validate and the default is returned.
func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.loadProblems = append(c.loadProblems, fmt.Sprintf("invalid %s '%s': must be a duration such as 10s", key, value))
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
