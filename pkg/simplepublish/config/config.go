package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
// WithEnv resets every env-backed field, so pass it before programmatic overrides.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Type: "memory",
		},
		Storage: StorageConfig{
			Type:          "memory",
			KeyStrategy:   "git",
			MemoryBaseURL: "http://localhost:8080/media",
			S3: S3Config{
				Region:          "us-east-1",
				PresignDuration: 3600,
				SSEAlgorithm:    "AES256",
			},
		},
		Events: EventsConfig{
			Type:       "log",
			KafkaTopic: "simple-publish.events",
		},
	}
}

// ServerConfig represents server configuration for the simple-publish service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	JWTSecret   string `env:"JWT_SECRET"`

	Database DatabaseConfig
	Storage  StorageConfig
	Events   EventsConfig
}

// DatabaseConfig selects the repository backend.
type DatabaseConfig struct {
	Type        string `env:"DATABASE_TYPE" env-default:"memory"` // memory, postgres
	URL         string `env:"DATABASE_URL"`
	Schema      string `env:"DATABASE_SCHEMA"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" env-default:"false"`
}

// StorageConfig selects the media store used for presigned URLs.
type StorageConfig struct {
	Type          string `env:"STORAGE_TYPE" env-default:"memory"` // none, memory, s3
	KeyStrategy   string `env:"STORAGE_KEY_STRATEGY" env-default:"git"`
	MemoryBaseURL string `env:"STORAGE_MEMORY_BASE_URL" env-default:"http://localhost:8080/media"`
	// CDNBaseURL, when set, serves playback URLs from a CDN mirroring the store.
	CDNBaseURL string `env:"STORAGE_CDN_BASE_URL"`
	S3         S3Config
}

// S3Config mirrors the S3 backend options.
type S3Config struct {
	Region                 string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	Bucket                 string `env:"AWS_S3_BUCKET"`
	AccessKeyID            string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle           bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PresignDuration        int    `env:"AWS_S3_PRESIGN_DURATION" env-default:"3600"`
	EnableSSE              bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm           string `env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID            string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	CreateBucketIfNotExist bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// EventsConfig selects where lifecycle events go.
type EventsConfig struct {
	Type         string `env:"EVENTS_TYPE" env-default:"log"` // noop, log, kafka
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" env-default:"simple-publish.events"`
}

// IsProduction reports whether the server runs in production.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database url is required when using postgres")
		}
	default:
		return errors.New("database type must be 'memory' or 'postgres'")
	}

	switch c.Storage.Type {
	case "none", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.CDNBaseURL != "" && c.Storage.Type == "none" {
		return errors.New("cdn base url requires a storage backend")
	}
	if _, err := objectkey.New(c.Storage.KeyStrategy); err != nil {
		return err
	}

	switch c.Events.Type {
	case "noop", "log":
	case "kafka":
		if strings.TrimSpace(c.Events.KafkaBrokers) == "" {
			return errors.New("kafka brokers are required when using kafka events")
		}
		if c.Events.KafkaTopic == "" {
			return errors.New("kafka topic is required when using kafka events")
		}
	default:
		return fmt.Errorf("unsupported events type: %s", c.Events.Type)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("jwt secret is required in production")
	}

	return nil
}
