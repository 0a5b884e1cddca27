package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads every field tagged `env` from the process environment.
// Unset variables fall back to their env-default tag.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.Database.Type = dbType
		c.Database.URL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.Database.Schema = schema
		return nil
	}
}

// WithAutoMigrate applies the embedded schema when the core is built.
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.Database.AutoMigrate = enabled
		return nil
	}
}

// WithMemoryStorage serves presigned URLs from the in-process store.
func WithMemoryStorage(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.Storage.Type = "memory"
		if baseURL != "" {
			c.Storage.MemoryBaseURL = baseURL
		}
		return nil
	}
}

// WithS3Storage configures the S3 media store
func WithS3Storage(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		if s3.PresignDuration == 0 {
			s3.PresignDuration = 3600
		}
		c.Storage.Type = "s3"
		c.Storage.S3 = s3
		return nil
	}
}

// WithoutStorage disables presigned URLs.
func WithoutStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage.Type = "none"
		return nil
	}
}

// WithCDN serves playback URLs from baseURL instead of presigning them.
func WithCDN(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.Storage.CDNBaseURL = baseURL
		return nil
	}
}

// WithKeyStrategy selects how storage keys are generated ("git" or "flat").
func WithKeyStrategy(strategy string) Option {
	return func(c *ServerConfig) error {
		c.Storage.KeyStrategy = strategy
		return nil
	}
}

// WithEvents selects the event sink ("noop" or "log").
func WithEvents(sinkType string) Option {
	return func(c *ServerConfig) error {
		if sinkType != "noop" && sinkType != "log" {
			return fmt.Errorf("events type must be 'noop' or 'log', got: %s (use WithKafka for kafka)", sinkType)
		}
		c.Events.Type = sinkType
		return nil
	}
}

// WithKafka publishes lifecycle events to topic.
func WithKafka(brokers, topic string) Option {
	return func(c *ServerConfig) error {
		if brokers == "" {
			return fmt.Errorf("kafka brokers cannot be empty")
		}
		c.Events.Type = "kafka"
		c.Events.KafkaBrokers = brokers
		if topic != "" {
			c.Events.KafkaTopic = topic
		}
		return nil
	}
}

// WithJWTSecret sets the HS256 secret used to verify actor tokens.
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithLogLevel sets the minimum log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		if _, err := parseLevel(level); err != nil {
			return err
		}
		c.LogLevel = level
		return nil
	}
}
