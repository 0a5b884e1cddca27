package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/events/kafka"
	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
	repopg "github.com/tendant/simple-publish/pkg/simplepublish/repo/postgres"
	"github.com/tendant/simple-publish/pkg/simplepublish/storage/cdn"
	memorystorage "github.com/tendant/simple-publish/pkg/simplepublish/storage/memory"
	s3storage "github.com/tendant/simple-publish/pkg/simplepublish/storage/s3"
)

// Runtime holds the built core and the resources behind it.
type Runtime struct {
	Core *simplepublish.Core
	// MediaStore is the origin store, nil when storage is disabled. Playback
	// URLs may be rewritten to a CDN in front of it.
	MediaStore simplepublish.MediaStore
	// Pool is nil unless the postgres repository is in use.
	Pool *pgxpool.Pool

	closers []func() error
}

// Close releases the pool and flushes the event writer.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks the database when one is configured.
func (r *Runtime) Ping(ctx context.Context) error {
	if r.Pool == nil {
		return nil
	}
	return r.Pool.Ping(ctx)
}

// Build wires the repository, media store and event sink selected by the
// configuration into a Core.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger, extra ...simplepublish.Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}
	options := []simplepublish.Option{simplepublish.WithLogger(logger)}

	tx, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, simplepublish.WithTxRunner(tx))

	store, err := c.buildMediaStore(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build media store: %w", err)
	}
	if store != nil {
		rt.MediaStore = store
		if c.Storage.CDNBaseURL != "" {
			wrapped, err := cdn.New(store, c.Storage.CDNBaseURL)
			if err != nil {
				rt.Close()
				return nil, err
			}
			store = wrapped
		}
		options = append(options, simplepublish.WithMediaStore(store))
	}

	keys, err := objectkey.New(c.Storage.KeyStrategy)
	if err != nil {
		rt.Close()
		return nil, err
	}
	options = append(options, simplepublish.WithKeyGenerator(keys))

	sink, err := c.buildEventSink(logger, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build event sink: %w", err)
	}
	options = append(options, simplepublish.WithEventSink(sink))

	core, err := simplepublish.New(append(options, extra...)...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Core = core
	return rt, nil
}

func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (simplepublish.TxRunner, error) {
	switch c.Database.Type {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := NewPool(ctx, c.Database.URL, c.Database.Schema)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		if c.Database.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
}

// NewPool opens a pgx pool and optionally pins search_path to schema.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

func (c *ServerConfig) buildMediaStore(ctx context.Context) (simplepublish.MediaStore, error) {
	switch c.Storage.Type {
	case "none":
		return nil, nil
	case "memory":
		return memorystorage.New(c.Storage.MemoryBaseURL), nil
	case "s3":
		s3 := c.Storage.S3
		return s3storage.New(ctx, s3storage.Config{
			Region:                 s3.Region,
			Bucket:                 s3.Bucket,
			AccessKeyID:            s3.AccessKeyID,
			SecretAccessKey:        s3.SecretAccessKey,
			Endpoint:               s3.Endpoint,
			UsePathStyle:           s3.UsePathStyle,
			PresignDuration:        s3.PresignDuration,
			EnableSSE:              s3.EnableSSE,
			SSEAlgorithm:           s3.SSEAlgorithm,
			SSEKMSKeyID:            s3.SSEKMSKeyID,
			CreateBucketIfNotExist: s3.CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

func (c *ServerConfig) buildEventSink(logger *slog.Logger, rt *Runtime) (simplepublish.EventSink, error) {
	switch c.Events.Type {
	case "noop":
		return simplepublish.NewNoopEventSink(), nil
	case "log":
		return simplepublish.NewLoggingEventSink(logger), nil
	case "kafka":
		sink, err := kafka.New(kafka.Config{
			Brokers:      c.Events.KafkaBrokers,
			Topic:        c.Events.KafkaTopic,
			BatchTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, sink.Close)
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", c.Events.Type)
	}
}
