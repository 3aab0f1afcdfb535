package cli

import (
	"context"
	"fmt"
	"time"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/config"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/internal/infra/bolt"
	"beer-quiz-service/internal/infra/file"
	"beer-quiz-service/internal/infra/memory"
	"beer-quiz-service/internal/infra/postgres"
	infraredis "beer-quiz-service/internal/infra/redis"
	"beer-quiz-service/internal/infra/sqlite"
	"beer-quiz-service/pkg/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backends owns the external connections chosen by configuration.
type backends struct {
	cfg     config.Config
	pool    *pgxpool.Pool
	redis   *redis.Client
	closers []func() error
	log     logger.Logger
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{cfg: cfg, log: logger.Named("backends")}

	if cfg.Postgres.URL != "" && (cfg.Store.Driver == config.DriverPostgres || cfg.Quiz.ContentSource == config.ContentPostgres) {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, b.redis.Close)
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.log.Warn(ctx, "redis not reachable yet", logger.String("addr", cfg.Redis.Addr), logger.Error(err))
		}
	}
	return b, nil
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.log.Warn(context.Background(), "close backend", logger.Error(err))
		}
	}
}

func (b *backends) recordStore() (app.RecordStore, error) {
	switch b.cfg.Store.Driver {
	case config.DriverPostgres:
		return postgres.NewRecordStore(b.pool), nil
	case config.DriverSQLite:
		store, err := sqlite.NewRecordStore(b.cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", b.cfg.Store.SQLitePath, err)
		}
		b.closers = append(b.closers, store.Close)
		return store, nil
	case config.DriverBolt:
		store, err := bolt.NewRecordStore(b.cfg.Store.BoltPath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, store.Close)
		return store, nil
	default:
		b.log.Warn(context.Background(), "responses are kept in memory and lost on restart")
		return memory.NewRecordStore(), nil
	}
}

func (b *backends) contentLoader() memory.ContentLoader {
	switch b.cfg.Quiz.ContentSource {
	case config.ContentFile:
		return file.NewContentLoader(b.cfg.Quiz.ContentPath)
	case config.ContentPostgres:
		return postgres.NewContentLoader(b.pool, b.cfg.Quiz.ContentID)
	default:
		return memory.NewStaticContentLoader(domain.DefaultContent())
	}
}

func (b *backends) contentRepository() app.ContentRepository {
	ttl := config.TTLDuration(b.cfg.Quiz.ContentTTL, 10*time.Minute)
	if b.redis != nil {
		return infraredis.NewContentRepository(b.redis, b.contentLoader(), ttl, logger.Get())
	}
	return memory.NewContentRepository(b.contentLoader(), ttl)
}

func (b *backends) sessionStore() app.SessionRepository {
	if b.redis != nil {
		return infraredis.NewSessionStore(b.redis, config.TTLDuration(b.cfg.Redis.TTL, 30*time.Minute))
	}
	return memory.NewSessionStore()
}
