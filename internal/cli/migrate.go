package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"beer-quiz-service/internal/config"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/internal/infra/file"
	"beer-quiz-service/internal/infra/postgres"
	pgmigrations "beer-quiz-service/internal/infra/postgres/migrations"
	infraredis "beer-quiz-service/internal/infra/redis"
	"beer-quiz-service/pkg/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var (
		down bool
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, down); err != nil {
				return err
			}
			if seed && !down {
				return seedContent(cmd.Context(), cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the last migration group")
	cmd.Flags().BoolVar(&seed, "seed-content", false, "store quiz content (file or built-in) in the quiz_content table")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, down bool) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logger.Named("migrate")

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if down {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		log.Info(ctx, "migrations rolled back", logger.String("group", group.String()))
		return nil
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info(ctx, "no new migrations")
		return nil
	}
	log.Info(ctx, "migrations applied", logger.String("group", group.String()))
	return nil
}

func seedContent(ctx context.Context, cfg config.Config) error {
	content := domain.DefaultContent()
	if cfg.Quiz.ContentPath != "" {
		loaded, err := file.NewContentLoader(cfg.Quiz.ContentPath).LoadContent(ctx)
		if err != nil {
			return err
		}
		content = loaded
	}
	content.Normalize()
	if err := content.Validate(); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	loader := postgres.NewContentLoader(pool, cfg.Quiz.ContentID)
	if err := loader.StoreContent(ctx, content); err != nil {
		return err
	}
	logger.Named("migrate").Info(ctx, "quiz content stored",
		logger.String("id", cfg.Quiz.ContentID),
		logger.Int("questions", len(content.Questions)))
	return invalidateCachedContent(ctx, cfg, loader)
}

// invalidateCachedContent drops the Redis copy of the content so running
// servers pick up the seeded document on their next read.
func invalidateCachedContent(ctx context.Context, cfg config.Config, loader infraredis.ContentLoader) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	repo := infraredis.NewContentRepository(client, loader, config.TTLDuration(cfg.Quiz.ContentTTL, 10*time.Minute), logger.Get())
	if err := repo.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate cached content: %w", err)
	}
	logger.Named("migrate").Info(ctx, "cached content invalidated", logger.String("redis", cfg.Redis.Addr))
	return nil
}
