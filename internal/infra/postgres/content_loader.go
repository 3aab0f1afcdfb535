package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"beer-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DefaultContentID is the quiz_content row served by default.
const DefaultContentID = "default"

// ContentLoader loads quiz content JSONB from Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
	id   string
}

func NewContentLoader(pool *pgxpool.Pool, id string) *ContentLoader {
	if id == "" {
		id = DefaultContentID
	}
	return &ContentLoader{pool: pool, id: id}
}

func (l *ContentLoader) LoadContent(ctx context.Context) (domain.QuizContent, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data::text FROM quiz_content WHERE id=$1`, l.id).Scan(&raw)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load content %s: %w", l.id, err)
	}
	var content domain.QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.QuizContent{}, fmt.Errorf("unmarshal content: %w", err)
	}
	return content, nil
}

// StoreContent upserts the content row, seeding it from a file or the built-in quiz.
func (l *ContentLoader) StoreContent(ctx context.Context, content domain.QuizContent) error {
	data, err := json.Marshal(content)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO quiz_content (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		l.id, string(data))
	if err != nil {
		return fmt.Errorf("store content %s: %w", l.id, err)
	}
	return nil
}
