package postgres

import (
	"context"
	"errors"
	"fmt"

	"beer-quiz-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// RecordStore persists quiz responses in the quiz_responses table.
// A unique index on lower(email) backs up the application-level check.
type RecordStore struct {
	pool *pgxpool.Pool
}

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

func (s *RecordStore) Find(ctx context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, email FROM quiz_responses WHERE email ILIKE $1 ESCAPE '\'`,
		pattern.Like())
	if err != nil {
		return nil, fmt.Errorf("find similar emails: %w", err)
	}
	defer rows.Close()

	var found []domain.StoredEmail
	for rows.Next() {
		var e domain.StoredEmail
		if err := rows.Scan(&e.ID, &e.Email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		found = append(found, e)
	}
	return found, rows.Err()
}

func (s *RecordStore) Insert(ctx context.Context, response domain.QuizResponse) error {
	answers, err := domain.EncodeAnswers(response.Answers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_responses (email, answers, score, result) VALUES ($1, $2::jsonb, $3, $4)`,
		response.Email, answers, response.Score, response.Result)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrUniqueViolation, err)
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *RecordStore) ListByEmail(ctx context.Context, email string) ([]domain.QuizResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, email, answers::text, score, result, created_at
		   FROM quiz_responses
		  WHERE lower(email) = lower($1)
		  ORDER BY created_at DESC`,
		email)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizResponse
	for rows.Next() {
		var (
			r       domain.QuizResponse
			answers string
		)
		if err := rows.Scan(&r.ID, &r.Email, &answers, &r.Score, &r.Result, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if r.Answers, err = domain.DecodeAnswers(answers); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
