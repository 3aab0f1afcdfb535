package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"beer-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_responses (
    id         TEXT PRIMARY KEY,
    email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
    answers    TEXT NOT NULL,
    score      INTEGER NOT NULL,
    result     TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_responses_created_idx ON quiz_responses (created_at);
`

// RecordStore keeps quiz responses in a single SQLite file, for kiosk
// deployments without a database server.
type RecordStore struct {
	db  *sql.DB
	now func() time.Time
}

// Option customises a RecordStore.
type Option func(*RecordStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *RecordStore) {
		s.now = now
	}
}

func NewRecordStore(path string, opts ...Option) (*RecordStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	store := &RecordStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}

func (s *RecordStore) Find(ctx context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email FROM quiz_responses WHERE email LIKE ? ESCAPE '\'`,
		pattern.Like())
	if err != nil {
		return nil, fmt.Errorf("find similar emails: %w", err)
	}
	defer rows.Close()

	var found []domain.StoredEmail
	for rows.Next() {
		var e domain.StoredEmail
		if err := rows.Scan(&e.ID, &e.Email); err != nil {
			return nil, err
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_responses (id, email, answers, score, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), response.Email, answers, response.Score, response.Result, s.now().UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrUniqueViolation, err)
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *RecordStore) ListByEmail(ctx context.Context, email string) ([]domain.QuizResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, answers, score, result, created_at
		   FROM quiz_responses
		  WHERE email = ?
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
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Email, &answers, &r.Score, &r.Result, &created); err != nil {
			return nil, err
		}
		if r.Answers, err = domain.DecodeAnswers(answers); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
