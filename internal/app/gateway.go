package app

import (
	"context"
	"errors"
	"fmt"

	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
	"beer-quiz-service/pkg/metrics"
)

// RecordStore is the persistence boundary for quiz responses (memory, Postgres, SQLite, bbolt).
type RecordStore interface {
	// Find returns stored emails matching the case-insensitive fuzzy pattern.
	Find(ctx context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error)
	// Insert writes a response. Uniqueness conflicts wrap domain.ErrUniqueViolation.
	Insert(ctx context.Context, response domain.QuizResponse) error
	// ListByEmail returns responses for an exact email, newest first.
	ListByEmail(ctx context.Context, email string) ([]domain.QuizResponse, error)
}

// GatewayOptions configures the response gateway.
type GatewayOptions struct {
	AllowedDomain string
	// FailClosed treats a failed existence query as "already responded".
	FailClosed bool
}

// ResponseGateway guards the record store with the fuzzy duplicate check.
type ResponseGateway struct {
	store      RecordStore
	domain     string
	failClosed bool
	log        logger.Logger
}

func NewResponseGateway(store RecordStore, opts GatewayOptions, log logger.Logger) *ResponseGateway {
	if log == nil {
		log = logger.Get()
	}
	return &ResponseGateway{
		store:      store,
		domain:     domain.NormalizeDomain(opts.AllowedDomain),
		failClosed: opts.FailClosed,
		log:        log.Named("gateway"),
	}
}

// ExistsSimilar reports whether any stored email shares the local-part prefix
// within the allowed domain. Store errors resolve to the fail-closed policy.
func (g *ResponseGateway) ExistsSimilar(ctx context.Context, email string) bool {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		metrics.RecordExistenceCheck("malformed")
		return false
	}
	pattern, err := domain.NewEmailPattern(normalized, g.domain)
	if err != nil {
		g.log.Warn(ctx, "existence check skipped", logger.String("email", normalized), logger.Error(err))
		metrics.RecordExistenceCheck("malformed")
		return false
	}

	matches, err := g.store.Find(ctx, pattern)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		metrics.RecordStoreError("find")
		g.log.Error(ctx, "existence check failed",
			logger.String("email", normalized),
			logger.Bool("fail_closed", g.failClosed),
			logger.Error(err))
		if g.failClosed {
			metrics.RecordExistenceCheck("fail_closed")
			return true
		}
		metrics.RecordExistenceCheck("fail_open")
		return false
	}

	if len(matches) > 0 {
		emails := make([]string, len(matches))
		for i, m := range matches {
			emails[i] = m.Email
		}
		g.log.Info(ctx, "similar email found",
			logger.String("email", normalized),
			logger.String("pattern", pattern.Like()),
			logger.Any("matches", emails))
		metrics.RecordExistenceCheck("match")
		return true
	}
	g.log.Debug(ctx, "no similar email", logger.String("email", normalized), logger.String("pattern", pattern.Like()))
	metrics.RecordExistenceCheck("clear")
	return false
}

// Save re-runs the fuzzy check and inserts the response. It reports false for
// duplicates and failures alike; the reason is only logged.
func (g *ResponseGateway) Save(ctx context.Context, response domain.QuizResponse) bool {
	err := g.save(ctx, response)
	switch {
	case err == nil:
		metrics.RecordSave("saved")
		g.log.Info(ctx, "response saved",
			logger.String("email", domain.NormalizeEmail(response.Email)),
			logger.Int("score", response.Score),
			logger.String("result", response.Result))
		return true
	case errors.Is(err, domain.ErrDuplicateEmail):
		metrics.RecordSave("duplicate")
		g.log.Warn(ctx, "save blocked by duplicate", logger.String("email", domain.NormalizeEmail(response.Email)), logger.Error(err))
	default:
		metrics.RecordSave("failed")
		g.log.Error(ctx, "save failed", logger.String("email", domain.NormalizeEmail(response.Email)), logger.Error(err))
	}
	return false
}

func (g *ResponseGateway) save(ctx context.Context, response domain.QuizResponse) error {
	normalized := domain.NormalizeEmail(response.Email)
	if normalized == "" {
		return fmt.Errorf("%w: empty email", domain.ErrMalformedEmail)
	}
	pattern, err := domain.NewEmailPattern(normalized, g.domain)
	if err != nil {
		return err
	}
	if err := response.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveFailed, err)
	}

	matches, err := g.store.Find(ctx, pattern)
	if err != nil {
		metrics.RecordStoreError("find")
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if len(matches) > 0 {
		return fmt.Errorf("%w: %s matches %s", domain.ErrDuplicateEmail, normalized, matches[0].Email)
	}

	record := domain.QuizResponse{
		Email:   normalized,
		Answers: append([]int(nil), response.Answers...),
		Score:   response.Score,
		Result:  response.Result,
	}
	if err := g.store.Insert(ctx, record); err != nil {
		if errors.Is(err, domain.ErrUniqueViolation) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateEmail, err)
		}
		metrics.RecordStoreError("insert")
		return fmt.Errorf("%w: %v", domain.ErrSaveFailed, err)
	}
	return nil
}

// ResponsesByEmail lists stored responses for an exact (normalized) email.
func (g *ResponseGateway) ResponsesByEmail(ctx context.Context, email string) ([]domain.QuizResponse, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return nil, domain.ErrInvalidFormat
	}
	responses, err := g.store.ListByEmail(ctx, normalized)
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return responses, nil
}
