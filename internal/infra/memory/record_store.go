package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"beer-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// RecordStore is an in-memory implementation of app.RecordStore with a
// unique index on the lowercased email.
type RecordStore struct {
	mu      sync.RWMutex
	records []domain.QuizResponse
	byEmail map[string]int
	clock   func() time.Time
}

func NewRecordStore() *RecordStore {
	return NewRecordStoreWithClock(time.Now)
}

// NewRecordStoreWithClock is test-only for deterministic created_at values.
func NewRecordStoreWithClock(clock func() time.Time) *RecordStore {
	return &RecordStore{
		byEmail: make(map[string]int),
		clock:   clock,
	}
}

func (s *RecordStore) Find(_ context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredEmail
	for _, r := range s.records {
		if pattern.Matches(r.Email) {
			out = append(out, domain.StoredEmail{ID: r.ID, Email: r.Email})
		}
	}
	return out, nil
}

func (s *RecordStore) Insert(_ context.Context, response domain.QuizResponse) error {
	key := strings.ToLower(response.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[key]; exists {
		return fmt.Errorf("%w: email %s", domain.ErrUniqueViolation, key)
	}
	response.ID = uuid.NewString()
	response.CreatedAt = s.clock()
	response.Answers = append([]int(nil), response.Answers...)
	s.records = append(s.records, response)
	s.byEmail[key] = len(s.records) - 1
	return nil
}

func (s *RecordStore) ListByEmail(_ context.Context, email string) ([]domain.QuizResponse, error) {
	key := strings.ToLower(email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizResponse
	for _, r := range s.records {
		if strings.ToLower(r.Email) == key {
			r.Answers = append([]int(nil), r.Answers...)
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports the number of stored responses.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
