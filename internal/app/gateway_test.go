package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/internal/infra/memory"
	"beer-quiz-service/pkg/logger"
)

func TestExistsSimilarIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	seed(t, store, "maria@allowed.com")
	gateway := newGateway(store, true)

	if !gateway.ExistsSimilar(ctx, "Maria@ALLOWED.COM") {
		t.Fatalf("expected case-insensitive match")
	}
	if !gateway.ExistsSimilar(ctx, "  mar@allowed.com ") {
		t.Fatalf("expected prefix match on a shorter local part")
	}
	if gateway.ExistsSimilar(ctx, "mariano@allowed.com") {
		t.Fatalf("did not expect a match for a longer local part")
	}
}

func TestExistsSimilarRequiresAllowedDomain(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	seed(t, store, "maria@other.com")
	gateway := newGateway(store, true)

	if gateway.ExistsSimilar(ctx, "maria@allowed.com") {
		t.Fatalf("records outside the allowed domain must not match")
	}
	if gateway.ExistsSimilar(ctx, "maria@other.com") {
		t.Fatalf("the pattern always targets the allowed domain")
	}
}

func TestExistsSimilarMalformed(t *testing.T) {
	store := &faultyStore{RecordStore: memory.NewRecordStore(), findErr: errors.New("should not be called")}
	gateway := newGateway(store, true)

	if gateway.ExistsSimilar(context.Background(), "no-at-sign") {
		t.Fatalf("malformed email should report false")
	}
	if gateway.ExistsSimilar(context.Background(), "   ") {
		t.Fatalf("empty email should report false")
	}
	if store.finds != 0 {
		t.Fatalf("store must not be queried for malformed emails")
	}
}

func TestExistsSimilarFailurePolicy(t *testing.T) {
	store := &faultyStore{RecordStore: memory.NewRecordStore(), findErr: errors.New("connection refused")}

	if !newGateway(store, true).ExistsSimilar(context.Background(), "ana@allowed.com") {
		t.Fatalf("fail-closed gateway should report a duplicate on store error")
	}
	if newGateway(store, false).ExistsSimilar(context.Background(), "ana@allowed.com") {
		t.Fatalf("fail-open gateway should report no duplicate on store error")
	}
}

func TestSaveWritesNormalizedRecord(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	gateway := newGateway(store, true)

	ok := gateway.Save(ctx, response(" Ana@Allowed.com ", 4, 4, 4, 4, 4))
	if !ok {
		t.Fatalf("expected save to succeed")
	}
	records, err := gateway.ResponsesByEmail(ctx, "ana@allowed.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Email != "ana@allowed.com" || records[0].Score != 20 {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestSaveRejectsSimilarEmail(t *testing.T) {
	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	seed(t, store, "ana.lopez@allowed.com")
	gateway := newGateway(store, true)

	if gateway.Save(context.Background(), response("ana@allowed.com", 1, 1, 1, 1, 1)) {
		t.Fatalf("expected save to be refused")
	}
	if store.inserts != 0 {
		t.Fatalf("no insert should be attempted, got %d", store.inserts)
	}
}

func TestSaveMapsFailuresToFalse(t *testing.T) {
	cases := map[string]*faultyStore{
		"find error":       {RecordStore: memory.NewRecordStore(), findErr: errors.New("timeout")},
		"insert error":     {RecordStore: memory.NewRecordStore(), insertErr: errors.New("disk full")},
		"unique violation": {RecordStore: memory.NewRecordStore(), insertErr: domain.ErrUniqueViolation},
	}
	for name, store := range cases {
		if newGateway(store, true).Save(context.Background(), response("ana@allowed.com", 2, 2, 2, 2, 2)) {
			t.Fatalf("%s: expected false", name)
		}
		if store.Len() != 0 {
			t.Fatalf("%s: expected nothing stored", name)
		}
	}

	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	bad := response("ana@allowed.com", 2, 2, 2, 2, 2)
	bad.Score = 3
	if newGateway(store, true).Save(context.Background(), bad) {
		t.Fatalf("expected inconsistent score to be refused")
	}
	if newGateway(store, true).Save(context.Background(), response("ana.allowed.com", 2, 2, 2, 2, 2)) {
		t.Fatalf("expected malformed email to be refused")
	}
}

func TestSaveRefusesIncompleteAnswerList(t *testing.T) {
	store := &faultyStore{RecordStore: memory.NewRecordStore()}
	gateway := newGateway(store, true)

	for _, answers := range [][]int{{1}, {2, 2, 2, 2}, {1, 1, 1, 1, 1, 1}} {
		if gateway.Save(context.Background(), response("zed@allowed.com", answers...)) {
			t.Fatalf("%d answers: expected save to be refused", len(answers))
		}
	}
	if store.Len() != 0 || store.inserts != 0 {
		t.Fatalf("expected nothing written, got %d records after %d inserts", store.Len(), store.inserts)
	}
}

func TestConcurrentSavesStoreExactlyOne(t *testing.T) {
	for round := 0; round < 20; round++ {
		store := &faultyStore{RecordStore: memory.NewRecordStore()}
		gateway := newGateway(store, true)

		var wg sync.WaitGroup
		results := make([]bool, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = gateway.Save(context.Background(), response("ana@allowed.com", 3, 3, 3, 3, 3))
			}(i)
		}
		wg.Wait()

		if results[0] == results[1] {
			t.Fatalf("expected exactly one successful save, got %v", results)
		}
		if store.Len() != 1 {
			t.Fatalf("expected exactly one record, got %d", store.Len())
		}
	}
}

// faultyStore wraps the in-memory store with injectable failures.
type faultyStore struct {
	*memory.RecordStore
	findErr   error
	insertErr error

	mu      sync.Mutex
	finds   int
	inserts int
}

func (s *faultyStore) Find(ctx context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	s.mu.Lock()
	s.finds++
	err := s.findErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.RecordStore.Find(ctx, pattern)
}

func (s *faultyStore) Insert(ctx context.Context, r domain.QuizResponse) error {
	s.mu.Lock()
	s.inserts++
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.RecordStore.Insert(ctx, r)
}

func newGateway(store app.RecordStore, failClosed bool) *app.ResponseGateway {
	return app.NewResponseGateway(store, app.GatewayOptions{AllowedDomain: "allowed.com", FailClosed: failClosed}, logger.Nop())
}

func seed(t *testing.T, store *faultyStore, email string) {
	t.Helper()
	if err := store.RecordStore.Insert(context.Background(), response(email, 4, 4, 4, 4, 4)); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
}

func response(email string, answers ...int) domain.QuizResponse {
	score := domain.Score(answers)
	return domain.QuizResponse{
		Email:   email,
		Answers: answers,
		Score:   score,
		Result:  domain.Classify(score).Label,
	}
}
