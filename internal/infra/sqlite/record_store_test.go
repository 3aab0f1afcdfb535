package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"beer-quiz-service/internal/domain"
)

func TestRecordStoreFindUsesEscapedLike(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	mustInsert(t, store, "maria@allowed.com")
	mustInsert(t, store, "Mariana.Perez@Allowed.com")
	mustInsert(t, store, "maria@allowed.com.mx")
	mustInsert(t, store, "axb@allowed.com")

	pattern, _ := domain.NewEmailPattern("MARIA@allowed.com", "allowed.com")
	found, err := store.Find(ctx, pattern)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %+v", found)
	}

	// "_" in the local part is literal, not a single-character wildcard.
	pattern, _ = domain.NewEmailPattern("a_b@allowed.com", "allowed.com")
	if found, _ := store.Find(ctx, pattern); len(found) != 0 {
		t.Fatalf("expected escaped underscore to match literally, got %+v", found)
	}
}

func TestRecordStoreUniqueEmailIgnoresCase(t *testing.T) {
	store := newStore(t)
	mustInsert(t, store, "ana@allowed.com")

	err := store.Insert(context.Background(), response("ANA@allowed.com"))
	if !errors.Is(err, domain.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestRecordStoreListByEmail(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "quiz.db")
	store, err := NewRecordStore(path, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mustInsert(t, store, "ana@allowed.com")

	got, err := store.ListByEmail(context.Background(), "Ana@Allowed.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
	r := got[0]
	if r.ID == "" || r.Score != 14 || r.Result != "IPA Amarga" || !r.CreatedAt.Equal(now) {
		t.Fatalf("unexpected record %+v", r)
	}
	if len(r.Answers) != 5 || r.Answers[0] != 4 || r.Answers[4] != 1 {
		t.Fatalf("unexpected answers %v", r.Answers)
	}

	// Data survives reopening the file.
	_ = store.Close()
	reopened, err := NewRecordStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if got, _ := reopened.ListByEmail(context.Background(), "ana@allowed.com"); len(got) != 1 {
		t.Fatalf("expected persisted record, got %+v", got)
	}
}

func newStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := NewRecordStore(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustInsert(t *testing.T, store *RecordStore, email string) {
	t.Helper()
	if err := store.Insert(context.Background(), response(email)); err != nil {
		t.Fatalf("insert %s: %v", email, err)
	}
}

func response(email string) domain.QuizResponse {
	return domain.QuizResponse{
		Email:   email,
		Answers: []int{4, 3, 3, 3, 1},
		Score:   14,
		Result:  "IPA Amarga",
	}
}
