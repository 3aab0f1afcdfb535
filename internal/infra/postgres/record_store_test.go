package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if !isUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23502"}) {
		t.Fatalf("not-null violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("23505")) {
		t.Fatalf("plain errors are never unique violations")
	}
}
