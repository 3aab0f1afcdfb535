package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"beer-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const bucketResponses = "quiz_responses"

// RecordStore keeps quiz responses in an embedded bbolt file keyed by the
// lowercased email. Insert re-runs the similarity check inside its write
// transaction, so check and insert are atomic.
type RecordStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewRecordStore(path string) (*RecordStore, error) {
	return NewRecordStoreWithClock(path, time.Now)
}

// NewRecordStoreWithClock allows tests to fix CreatedAt.
func NewRecordStoreWithClock(path string, now func() time.Time) (*RecordStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open database in %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketResponses))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "cannot create bucket 'quiz_responses'")
	}
	return &RecordStore{db: db, now: now}, nil
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}

func (s *RecordStore) Find(ctx context.Context, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found []domain.StoredEmail
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		found, err = scan(tx.Bucket([]byte(bucketResponses)), pattern)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not find similar emails")
	}
	return found, nil
}

func (s *RecordStore) Insert(ctx context.Context, response domain.QuizResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := strings.ToLower(response.Email)
	pattern, err := domain.NewEmailPattern(email, domainOf(email))
	if err != nil {
		return err
	}

	record := response
	record.ID = uuid.NewString()
	record.Email = email
	record.CreatedAt = s.now().UTC()
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "could not marshal response for %s", email)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketResponses))
		similar, err := scan(bucket, pattern)
		if err != nil {
			return err
		}
		if len(similar) > 0 {
			return fmt.Errorf("%w: %s matches %s", domain.ErrUniqueViolation, email, similar[0].Email)
		}
		if err := bucket.Put([]byte(email), data); err != nil {
			return errors.Wrapf(err, "could not save response for %s", email)
		}
		return nil
	})
}

func (s *RecordStore) ListByEmail(ctx context.Context, email string) ([]domain.QuizResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.QuizResponse
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketResponses)).Get([]byte(strings.ToLower(email)))
		if data == nil {
			return nil
		}
		var r domain.QuizResponse
		if err := json.Unmarshal(data, &r); err != nil {
			return errors.Wrapf(err, "invalid data for %s", email)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scan walks keys sharing the local-part prefix; keys are sorted so the walk
// stops at the first key past the prefix.
func scan(bucket *bbolt.Bucket, pattern domain.EmailPattern) ([]domain.StoredEmail, error) {
	if bucket == nil {
		return nil, errors.New("quiz_responses bucket does not exist")
	}
	prefix := []byte(pattern.LocalPrefix)
	var found []domain.StoredEmail
	c := bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if !pattern.Matches(string(k)) {
			continue
		}
		var r domain.QuizResponse
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, errors.Wrapf(err, "invalid data for %s", k)
		}
		found = append(found, domain.StoredEmail{ID: r.ID, Email: r.Email})
	}
	return found, nil
}

func domainOf(email string) string {
	return email[strings.LastIndex(email, "@")+1:]
}
