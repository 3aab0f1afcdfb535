package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"beer-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches quiz content from a backing source (embedded default, YAML file).
type ContentLoader interface {
	LoadContent(ctx context.Context) (domain.QuizContent, error)
}

// ContentRepository caches quiz content with TTL to avoid re-reading the source.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	content   domain.QuizContent
	expiresAt time.Time
	loaded    bool
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return NewContentRepositoryWithClock(loader, ttl, time.Now)
}

// NewContentRepositoryWithClock allows tests to drive expiry.
func NewContentRepositoryWithClock(loader ContentLoader, ttl time.Duration, clock func() time.Time) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const contentKey = "content"

func (r *ContentRepository) GetContent(ctx context.Context) (domain.QuizContent, error) {
	if content, ok := r.cached(r.clock()); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(contentKey, func() (interface{}, error) {
		now := r.clock()
		if content, ok := r.cached(now); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx)
		if err != nil {
			return domain.QuizContent{}, err
		}
		content.Normalize()
		if err := content.Validate(); err != nil {
			return domain.QuizContent{}, err
		}

		r.mu.Lock()
		r.content = content
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.loaded = true
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// cached reports the cached content; a zero TTL caches forever.
func (r *ContentRepository) cached(now time.Time) (domain.QuizContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return domain.QuizContent{}, false
	}
	if r.ttl > 0 && !r.expiresAt.After(now) {
		return domain.QuizContent{}, false
	}
	return r.content, true
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader serves fixed content (the built-in quiz, tests).
type StaticContentLoader struct {
	content domain.QuizContent
}

func NewStaticContentLoader(content domain.QuizContent) *StaticContentLoader {
	return &StaticContentLoader{content: content}
}

func (l *StaticContentLoader) LoadContent(_ context.Context) (domain.QuizContent, error) {
	return l.content.Clone(), nil
}
