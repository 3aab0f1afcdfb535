package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches quiz content from its source (YAML file, built-in default).
type ContentLoader interface {
	LoadContent(ctx context.Context) (domain.QuizContent, error)
}

// ContentRepository caches quiz content in Redis as one JSON document and
// falls back to the loader on a miss. Cache failures never fail a read.
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	log    logger.Logger
}

const contentKey = "quiz:content"

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration, log logger.Logger) *ContentRepository {
	if log == nil {
		log = logger.Get()
	}
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log.Named("content-cache"),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context) (domain.QuizContent, error) {
	if content, ok := r.cached(ctx); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(contentKey, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if content, ok := r.cached(ctx); ok {
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

		data, err := json.Marshal(content)
		if err == nil {
			err = r.client.Set(ctx, contentKey, data, r.ttlWithJitter()).Err()
		}
		if err != nil {
			r.log.Warn(ctx, "content cache write failed", logger.Error(err))
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate drops the cached document so the next read reloads it.
func (r *ContentRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, contentKey).Err()
}

func (r *ContentRepository) cached(ctx context.Context) (domain.QuizContent, bool) {
	data, err := r.client.Get(ctx, contentKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn(ctx, "content cache read failed", logger.Error(err))
		}
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal(data, &content); err != nil || content.Validate() != nil {
		r.log.Warn(ctx, "discarding unreadable cached content")
		return domain.QuizContent{}, false
	}
	return content, true
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
