package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beer-quiz-service/internal/domain"
)

func TestContentRepositoryCaches(t *testing.T) {
	loader := &countingLoader{ContentLoader: NewStaticContentLoader(domain.DefaultContent())}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetContent(context.Background()); err != nil {
		t.Fatalf("get content: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	content, err := repo.GetContent(context.Background())
	if err != nil {
		t.Fatalf("get content 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if len(content.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(content.Questions))
	}
}

func TestContentRepositoryExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	loader := &countingLoader{ContentLoader: NewStaticContentLoader(domain.DefaultContent())}
	repo := NewContentRepositoryWithClock(loader, time.Minute, func() time.Time { return now })

	_, _ = repo.GetContent(context.Background())
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetContent(context.Background())
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestContentRepositoryCoalescesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{ContentLoader: NewStaticContentLoader(domain.DefaultContent()), gate: release}
	repo := NewContentRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetContent(context.Background()); err != nil {
				t.Errorf("get content: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.count() != 1 {
		t.Fatalf("expected a single load, got %d", loader.count())
	}
}

func TestContentRepositoryRejectsInvalidContent(t *testing.T) {
	broken := domain.DefaultContent()
	broken.Questions = nil
	repo := NewContentRepository(NewStaticContentLoader(broken), time.Minute)

	if _, err := repo.GetContent(context.Background()); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("expected invalid content error, got %v", err)
	}
}

type countingLoader struct {
	ContentLoader
	gate  chan struct{}
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadContent(ctx context.Context) (domain.QuizContent, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.gate != nil {
		<-l.gate
	}
	return l.ContentLoader.LoadContent(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
