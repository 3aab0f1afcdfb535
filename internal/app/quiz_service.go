package app

import (
	"context"
	"sync"
	"time"

	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
	"beer-quiz-service/pkg/metrics"
	"github.com/google/uuid"
)

// SessionRepository abstracts where quiz sessions live (in-memory, Redis).
type SessionRepository interface {
	Create(ctx context.Context, session *domain.QuizSession) error
	Get(ctx context.Context, id string) (*domain.QuizSession, error)
	Save(ctx context.Context, session *domain.QuizSession) error
	Delete(ctx context.Context, id string) error
}

// ContentRepository loads quiz content (from cache/backing store).
type ContentRepository interface {
	GetContent(ctx context.Context) (domain.QuizContent, error)
}

// ServiceOptions tunes the quiz service.
type ServiceOptions struct {
	// CommandTimeout bounds each command, including its store round trips. Zero disables it.
	CommandTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

// QuizService exposes the quiz use cases addressed by session id.
// Commands against one session are serialised.
type QuizService struct {
	sessions   SessionRepository
	content    ContentRepository
	controller *Controller
	timeout    time.Duration
	now        func() time.Time
	newID      func() string
	locks      *sessionLocks
	log        logger.Logger
}

func NewQuizService(sessions SessionRepository, content ContentRepository, controller *Controller, opts ServiceOptions, log logger.Logger) *QuizService {
	if log == nil {
		log = logger.Get()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &QuizService{
		sessions:   sessions,
		content:    content,
		controller: controller,
		timeout:    opts.CommandTimeout,
		now:        opts.Now,
		newID:      opts.NewID,
		locks:      newSessionLocks(),
		log:        log.Named("quiz"),
	}
}

// Content returns the quiz content currently served.
func (s *QuizService) Content(ctx context.Context) (domain.QuizContent, error) {
	return s.content.GetContent(ctx)
}

// AllowedDomain is the email domain sessions must use.
func (s *QuizService) AllowedDomain() string {
	return s.controller.AllowedDomain()
}

// Start creates a new session at email entry.
func (s *QuizService) Start(ctx context.Context) (domain.QuizSession, error) {
	session := domain.NewQuizSession(s.newID(), s.now())
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.QuizSession{}, err
	}
	metrics.RecordSessionStarted()
	s.log.Debug(ctx, "session created", logger.String("session", session.ID))
	return *session.Clone(), nil
}

// Get returns a snapshot of the session.
func (s *QuizService) Get(ctx context.Context, id string) (domain.QuizSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.QuizSession{}, err
	}
	return *session, nil
}

// SubmitEmail runs the email-entry transition.
func (s *QuizService) SubmitEmail(ctx context.Context, id, email string) (domain.QuizSession, error) {
	return s.mutate(ctx, id, func(ctx context.Context, session *domain.QuizSession) error {
		return s.controller.SubmitEmail(ctx, session, email)
	})
}

// Answer records one answer for the current question.
func (s *QuizService) Answer(ctx context.Context, id string, value int) (domain.QuizSession, error) {
	return s.mutate(ctx, id, func(ctx context.Context, session *domain.QuizSession) error {
		content, err := s.content.GetContent(ctx)
		if err != nil {
			return err
		}
		return s.controller.Answer(ctx, session, content, value)
	})
}

// Reset returns a blocked session to email entry.
func (s *QuizService) Reset(ctx context.Context, id string) (domain.QuizSession, error) {
	return s.mutate(ctx, id, func(ctx context.Context, session *domain.QuizSession) error {
		return s.controller.Reset(ctx, session)
	})
}

// End discards the session.
func (s *QuizService) End(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.sessions.Delete(ctx, id)
}

// mutate loads the session, applies fn and persists whatever state fn left
// behind, including state changed alongside a returned domain error.
func (s *QuizService) mutate(ctx context.Context, id string, fn func(context.Context, *domain.QuizSession) error) (domain.QuizSession, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.QuizSession{}, err
	}
	before := session.Step

	cmdErr := fn(ctx, session)
	if err := s.sessions.Save(context.WithoutCancel(ctx), session); err != nil {
		s.log.Error(ctx, "persist session", logger.String("session", id), logger.Error(err))
		return *session.Clone(), err
	}
	if before != session.Step {
		s.log.Debug(ctx, "session transition",
			logger.String("session", id),
			logger.String("from", string(before)),
			logger.String("to", string(session.Step)))
	}
	return *session.Clone(), cmdErr
}

// sessionLocks hands out one mutex per session id and drops it once unused.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
