package app

import (
	"context"
	"fmt"
	"time"

	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
	"beer-quiz-service/pkg/metrics"
)

// Gateway is what the flow needs from the response store.
type Gateway interface {
	ExistsSimilar(ctx context.Context, email string) bool
	Save(ctx context.Context, response domain.QuizResponse) bool
}

// User-facing messages.
const (
	MessageInvalidFormat = "Ingresa un correo electrónico válido"
	MessageWrongDomain   = "Por favor, utiliza un correo con dominio @%s"
	MessageDuplicate     = "Un email similar ya ha respondido el quiz anteriormente."
	MessageInvalidAnswer = "Selecciona una respuesta entre 1 y 4"
	MessageSaveFailed    = "Error al guardar las respuestas. Por favor, intenta nuevamente."
)

// Controller drives a single session through
// EmailEntry -> Questioning -> Result, with Blocked reachable from every step.
// It mutates the session it is handed and never touches the store directly.
type Controller struct {
	gateway Gateway
	domain  string
	now     func() time.Time
	log     logger.Logger
}

func NewController(gateway Gateway, allowedDomain string, log logger.Logger) *Controller {
	return NewControllerWithClock(gateway, allowedDomain, log, time.Now)
}

// NewControllerWithClock is used by tests for deterministic timestamps.
func NewControllerWithClock(gateway Gateway, allowedDomain string, log logger.Logger, now func() time.Time) *Controller {
	if log == nil {
		log = logger.Get()
	}
	return &Controller{
		gateway: gateway,
		domain:  domain.NormalizeDomain(allowedDomain),
		now:     now,
		log:     log.Named("flow"),
	}
}

// AllowedDomain returns the normalized domain suffix the flow accepts.
func (c *Controller) AllowedDomain() string {
	return c.domain
}

// SubmitEmail validates the email and runs the first duplicate gate.
func (c *Controller) SubmitEmail(ctx context.Context, s *domain.QuizSession, raw string) error {
	if err := c.expect(s, domain.StepEmailEntry); err != nil {
		return err
	}
	defer c.touch(s)

	email := domain.NormalizeEmail(raw)
	s.Message = ""
	if err := domain.ValidateSyntax(email); err != nil {
		s.Message = MessageInvalidFormat
		c.log.Debug(ctx, "email rejected", logger.String("session", s.ID), logger.Error(err))
		return err
	}
	if !domain.HasAllowedDomain(email, c.domain) {
		s.Message = fmt.Sprintf(MessageWrongDomain, c.domain)
		c.log.Debug(ctx, "email rejected", logger.String("session", s.ID), logger.String("email", email))
		return domain.ErrWrongDomain
	}

	s.Email = email
	if c.gateway.ExistsSimilar(ctx, email) {
		c.block(ctx, s, "email_entry")
		return domain.ErrDuplicateEmail
	}

	s.Step = domain.StepQuestioning
	s.CurrentQuestionIndex = 0
	s.CollectedAnswers = nil
	c.log.Info(ctx, "quiz started", logger.String("session", s.ID), logger.String("email", email))
	return nil
}

// Answer records one Likert answer. The final answer computes the result and
// persists it; a failed save only sets the session's SaveError.
func (c *Controller) Answer(ctx context.Context, s *domain.QuizSession, content domain.QuizContent, value int) error {
	if err := c.expect(s, domain.StepQuestioning); err != nil {
		return err
	}
	defer c.touch(s)

	if value < domain.MinAnswer || value > domain.MaxAnswer {
		s.Message = MessageInvalidAnswer
		return fmt.Errorf("%w: %d", domain.ErrInvalidAnswer, value)
	}
	if !domain.HasAllowedDomain(s.Email, c.domain) {
		s.Message = fmt.Sprintf(MessageWrongDomain, c.domain)
		return domain.ErrWrongDomain
	}
	if c.gateway.ExistsSimilar(ctx, s.Email) {
		c.block(ctx, s, "answer")
		return domain.ErrDuplicateEmail
	}

	s.Message = ""
	s.CollectedAnswers = append(s.CollectedAnswers, value)
	if len(s.CollectedAnswers) < domain.QuestionCount {
		s.CurrentQuestionIndex++
		return nil
	}
	return c.finish(ctx, s, content)
}

func (c *Controller) finish(ctx context.Context, s *domain.QuizSession, content domain.QuizContent) error {
	score := domain.Score(s.CollectedAnswers)
	personality := content.Classify(score)
	s.Score = score
	s.Result = personality.Label
	s.Step = domain.StepResult
	metrics.RecordResult(personality.Label)
	c.log.Info(ctx, "quiz completed",
		logger.String("session", s.ID),
		logger.Int("score", score),
		logger.String("result", personality.Label))

	if c.gateway.ExistsSimilar(ctx, s.Email) {
		c.block(ctx, s, "save")
		return domain.ErrDuplicateEmail
	}

	saved := c.gateway.Save(ctx, domain.QuizResponse{
		Email:   s.Email,
		Answers: append([]int(nil), s.CollectedAnswers...),
		Score:   score,
		Result:  personality.Label,
	})
	if !saved {
		s.SaveError = MessageSaveFailed
		return nil
	}
	s.Saved = true
	return nil
}

// Reset returns a blocked session to email entry with a cleared form.
func (c *Controller) Reset(ctx context.Context, s *domain.QuizSession) error {
	if s.Step != domain.StepBlocked && s.Step != domain.StepEmailEntry {
		return fmt.Errorf("%w: reset from %s", domain.ErrInvalidStep, s.Step)
	}
	defer c.touch(s)

	s.Step = domain.StepEmailEntry
	s.Email = ""
	s.CurrentQuestionIndex = 0
	s.CollectedAnswers = nil
	s.HasAlreadyResponded = false
	s.Score = 0
	s.Result = ""
	s.Message = ""
	s.SaveError = ""
	s.Saved = false
	c.log.Debug(ctx, "session reset", logger.String("session", s.ID))
	return nil
}

func (c *Controller) block(ctx context.Context, s *domain.QuizSession, gate string) {
	s.Step = domain.StepBlocked
	s.HasAlreadyResponded = true
	s.Message = MessageDuplicate
	metrics.RecordSessionBlocked()
	c.log.Info(ctx, "session blocked",
		logger.String("session", s.ID),
		logger.String("email", s.Email),
		logger.String("gate", gate))
}

func (c *Controller) expect(s *domain.QuizSession, step domain.Step) error {
	if s.Step == domain.StepBlocked {
		return domain.ErrSessionBlocked
	}
	if s.Step != step {
		return fmt.Errorf("%w: expected %s, session is %s", domain.ErrInvalidStep, step, s.Step)
	}
	return nil
}

func (c *Controller) touch(s *domain.QuizSession) {
	s.UpdatedAt = c.now()
}
