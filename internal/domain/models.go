package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Step identifies where a quiz session is in the flow.
type Step string

const (
	StepEmailEntry  Step = "email_entry"
	StepQuestioning Step = "questioning"
	StepResult      Step = "result"
	StepBlocked     Step = "blocked"
)

// Likert scale bounds for a single answer.
const (
	MinAnswer = 1
	MaxAnswer = 4
)

// QuestionCount is the fixed length of every quiz and of every stored answer list.
const QuestionCount = 5

// Reachable score range for a complete quiz.
const (
	MinScore = QuestionCount * MinAnswer
	MaxScore = QuestionCount * MaxAnswer
)

// QuizResponse is the persisted outcome of a completed quiz.
type QuizResponse struct {
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email"`
	Answers   []int     `json:"answers"`
	Score     int       `json:"score"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the record invariants before it is written.
func (r QuizResponse) Validate() error {
	if len(r.Answers) != QuestionCount {
		return fmt.Errorf("%w: %d answers, want %d", ErrInvalidAnswer, len(r.Answers), QuestionCount)
	}
	for _, a := range r.Answers {
		if a < MinAnswer || a > MaxAnswer {
			return fmt.Errorf("%w: %d", ErrInvalidAnswer, a)
		}
	}
	if sum := Score(r.Answers); sum != r.Score {
		return fmt.Errorf("score %d does not match answers sum %d", r.Score, sum)
	}
	if r.Score < MinScore || r.Score > MaxScore {
		return fmt.Errorf("score %d outside [%d,%d]", r.Score, MinScore, MaxScore)
	}
	return nil
}

// StoredEmail is the projection returned by fuzzy email lookups.
type StoredEmail struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// QuizSession is the transient state of one user walking through the quiz.
type QuizSession struct {
	ID                   string    `json:"id"`
	Step                 Step      `json:"step"`
	Email                string    `json:"email"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	CollectedAnswers     []int     `json:"collectedAnswers"`
	HasAlreadyResponded  bool      `json:"hasAlreadyResponded"`
	Score                int       `json:"score"`
	Result               string    `json:"result,omitempty"`
	Message              string    `json:"message,omitempty"`
	SaveError            string    `json:"saveError,omitempty"`
	Saved                bool      `json:"saved"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// NewQuizSession returns a session positioned at email entry.
func NewQuizSession(id string, now time.Time) *QuizSession {
	return &QuizSession{
		ID:        id,
		Step:      StepEmailEntry,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share the answers slice.
func (s *QuizSession) Clone() *QuizSession {
	cp := *s
	if s.CollectedAnswers != nil {
		cp.CollectedAnswers = append([]int(nil), s.CollectedAnswers...)
	}
	return &cp
}

// Score sums the collected answers.
func Score(answers []int) int {
	total := 0
	for _, a := range answers {
		total += a
	}
	return total
}

// EncodeAnswers serializes answers the way they are stored.
func EncodeAnswers(answers []int) (string, error) {
	if answers == nil {
		answers = []int{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeAnswers parses the stored answers column.
func DecodeAnswers(raw string) ([]int, error) {
	var answers []int
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}
