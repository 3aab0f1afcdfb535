package http

import (
	"beer-quiz-service/internal/domain"
)

type questionView struct {
	Index int                  `json:"index"`
	Total int                  `json:"total"`
	Text  string               `json:"text"`
	Scale []domain.ScaleOption `json:"scale"`
}

type resultView struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Asset       string `json:"asset,omitempty"`
	Score       int    `json:"score"`
	MaxScore    int    `json:"maxScore"`
}

// sessionView is what clients render: the current question while
// questioning, the personality once a result exists.
type sessionView struct {
	ID                  string        `json:"id"`
	Step                domain.Step   `json:"step"`
	AllowedDomain       string        `json:"allowedDomain"`
	Email               string        `json:"email,omitempty"`
	Answers             []int         `json:"answers"`
	Question            *questionView `json:"question,omitempty"`
	HasAlreadyResponded bool          `json:"hasAlreadyResponded"`
	Message             string        `json:"message,omitempty"`
	Result              *resultView   `json:"result,omitempty"`
	Saved               bool          `json:"saved"`
	SaveError           string        `json:"saveError,omitempty"`
}

func newSessionView(s domain.QuizSession, content domain.QuizContent, allowedDomain string) sessionView {
	v := sessionView{
		ID:                  s.ID,
		Step:                s.Step,
		AllowedDomain:       allowedDomain,
		Email:               s.Email,
		Answers:             append([]int{}, s.CollectedAnswers...),
		HasAlreadyResponded: s.HasAlreadyResponded,
		Message:             s.Message,
		Saved:               s.Saved,
		SaveError:           s.SaveError,
	}
	switch s.Step {
	case domain.StepQuestioning:
		if s.CurrentQuestionIndex < len(content.Questions) {
			v.Question = &questionView{
				Index: s.CurrentQuestionIndex,
				Total: len(content.Questions),
				Text:  content.Questions[s.CurrentQuestionIndex],
				Scale: content.Scale,
			}
		}
	case domain.StepResult:
		p := content.Classify(s.Score)
		v.Result = &resultView{
			Label:       s.Result,
			Description: p.Description,
			Emoji:       p.Emoji,
			Asset:       p.Asset,
			Score:       s.Score,
			MaxScore:    content.MaxScore(),
		}
	}
	return v
}
