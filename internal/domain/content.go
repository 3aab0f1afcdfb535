package domain

import (
	"fmt"
	"sort"
)

// ScaleOption is one point of the Likert scale shown for every question.
type ScaleOption struct {
	Value int    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Personality is a result tier. A score maps to the first tier whose MinScore it reaches.
type Personality struct {
	MinScore    int    `json:"minScore" yaml:"min_score"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
	Emoji       string `json:"emoji" yaml:"emoji"`
	Asset       string `json:"asset" yaml:"asset"`
}

// QuizContent holds the questions, scale and result tiers.
type QuizContent struct {
	Questions []string      `json:"questions" yaml:"questions"`
	Scale     []ScaleOption `json:"scale" yaml:"scale"`
	Results   []Personality `json:"results" yaml:"results"`
}

var defaultQuestions = []string{
	"Prefiero tomar decisiones rápidamente, sin mucha consulta.",
	"Disfruto asumir el control en situaciones desafiantes.",
	"No me molesta confrontar a otros si es necesario.",
	"Me siento cómodo liderando bajo presión.",
	"Busco constantemente mejorar y competir conmigo mismo.",
}

var defaultScale = []ScaleOption{
	{Value: 1, Label: "Definitivamente no!"},
	{Value: 2, Label: "Quizás un poco"},
	{Value: 3, Label: "Sí, me representa"},
	{Value: 4, Label: "Totalmente yo!"},
}

var defaultResults = []Personality{
	{
		MinScore:    17,
		Label:       "Red Ale Intensa",
		Description: "Directo, decidido, nada te detiene.",
		Emoji:       "🍺",
		Asset:       "https://media.giphy.com/media/3o7btZDbB1xfuYKQne/giphy.gif",
	},
	{
		MinScore:    13,
		Label:       "IPA Amarga",
		Description: "Valiente, resolutiva, independiente.",
		Emoji:       "🍻",
		Asset:       "https://media.giphy.com/media/YrMrSUfeh5do2FISt8/giphy.gif",
	},
	{
		MinScore:    9,
		Label:       "Cerveza artesanal suave",
		Description: "Actúas cuando se necesita, con mesura.",
		Emoji:       "🥂",
		Asset:       "https://media.giphy.com/media/3o7btQsLqXMJAPu6Na/giphy.gif",
	},
	{
		MinScore:    5,
		Label:       "Cerveza dorada ligera",
		Description: "Prefieres evitar conflictos, avanzas a tu ritmo.",
		Emoji:       "🍹",
		Asset:       "https://media.giphy.com/media/l2JJyLbhqCF4va86c/giphy.gif",
	},
}

// DefaultContent returns the built-in five-question quiz.
func DefaultContent() QuizContent {
	return QuizContent{Questions: defaultQuestions, Scale: defaultScale, Results: defaultResults}.Clone()
}

// Clone copies the content so callers may reorder it freely.
func (c QuizContent) Clone() QuizContent {
	return QuizContent{
		Questions: append([]string(nil), c.Questions...),
		Scale:     append([]ScaleOption(nil), c.Scale...),
		Results:   append([]Personality(nil), c.Results...),
	}
}

// Classify maps a score to its tier using the built-in thresholds.
func Classify(score int) Personality {
	return classify(defaultResults, score)
}

// Classify maps a score to a tier of this content.
func (c QuizContent) Classify(score int) Personality {
	return classify(c.Results, score)
}

// classify expects tiers sorted by MinScore descending; scores below every
// threshold fall into the lowest tier.
func classify(results []Personality, score int) Personality {
	for _, p := range results {
		if score >= p.MinScore {
			return p
		}
	}
	if len(results) == 0 {
		return Personality{}
	}
	return results[len(results)-1]
}

// MinScore is the lowest reachable score.
func (c QuizContent) MinScore() int { return len(c.Questions) * MinAnswer }

// MaxScore is the highest reachable score.
func (c QuizContent) MaxScore() int { return len(c.Questions) * MaxAnswer }

// Normalize sorts result tiers by threshold, highest first.
func (c *QuizContent) Normalize() {
	sort.SliceStable(c.Results, func(i, j int) bool {
		return c.Results[i].MinScore > c.Results[j].MinScore
	})
}

// Validate checks the content can drive a full quiz.
func (c QuizContent) Validate() error {
	if len(c.Questions) != QuestionCount {
		return fmt.Errorf("%w: %d questions, want %d", ErrInvalidContent, len(c.Questions), QuestionCount)
	}
	for i, q := range c.Questions {
		if q == "" {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidContent, i+1)
		}
	}
	if len(c.Scale) != MaxAnswer-MinAnswer+1 {
		return fmt.Errorf("%w: scale must have %d options", ErrInvalidContent, MaxAnswer-MinAnswer+1)
	}
	for i, opt := range c.Scale {
		if opt.Value != MinAnswer+i {
			return fmt.Errorf("%w: scale option %d has value %d", ErrInvalidContent, i, opt.Value)
		}
	}
	if len(c.Results) == 0 {
		return fmt.Errorf("%w: no results", ErrInvalidContent)
	}
	for i := 1; i < len(c.Results); i++ {
		if c.Results[i].MinScore >= c.Results[i-1].MinScore {
			return fmt.Errorf("%w: results must be ordered by min_score descending", ErrInvalidContent)
		}
	}
	if lowest := c.Results[len(c.Results)-1].MinScore; lowest > c.MinScore() {
		return fmt.Errorf("%w: score %d has no result", ErrInvalidContent, c.MinScore())
	}
	return nil
}
