package file

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"beer-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// ContentLoader reads quiz content from a YAML document on disk.
// The file is re-read on every load; callers cache it.
type ContentLoader struct {
	path string
}

func NewContentLoader(path string) *ContentLoader {
	return &ContentLoader{path: path}
}

func (l *ContentLoader) LoadContent(ctx context.Context) (domain.QuizContent, error) {
	if err := ctx.Err(); err != nil {
		return domain.QuizContent{}, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("read content %s: %w", l.path, err)
	}
	return Decode(data)
}

// Decode parses a YAML content document. Unknown keys are rejected.
func Decode(data []byte) (domain.QuizContent, error) {
	var content domain.QuizContent
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&content); err != nil {
		return domain.QuizContent{}, fmt.Errorf("%w: %v", domain.ErrInvalidContent, err)
	}
	return content, nil
}
