package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/genai"
)

const storyPrompt = `Generate a short forest-themed story suitable for dysgraphia students.
Use simple words, short sentences, and a clear structure.
Include 8-10 sentences.
Make it engaging and easy to write.
Return only the story text. Do not add any introductions, explanations, or comments.
`

// StoryService produces short writing-practice stories.
type StoryService struct {
	generator genai.Generator
	timeout   time.Duration
}

func NewStoryService(generator genai.Generator, timeout time.Duration) *StoryService {
	return &StoryService{generator: generator, timeout: timeout}
}

func (s *StoryService) Story(ctx context.Context) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.Generate(callCtx, storyPrompt)
	if err != nil {
		var ext *domain.ExternalServiceError
		if !errors.As(err, &ext) {
			err = &domain.ExternalServiceError{Err: err}
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &domain.ExternalServiceError{Err: errors.New("empty story returned")}
	}
	return text, nil
}
