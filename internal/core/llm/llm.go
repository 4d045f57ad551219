// Package llm answers generation requests for the built-in /llm/generate
// gateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steveyiyo/imavoice/internal/config"
)

var (
	ErrNotConfigured = errors.New("llm: no provider configured")
	ErrEmptyResponse = errors.New("llm: empty response")
)

type Request struct {
	Prompt            string
	SystemInstruction string
	GoogleSearch      bool
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Unconfigured rejects every request with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

// New returns the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLM, timeout time.Duration) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "", "none":
		return Unconfigured{}, nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
}
