package providers

import (
	"context"
	"time"
)

// Request contains the prompt sent to a generation backend.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response contains the raw text returned by a generation backend.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// Generator is the backend abstraction: one capability, a small closed set
// of variants.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Settings configures the provider set. The Order list is the fixed fallback
// priority; a provider is eligible only when its readiness predicate passes.
type Settings struct {
	Order []string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OllamaURL       string
	OllamaModel     string

	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration

	// Serialized funnels concurrent generation calls through one slot, for
	// providers whose rate limits cannot absorb parallel requests.
	Serialized bool
}

const (
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = time.Second
	defaultMaxTokens   = 8000
)

func (s *Settings) normalize() {
	if len(s.Order) == 0 {
		s.Order = []string{"anthropic", "openai", "ollama"}
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = defaultMaxRetries
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = defaultBackoffBase
	}
}
