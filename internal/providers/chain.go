package providers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status describes one configured provider's readiness.
type Status struct {
	Name   string
	Ready  bool
	Detail string
}

// Probe evaluates the readiness predicate of every provider in the
// configured priority order without performing any generation.
func Probe(ctx context.Context, s Settings) []Status {
	s.normalize()
	statuses := make([]Status, 0, len(s.Order))
	for _, name := range s.Order {
		statuses = append(statuses, probeOne(ctx, name, s))
	}
	return statuses
}

func probeOne(ctx context.Context, name string, s Settings) Status {
	switch name {
	case "anthropic":
		if s.AnthropicAPIKey == "" {
			return Status{Name: name, Detail: "no API key configured"}
		}
		return Status{Name: name, Ready: true, Detail: "API key configured"}
	case "openai":
		if s.OpenAIAPIKey == "" {
			return Status{Name: name, Detail: "no API key configured"}
		}
		return Status{Name: name, Ready: true, Detail: "API key configured"}
	case "ollama":
		o := NewOllama(s.OllamaURL, s.OllamaModel, s.Timeout)
		if !o.Reachable(ctx) {
			return Status{Name: name, Detail: "server not reachable at " + o.baseURL}
		}
		return Status{Name: name, Ready: true, Detail: "server reachable"}
	default:
		return Status{Name: name, Detail: "unknown provider"}
	}
}

func newGenerator(name string, s Settings) (Generator, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(s.AnthropicAPIKey, s.AnthropicModel, s.Timeout), nil
	case "openai":
		return NewOpenAI(s.OpenAIAPIKey, s.OpenAIModel, s.Timeout), nil
	case "ollama":
		return NewOllama(s.OllamaURL, s.OllamaModel, s.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// Chain tries providers in the configured priority order. The first eligible
// provider serves the whole run: every artifact in one run comes from the
// same backend unless that backend fails. A provider that fails with an auth
// error, or exhausts its retry budget, is dead for the remainder of the run.
type Chain struct {
	gens        []Generator
	maxRetries  int
	backoffBase time.Duration

	mu      sync.Mutex
	current int
	dead    []bool

	serial chan struct{}
}

// NewChain scans the priority order, keeping only eligible providers, and
// fails with ErrNoProvider when none qualify. The scan happens here, before
// any generation is attempted.
func NewChain(ctx context.Context, s Settings) (*Chain, error) {
	s.normalize()

	var gens []Generator
	for _, st := range Probe(ctx, s) {
		if !st.Ready {
			continue
		}
		gen, err := newGenerator(st.Name, s)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	if len(gens) == 0 {
		return nil, ErrNoProvider
	}

	c := &Chain{
		gens:        gens,
		maxRetries:  s.MaxRetries,
		backoffBase: s.BackoffBase,
		dead:        make([]bool, len(gens)),
	}
	if s.Serialized {
		c.serial = make(chan struct{}, 1)
	}
	return c, nil
}

// NewChainFromGenerators builds a chain over pre-constructed generators.
// Used by the pipeline tests and by callers that manage eligibility
// themselves.
func NewChainFromGenerators(gens []Generator, maxRetries int, backoffBase time.Duration) (*Chain, error) {
	if len(gens) == 0 {
		return nil, ErrNoProvider
	}
	return &Chain{
		gens:        gens,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		dead:        make([]bool, len(gens)),
	}, nil
}

// Provider returns the name of the provider the chain currently points at.
func (c *Chain) Provider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.current; i < len(c.gens); i++ {
		if !c.dead[i] {
			return c.gens[i].Name()
		}
	}
	return ""
}

// Generate runs the request against the current provider, retrying transient
// failures with exponential backoff and falling through to the next eligible
// provider on permanent ones. Each fallback restarts from the caller's fresh
// request; there is no partial retry.
func (c *Chain) Generate(ctx context.Context, req Request) (Response, error) {
	if c.serial != nil {
		select {
		case c.serial <- struct{}{}:
			defer func() { <-c.serial }()
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	var lastErr error
	for {
		gen, idx, ok := c.pick()
		if !ok {
			if lastErr == nil {
				lastErr = ErrNoProvider
			}
			return Response{}, &ExhaustedError{Last: lastErr}
		}

		resp, err := c.generateWithRetry(ctx, gen, req)
		if err == nil {
			c.commit(idx)
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, err
		}

		lastErr = err
		c.bury(idx)
	}
}

// pick returns the first live provider at or after the sticky cursor.
func (c *Chain) pick() (Generator, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.current; i < len(c.gens); i++ {
		if !c.dead[i] {
			return c.gens[i], i, true
		}
	}
	return nil, 0, false
}

// commit pins the cursor to a provider that succeeded, so subsequent calls in
// the same run use the same backend.
func (c *Chain) commit(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx > c.current {
		c.current = idx
	}
}

// bury marks a provider permanently ineligible for this run.
func (c *Chain) bury(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead[idx] = true
}

func (c *Chain) generateWithRetry(ctx context.Context, gen Generator, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := gen.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Auth and malformed-response failures go straight to fallback.
		if !retryable(err) {
			return Response{}, err
		}
		if attempt < c.maxRetries {
			backoff := c.backoffBase << uint(attempt)
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return Response{}, lastErr
}
