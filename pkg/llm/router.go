package llm

import (
	"context"
	"fmt"
)

// MultiProvider combines multiple providers with fallback: the Generation
// Pipeline calls through a single Provider, and MultiProvider tries its
// primary first before walking the rest in order, so a provider outage
// (Anthropic down, Ollama unreachable) degrades generation instead of
// failing it outright.
type MultiProvider struct {
	providers []Provider
	primary   int
}

// NewMultiProvider creates a provider with fallback support. The first
// provider given is primary.
func NewMultiProvider(providers ...Provider) *MultiProvider {
	return &MultiProvider{
		providers: providers,
		primary:   0,
	}
}

// SetPrimary sets the primary provider index.
func (mp *MultiProvider) SetPrimary(index int) error {
	if index < 0 || index >= len(mp.providers) {
		return fmt.Errorf("invalid provider index: %d", index)
	}
	mp.primary = index
	return nil
}

// Name returns the provider name.
func (mp *MultiProvider) Name() string {
	if len(mp.providers) == 0 {
		return "multi:empty"
	}
	return "multi:" + mp.providers[mp.primary].Name()
}

// Models returns all available models across providers.
func (mp *MultiProvider) Models() []string {
	seen := make(map[string]bool)
	var models []string
	for _, p := range mp.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				models = append(models, m)
			}
		}
	}
	return models
}

// Complete tries providers in order until one succeeds. An auth error from
// the primary is not retried against fallbacks, since a bad API key will
// fail identically on every provider that uses the same credential shape.
func (mp *MultiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if len(mp.providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	var lastErr error

	// Try primary first
	if resp, err := mp.providers[mp.primary].Complete(ctx, req); err == nil {
		return resp, nil
	} else {
		lastErr = err
		// Don't fallback on auth errors
		if IsAuthError(err) {
			return nil, err
		}
	}

	// Try fallbacks
	for i, p := range mp.providers {
		if i == mp.primary {
			continue
		}
		if resp, err := p.Complete(ctx, req); err == nil {
			return resp, nil
		} else {
			lastErr = err
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Stream tries providers in order until one succeeds, same fallback rule
// as Complete.
func (mp *MultiProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	if len(mp.providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	var lastErr error

	if ch, err := mp.providers[mp.primary].Stream(ctx, req); err == nil {
		return ch, nil
	} else {
		lastErr = err
		if IsAuthError(err) {
			return nil, err
		}
	}

	for i, p := range mp.providers {
		if i == mp.primary {
			continue
		}
		if ch, err := p.Stream(ctx, req); err == nil {
			return ch, nil
		} else {
			lastErr = err
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// CountTokens uses the primary provider.
func (mp *MultiProvider) CountTokens(content string) (int, error) {
	if len(mp.providers) == 0 {
		return 0, fmt.Errorf("no providers configured")
	}
	return mp.providers[mp.primary].CountTokens(content)
}
