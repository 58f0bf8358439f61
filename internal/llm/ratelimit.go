package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a requests-per-second cap.
// Calls block until the limiter grants a slot or the context is done.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps the provider with a limiter allowing requestsPerSecond
// sustained calls with a burst of one
func NewRateLimited(inner Provider, requestsPerSecond float64) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Name returns the wrapped provider's name
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

// Generate waits for a limiter slot, then delegates to the wrapped provider
func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Generate(ctx, prompt)
}

// GenerateObject waits for a limiter slot, then delegates to the wrapped provider
func (p *RateLimitedProvider) GenerateObject(ctx context.Context, prompt string, schema Schema) (map[string]any, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.GenerateObject(ctx, prompt, schema)
}
