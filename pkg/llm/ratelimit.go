package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider holds every call until the token bucket admits it.
type RateLimitedProvider struct {
	next    LLMProvider
	limiter *rate.Limiter
}

var _ LLMProvider = &RateLimitedProvider{}

func NewRateLimitedProvider(next LLMProvider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (p *RateLimitedProvider) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %v: %w", err, ErrTimeout)
	}
	return nil
}

func (p *RateLimitedProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return p.next.Chat(ctx, history, options...)
}

func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return p.next.Generate(ctx, prompt, options...)
}
