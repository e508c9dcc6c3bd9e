package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

// RateLimitedProvider wraps a Provider so that calls stay under the daily
// quota attached to an API key.
type RateLimitedProvider struct {
	provider weather.Provider
	limiter  *rate.Limiter
	name     string
}

// NewRateLimitedProvider allows rps requests per second with the given burst.
// rps can be fractional for less than one request per second.
func NewRateLimitedProvider(provider weather.Provider, rps float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		name:     fmt.Sprintf("%s [rate limited]", provider.Name()),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.name
}

// Fetch waits for the limiter, then forwards to the wrapped provider.
func (r *RateLimitedProvider) Fetch(ctx context.Context, req weather.FetchRequest) ([]weather.Record, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, weather.TransportFailure(fmt.Errorf("rate limit wait canceled: %w", err))
	}
	return r.provider.Fetch(ctx, req)
}

var _ weather.Provider = (*RateLimitedProvider)(nil)
