package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited 按每分钟请求数限制调用频率
type RateLimited struct {
	next    Invoker
	limiter *rate.Limiter
}

// WithRateLimit wraps next so that at most perMinute calls start per minute.
// A non-positive limit returns next unchanged.
func WithRateLimit(next Invoker, perMinute int) Invoker {
	if perMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

// Name returns the wrapped provider name.
func (r *RateLimited) Name() string {
	return r.next.Name()
}

// Invoke waits for a token, then delegates.
func (r *RateLimited) Invoke(ctx context.Context, prompt Prompt, contextBlock string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", Classify(r.next.Name(), err)
	}
	return r.next.Invoke(ctx, prompt, contextBlock)
}
