// internal/llmclient/ratelimit.go
package llmclient

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webpilot/api/schemas"
)

// RateLimited paces requests to the wrapped client. It only delays; it never
// retries a failed request.
type RateLimited struct {
	next    schemas.ModelClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.ModelClient = (*RateLimited)(nil)

// NewRateLimited allows perMinute requests per minute with a burst of one.
func NewRateLimited(next schemas.ModelClient, perMinute float64, logger *zap.Logger) *RateLimited {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), 1),
		logger:  logger.Named("llm_ratelimit"),
	}
}

// Complete waits for a request slot, then delegates. A context that ends
// while waiting is reported as a transport failure.
func (r *RateLimited) Complete(ctx context.Context, req schemas.ModelRequest) (*schemas.ModelResponse, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, transportErr("ratelimit", 0, err, "waiting for a request slot: %v", err)
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		r.logger.Debug("Model request delayed by rate limit.", zap.Duration("waited", waited))
	}
	return r.next.Complete(ctx, req)
}
