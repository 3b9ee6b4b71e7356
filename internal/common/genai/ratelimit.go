// internal/common/genai/ratelimit.go
package genai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// TextGenerator is the capability the limiter wraps.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RateLimited spaces calls to an underlying generator. Waiting honours ctx.
type RateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with a burst of one.
// rps <= 0 disables limiting.
func NewRateLimited(next TextGenerator, rps float64) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Every(time.Duration(float64(time.Second) / rps))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Generate waits for a slot, then calls the wrapped generator. A wait that
// cannot finish before the deadline reports context.DeadlineExceeded.
func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", err
	}
	return r.next.Generate(ctx, prompt)
}
