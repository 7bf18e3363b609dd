package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/novelforge/novelforge/pkg/services"
)

// RetryPolicy configures the fallback-model retry (spec.md §4.3:
// "each call retries up to N times with a fallback model on the same
// family; temperature and seed are unchanged"). Grounded on the
// teacher's pkg/mcp/client.go jittered-backoff-then-retry shape.
type RetryPolicy struct {
	MaxRetries int
	// FallbackModel maps a primary model id to the model attempted on
	// retry (same family). A model absent from this map retries against
	// itself.
	FallbackModel map[string]string
	BackoffMin    time.Duration
	BackoffMax    time.Duration
}

// DefaultRetryPolicy matches spec.md's defaults: three attempts, a
// short jittered backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    2,
		FallbackModel: map[string]string{},
		BackoffMin:    200 * time.Millisecond,
		BackoffMax:    800 * time.Millisecond,
	}
}

func (p RetryPolicy) fallbackFor(modelName string) string {
	if fb, ok := p.FallbackModel[modelName]; ok {
		return fb
	}
	return modelName
}

// withRetry runs fn against primaryModel, then against its configured
// fallback, up to MaxRetries additional attempts, surfacing
// LLMFailureError after exhaustion (spec.md §4.3, §7).
func (g *Gateway) withRetry(ctx context.Context, primaryModel string, fn func(ctx context.Context, modelName string) error) error {
	modelName := primaryModel
	var lastErr error
	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		err := fn(ctx, modelName)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, services.ErrValidation) {
			// Not retryable: the model/family itself is invalid.
			return err
		}

		slog.Warn("llm call failed, retrying", "model", modelName, "attempt", attempt, "error", err)

		if attempt == g.policy.MaxRetries {
			break
		}

		backoff := g.policy.BackoffMin
		if span := g.policy.BackoffMax - g.policy.BackoffMin; span > 0 {
			backoff += time.Duration(rand.Int64N(int64(span)))
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		modelName = g.policy.fallbackFor(primaryModel)
	}
	return &services.LLMFailureError{Model: primaryModel, Last: lastErr}
}
