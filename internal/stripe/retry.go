package stripe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pawmed/billing-service/pkg/logger"
)

const maxRetryElapsed = 10 * time.Second

// withRetry runs op with exponential backoff on transient gateway errors.
// Non-transient errors abort immediately; the overall budget stays inside the
// per-call timeout so a hung gateway cannot pin a request.
func withRetry(ctx context.Context, log *logger.Logger, operation string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = maxRetryElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		log.Warnw("Transient gateway error, retrying", "operation", operation, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(policy, ctx))
}
