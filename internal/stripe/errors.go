package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v78"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// classify maps a Stripe SDK error onto the service error taxonomy.
//
//	authentication failures  -> ErrGatewayConfig (deployment defect)
//	rate limit / 5xx / net   -> ErrGatewayTransient (retryable)
//	card declines, bad input -> ErrGatewayRejected (needs new input)
func classify(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", domain.ErrGatewayConfig, stripeErr.Msg)
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
			stripeErr.Type == stripe.ErrorTypeAPI:
			return fmt.Errorf("%w: %s", domain.ErrGatewayTransient, stripeErr.Msg)
		case stripeErr.Type == stripe.ErrorTypeCard,
			stripeErr.Type == stripe.ErrorTypeInvalidRequest:
			return fmt.Errorf("%w: %s", domain.ErrGatewayRejected, stripeErr.Msg)
		default:
			return fmt.Errorf("%w: %s", domain.ErrGatewayRejected, stripeErr.Msg)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrGatewayTransient, err)
	}

	// Anything non-Stripe at this point is a connection-level failure
	return fmt.Errorf("%w: %v", domain.ErrGatewayTransient, err)
}

// isTransient reports whether an error is worth retrying at the call site.
func isTransient(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.Type == stripe.ErrorTypeAPI
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false // the caller's budget is spent; let it decide
	}
	return true
}

// logStripeError logs the details of a Stripe failure.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusUnauthorized {
			// Operator-fatal: the deployed API key is wrong
			log.Errorw("Stripe authentication failed, check the configured API key",
				"operation", operation,
				"request_id", stripeErr.RequestID,
			)
			return
		}
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
