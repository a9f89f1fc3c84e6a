package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v78"

	"github.com/pawmed/billing-service/internal/domain"
)

func TestClassifyAuthenticationFailure(t *testing.T) {
	err := classify(&stripe.Error{
		HTTPStatusCode: http.StatusUnauthorized,
		Type:           stripe.ErrorTypeInvalidRequest,
		Msg:            "Invalid API Key provided",
	})
	assert.ErrorIs(t, err, domain.ErrGatewayConfig)
}

func TestClassifyTransientFailures(t *testing.T) {
	cases := []*stripe.Error{
		{HTTPStatusCode: http.StatusTooManyRequests, Msg: "rate limited"},
		{HTTPStatusCode: http.StatusInternalServerError, Msg: "upstream broke"},
		{Type: stripe.ErrorTypeAPI, Msg: "api error"},
	}
	for _, stripeErr := range cases {
		err := classify(stripeErr)
		assert.ErrorIs(t, err, domain.ErrGatewayTransient, "status %d type %s", stripeErr.HTTPStatusCode, stripeErr.Type)
		assert.True(t, isTransient(stripeErr))
	}
}

func TestClassifyRejections(t *testing.T) {
	cases := []*stripe.Error{
		{HTTPStatusCode: http.StatusPaymentRequired, Type: stripe.ErrorTypeCard, Msg: "Your card was declined."},
		{HTTPStatusCode: http.StatusBadRequest, Type: stripe.ErrorTypeInvalidRequest, Msg: "No such payment_intent"},
	}
	for _, stripeErr := range cases {
		err := classify(stripeErr)
		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
		assert.Contains(t, err.Error(), stripeErr.Msg, "the gateway message must survive classification")
		assert.False(t, isTransient(stripeErr))
	}
}

func TestClassifyConnectionFailures(t *testing.T) {
	assert.ErrorIs(t, classify(context.DeadlineExceeded), domain.ErrGatewayTransient)
	assert.ErrorIs(t, classify(errors.New("connection refused")), domain.ErrGatewayTransient)
	assert.NoError(t, classify(nil))
}
