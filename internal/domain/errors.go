package domain

import "errors"

var (
	// ErrPaymentNotCompleted the gateway does not report the payment as succeeded
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrGatewayTransient retryable gateway failure (rate limit, connection, 5xx)
	ErrGatewayTransient = errors.New("gateway temporarily unavailable")

	// ErrGatewayRejected the gateway rejected the request (declined card, bad input)
	ErrGatewayRejected = errors.New("gateway rejected the request")

	// ErrGatewayConfig authentication failure against the gateway, a deployment defect
	ErrGatewayConfig = errors.New("gateway configuration error")
)
