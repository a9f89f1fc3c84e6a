package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// respondError maps service errors onto HTTP statuses. One mapping for all
// handlers so the same failure always looks the same on the wire.
func respondError(c *gin.Context, log *logger.Logger, err error, context string) {
	status := http.StatusInternalServerError
	message := context

	switch {
	case errors.Is(err, repository.ErrInvalidData):
		status = http.StatusBadRequest
		message = "Invalid request data"
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found"
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		status = http.StatusBadRequest
		message = "Payment is not completed"
	case errors.Is(err, domain.ErrGatewayRejected):
		status = http.StatusPaymentRequired
		message = "Payment gateway rejected the request"
		// Card declines carry the gateway's own explanation; pass it on
		if detail := gatewayDetail(err); detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
	case errors.Is(err, domain.ErrGatewayTransient), errors.Is(err, repository.ErrUnavailable):
		status = http.StatusServiceUnavailable
		message = "Service temporarily unavailable, retry later"
	case errors.Is(err, domain.ErrGatewayConfig):
		status = http.StatusInternalServerError
		message = "Payment gateway misconfigured"
	}

	if status >= 500 {
		log.Error("%s: %v", context, err)
	} else {
		log.Warn("%s: %v", context, err)
	}
	c.JSON(status, gin.H{"error": message})
}

// gatewayDetail returns the gateway's own message from a rejection error, or
// empty when the error carries nothing beyond the sentinel.
func gatewayDetail(err error) string {
	detail, ok := strings.CutPrefix(err.Error(), domain.ErrGatewayRejected.Error()+": ")
	if !ok {
		return ""
	}
	return detail
}

// bindingErrorDetails extracts per-field messages from a binding failure so
// the client learns which field was wrong, not just that one was.
func bindingErrorDetails(err error) []string {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return nil
	}
	details := make([]string, 0, len(verr))
	for _, fe := range verr {
		details = append(details, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return details
}
