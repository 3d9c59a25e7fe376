package providers

import (
	"net/http"

	"github.com/archon-ai/orchestrator/internal/orcherr"
)

// MapHTTPError classifies an upstream AI provider's HTTP response into the
// orchestrator's unified error type: authentication and malformed-request
// responses are not retryable, rate limiting and upstream outages are.
func MapHTTPError(status int, msg, provider string) *orcherr.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return orcherr.New(orcherr.ValidationError, msg).
			WithHTTPStatus(status).WithRetryable(false).WithProvider(provider)
	case http.StatusTooManyRequests:
		return orcherr.New(orcherr.TransientError, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	case http.StatusBadRequest:
		return orcherr.New(orcherr.ValidationError, msg).
			WithHTTPStatus(status).WithRetryable(false).WithProvider(provider)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, 529:
		return orcherr.New(orcherr.ProviderUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	default:
		return orcherr.New(orcherr.ExecutionError, msg).
			WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(provider)
	}
}
