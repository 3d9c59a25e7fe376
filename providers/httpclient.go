package providers

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewHTTPClient builds the *http.Client every adapter issues its requests
// through. When limiter is non-nil, each outbound request waits on it
// first, giving every adapter a shared per-process cap on request rate to
// its upstream regardless of how many agents route through the same
// provider family.
func NewHTTPClient(timeout time.Duration, limiter *rate.Limiter) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if limiter != nil {
		transport = &rateLimitedTransport{limiter: limiter, next: transport}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// rateLimitedTransport gates outbound requests on a shared rate.Limiter
// before delegating to the wrapped RoundTripper.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
