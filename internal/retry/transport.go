// Package retry provides an http.RoundTripper that retries failed requests.
package retry

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

type Transport struct {
	Base    http.RoundTripper
	Backoff Backoff
	Policy  *Policy
}

// RoundTrip retries while the policy matches and the backoff allows it.
// Requests with a body are only retried when GetBody is set, which
// http.NewRequest does for in-memory bodies.
func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	for attempt := uint(0); ; attempt++ {
		response, err := t.base().RoundTrip(request)
		if !t.shouldRetry(response, err) {
			return response, err
		}

		delay, ok := t.backoff().Delay(attempt)
		if !ok || (request.Body != nil && request.Body != http.NoBody && request.GetBody == nil) {
			return response, err
		}
		if response != nil {
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-request.Context().Done():
			timer.Stop()
			return nil, request.Context().Err()
		case <-timer.C:
		}

		if request.GetBody != nil {
			body, err := request.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			request = request.Clone(request.Context())
			request.Body = body
		}
	}
}

func (t *Transport) shouldRetry(response *http.Response, err error) bool {
	if t.Policy == nil {
		return false
	}
	if err != nil {
		return t.Policy.RetryError(err)
	}
	return t.Policy.RetryStatus(response.StatusCode)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backoff() Backoff {
	if t.Backoff != nil {
		return t.Backoff
	}
	return NoRetry()
}
