package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrQuotaExceeded = errors.New("completion quota exceeded")
	ErrTimeout       = errors.New("completion timed out")
	ErrUnavailable   = errors.New("completion service unavailable")
)

// StatusError maps a non-200 provider response to the shared error taxonomy.
func StatusError(provider string, status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return fmt.Errorf("%s: status %d: %w", provider, status, ErrQuotaExceeded)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: status %d: %w", provider, status, ErrTimeout)
	case status >= 500:
		return fmt.Errorf("%s: status %d, body: %s: %w", provider, status, truncate(body), ErrUnavailable)
	default:
		return fmt.Errorf("%s error: status %d, body: %s", provider, status, truncate(body))
	}
}

// TransportError classifies a failed round trip.
func TransportError(provider string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s request failed: %v: %w", provider, err, ErrTimeout)
	}
	return fmt.Errorf("%s request failed: %v: %w", provider, err, ErrUnavailable)
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
