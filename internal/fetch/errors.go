package fetch

import (
	"errors"
	"fmt"
	"net"
)

// bodyPreviewLimit caps how much of an error body is kept for logging.
const bodyPreviewLimit = 200

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // truncated to bodyPreviewLimit bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// TransportError reports a failure before any response was received
// (DNS, connection refused, timeout).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Preview truncates s for log output.
func Preview(s string) string {
	if len(s) <= bodyPreviewLimit {
		return s
	}
	return s[:bodyPreviewLimit] + "..."
}
