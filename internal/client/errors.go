package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx/3xx HTTP response surfaced as an error. Message is
// resolved, in priority order, from a "message" field in the response body,
// an "error" field, the raw body itself, the protocol status text, and
// finally a synthesized "HTTP <code>" string.
type APIError struct {
	Message    string
	StatusCode int
	StatusText string
	Body       *Payload
	URL        string
}

func (e *APIError) Error() string { return e.Message }

// TimeoutError reports an attempt cancelled by the per-attempt timer.
// Timeouts are never retried.
type TimeoutError struct {
	Timeout time.Duration
	URL     string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %dms", e.URL, e.Timeout.Milliseconds())
}

// NetworkError reports a transport-level failure with no HTTP response
// (connection refused, DNS failure, reset). Retried like a server error.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be decoded according to
// its declared content type. A parse failure indicates a contract violation,
// not a transient condition, so it is never retried.
type ParseError struct {
	ContentType string
	Err         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s response body: %v", e.ContentType, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// retryable reports whether a failed attempt may be followed by another.
// Only server errors (status >= 500) and responseless network failures
// qualify; timeouts, client errors and parse failures are terminal.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// newAPIError builds the error for an HTTP failure status, extracting the
// most specific message available from the parsed body.
func newAPIError(statusCode int, body *Payload, url string) *APIError {
	statusText := http.StatusText(statusCode)

	msg := ""
	if body != nil {
		switch body.Kind {
		case PayloadJSON:
			var m map[string]any
			if json.Unmarshal(body.JSON, &m) == nil {
				if s, ok := m["message"].(string); ok && s != "" {
					msg = s
				} else if s, ok := m["error"].(string); ok && s != "" {
					msg = s
				}
			}
			if msg == "" {
				if raw := strings.TrimSpace(string(body.JSON)); raw != "" && raw != "null" {
					msg = raw
				}
			}
		case PayloadText:
			msg = strings.TrimSpace(body.Text)
		}
	}
	if msg == "" {
		msg = statusText
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", statusCode)
	}

	return &APIError{
		Message:    msg,
		StatusCode: statusCode,
		StatusText: statusText,
		Body:       body,
		URL:        url,
	}
}
