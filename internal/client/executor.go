package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ulsys/uls/internal/logging"
)

// Execute performs one logical API call as a bounded sequence of attempts.
//
// Per attempt: a cancellable timer of the configured timeout is started, the
// network call is issued with merged headers and the cancellation signal, and
// the timer is released as soon as a response arrives. The body is parsed by
// declared content type into a Payload; an HTTP failure status becomes an
// *APIError.
//
// Termination: a timeout or a client error (status 400-499) or a parse
// failure ends the call immediately. Server errors (status >= 500) and
// responseless network failures are retried with linear backoff
// retryDelay*(attempt+1), attempts running from 0 to maxRetries inclusive.
// The last error is surfaced when all attempts are exhausted.
func (c *Client) Execute(ctx context.Context, path string, opts CallOptions) (*Payload, error) {
	if path == "" {
		return nil, fmt.Errorf("client: empty request path")
	}
	cfg := c.resolve(opts)
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		payload, err := c.attempt(ctx, url, opts, cfg)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == cfg.maxRetries {
			break
		}

		delay := cfg.retryDelay * time.Duration(attempt+1)
		c.logger.Warn("retrying request",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "attempt", Value: attempt + 1},
			logging.Field{Key: "delay", Value: delay.String()},
			logging.Field{Key: "error", Value: err.Error()})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// attempt performs a single network round-trip.
func (c *Client) attempt(ctx context.Context, url string, opts CallOptions, cfg callConfig) (*Payload, error) {
	actx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(opts.Body) > 0 {
		bodyReader = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(actx, cfg.method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if len(opts.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if !opts.NoCredentials && c.creds != nil {
		key, err := c.creds.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		// Always wins over a caller-supplied value.
		req.Header.Set(HeaderAPIKey, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Timeout: cfg.timeout, URL: url}
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Timeout: cfg.timeout, URL: url}
		}
		return nil, &NetworkError{URL: url, Err: err}
	}

	payload, err := parsePayload(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, payload, url)
	}
	return payload, nil
}
