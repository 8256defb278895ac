// Package testutil provides shared test doubles for use across package
// tests. All dummies implement the corresponding interfaces from the
// production code, allowing injection into components under test without
// real I/O or side effects.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ulsys/uls/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── HTTP transport ────────────────────────────────────────────────────

// ScriptedResponse is one step of a ScriptedTransport script.
type ScriptedResponse struct {
	// Status is the HTTP status code; ignored when Err is set.
	Status int

	// ContentType sets the Content-Type header when non-empty.
	ContentType string

	// Body is the raw response body.
	Body string

	// Err makes the round-trip fail with a transport error.
	Err error

	// Delay pauses before responding; the request context can cancel it.
	Delay time.Duration
}

// ScriptedTransport is an http.RoundTripper replaying a fixed sequence of
// responses. Calls beyond the script return 200 with an empty JSON body.
// It records every request for later inspection.
type ScriptedTransport struct {
	Script []ScriptedResponse

	mu       sync.Mutex
	calls    int
	Requests []*http.Request
}

// Calls returns how many round-trips were made.
func (t *ScriptedTransport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	idx := t.calls
	t.calls++
	t.Requests = append(t.Requests, req.Clone(req.Context()))
	t.mu.Unlock()

	step := ScriptedResponse{Status: http.StatusOK, ContentType: "application/json", Body: "{}"}
	if idx < len(t.Script) {
		step = t.Script[idx]
	}

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}

	header := make(http.Header)
	if step.ContentType != "" {
		header.Set("Content-Type", step.ContentType)
	}
	return &http.Response{
		StatusCode: step.Status,
		Status:     fmt.Sprintf("%d %s", step.Status, http.StatusText(step.Status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(step.Body)),
		Request:    req,
	}, nil
}
