package client_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ulsys/uls/internal/client"
	"github.com/ulsys/uls/internal/testutil"
)

func newTestClient(t *testing.T, tr *testutil.ScriptedTransport, cfg client.Config) *client.Client {
	t.Helper()

	cfg.BaseURL = "http://uls.test"
	cfg.HTTPClient = &http.Client{Transport: tr}
	cfg.Logger = &testutil.DummyLogger{}
	if cfg.Credentials == nil {
		cfg.Credentials = client.StaticCredential("uls_testkey")
	}
	return client.New(cfg)
}

// ─── Attempt counting ──────────────────────────────────────────────────

func TestExecute_NoRetriesMakesOneAttempt(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 500, ContentType: "application/json", Body: `{"error":"boom"}`},
	}}
	c := newTestClient(t, tr, client.Config{RetryDelay: time.Millisecond})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if got := tr.Calls(); got != 1 {
		t.Errorf("expected exactly 1 attempt with MaxRetries=0, got %d", got)
	}
}

func TestExecute_RetriesServerErrorsThenSucceeds(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 500, ContentType: "application/json", Body: `{"error":"boom"}`},
		{Status: 502, ContentType: "application/json", Body: `{"error":"bad gateway"}`},
		{Status: 200, ContentType: "application/json", Body: `{"status":"success"}`},
	}}
	retryDelay := 20 * time.Millisecond
	c := newTestClient(t, tr, client.Config{MaxRetries: 2, RetryDelay: retryDelay})

	start := time.Now()
	p, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := tr.Calls(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if string(p.JSON) != `{"status":"success"}` {
		t.Errorf("unexpected payload: %s", p.JSON)
	}
	// Linear backoff: delay*1 after the first failure, delay*2 after the
	// second, 60ms total for retryDelay=20ms.
	if min := 3 * retryDelay; elapsed < min {
		t.Errorf("expected at least %v of backoff, took %v", min, elapsed)
	}
}

func TestExecute_ExhaustedRetriesSurfaceLastError(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 500, ContentType: "application/json", Body: `{"message":"first"}`},
		{Status: 503, ContentType: "application/json", Body: `{"message":"last"}`},
	}}
	c := newTestClient(t, tr, client.Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := tr.Calls(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != 503 || apiErr.Message != "last" {
		t.Errorf("expected the last error (503/last), got %d/%q", apiErr.StatusCode, apiErr.Message)
	}
}

func TestExecute_NetworkErrorsRetryLikeServerErrors(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Err: errors.New("connection refused")},
		{Status: 200, ContentType: "application/json", Body: `{"status":"success"}`},
	}}
	c := newTestClient(t, tr, client.Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	if _, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{}); err != nil {
		t.Fatalf("expected success after network-error retry, got %v", err)
	}
	if got := tr.Calls(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

// ─── Timeouts ──────────────────────────────────────────────────────────

func TestExecute_TimeoutIsTerminalAndNamesTheLimit(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 200, ContentType: "application/json", Body: "{}", Delay: 500 * time.Millisecond},
	}}
	c := newTestClient(t, tr, client.Config{
		Timeout:    40 * time.Millisecond,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "40ms") {
		t.Errorf("timeout message should name the configured limit, got %q", err.Error())
	}
	if got := tr.Calls(); got != 1 {
		t.Errorf("timeouts must not retry, got %d attempts", got)
	}
}

// ─── Client errors ─────────────────────────────────────────────────────

func TestExecute_NotFoundIsTerminal(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 404, ContentType: "application/json", Body: `{"message":"not found"}`},
	}}
	c := newTestClient(t, tr, client.Config{MaxRetries: 5, RetryDelay: time.Millisecond})

	_, err := c.Execute(context.Background(), "/api/logs/missing", client.CallOptions{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("expected status 404, got %d", apiErr.StatusCode)
	}
	if got := tr.Calls(); got != 1 {
		t.Errorf("client errors must not retry, got %d attempts", got)
	}
}

func TestExecute_ErrorMessageFromBodyMessageField(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 422, ContentType: "application/json", Body: `{"message":"bad input"}`},
	}}
	c := newTestClient(t, tr, client.Config{})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{Method: http.MethodPost, Body: []byte(`{}`)})
	if err == nil || err.Error() != "bad input" {
		t.Errorf("expected message 'bad input', got %v", err)
	}
}

func TestExecute_ErrorMessagePriority(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		step testutil.ScriptedResponse
		want string
	}{
		{
			name: "error field when no message",
			step: testutil.ScriptedResponse{Status: 400, ContentType: "application/json", Body: `{"error":"invalid payload"}`},
			want: "invalid payload",
		},
		{
			name: "raw body when no known fields",
			step: testutil.ScriptedResponse{Status: 400, ContentType: "application/json", Body: `{"detail":"nope"}`},
			want: `{"detail":"nope"}`,
		},
		{
			name: "status text when body empty",
			step: testutil.ScriptedResponse{Status: 400, ContentType: "application/json", Body: ""},
			want: "Bad Request",
		},
		{
			name: "synthesized code for unknown status",
			step: testutil.ScriptedResponse{Status: 599, ContentType: "application/json", Body: ""},
			want: "HTTP 599",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{tc.step}}
			c := newTestClient(t, tr, client.Config{})

			_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
			if err == nil || err.Error() != tc.want {
				t.Errorf("expected message %q, got %v", tc.want, err)
			}
		})
	}
}

// ─── Body parsing ──────────────────────────────────────────────────────

func TestExecute_CSVBodyRoundTrips(t *testing.T) {
	t.Parallel()
	csvBody := "timestamp,service,level,message,server,trace_id\n2024-01-01T00:00:00,auth,INFO,ok,Server-1,abc\n"
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 200, ContentType: "text/csv", Body: csvBody},
	}}
	c := newTestClient(t, tr, client.Config{})

	p, err := c.Execute(context.Background(), "/api/logs/export", client.CallOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p.Kind != client.PayloadText {
		t.Errorf("expected text payload for text/csv, got kind %d", p.Kind)
	}
	if string(p.Bytes()) != csvBody {
		t.Errorf("payload must round-trip byte-for-byte:\n got %q\nwant %q", p.Bytes(), csvBody)
	}
}

func TestExecute_BinaryAndAbsentBodies(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 200, ContentType: "application/octet-stream", Body: "\x00\x01\x02"},
		{Status: 200, ContentType: "application/octet-stream", Body: ""},
	}}
	c := newTestClient(t, tr, client.Config{})

	p, err := c.Execute(context.Background(), "/api/blob", client.CallOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p.Kind != client.PayloadBinary || string(p.Binary) != "\x00\x01\x02" {
		t.Errorf("unexpected binary payload: kind %d, %v", p.Kind, p.Binary)
	}

	p, err = c.Execute(context.Background(), "/api/blob", client.CallOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p.Kind != client.PayloadBinary || p.Binary != nil {
		t.Errorf("empty non-text body should be binary-or-absent with nil bytes, got %v", p.Binary)
	}
}

func TestExecute_MalformedJSONIsTerminalParseError(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 200, ContentType: "application/json", Body: `{not json`},
	}}
	c := newTestClient(t, tr, client.Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	var parseErr *client.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if got := tr.Calls(); got != 1 {
		t.Errorf("parse failures must not retry, got %d attempts", got)
	}
}

// ─── Header injection ──────────────────────────────────────────────────

func TestExecute_InjectsCredentialAndDefaultContentType(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{}
	c := newTestClient(t, tr, client.Config{Credentials: client.StaticCredential("uls_secret")})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{
		Method:  http.MethodPost,
		Body:    []byte(`{"message":"hi"}`),
		Headers: map[string]string{"X-API-KEY": "spoofed", "X-Custom": "kept"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	req := tr.Requests[0]
	if got := req.Header.Get("X-API-KEY"); got != "uls_secret" {
		t.Errorf("credential header must always win, got %q", got)
	}
	if got := req.Header.Get("X-Custom"); got != "kept" {
		t.Errorf("caller headers should be forwarded, got %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("expected default content type, got %q", got)
	}
}

func TestExecute_CallerContentTypeWins(t *testing.T) {
	t.Parallel()
	tr := &testutil.ScriptedTransport{}
	c := newTestClient(t, tr, client.Config{})

	_, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{
		Method:  http.MethodPost,
		Body:    []byte("a,b"),
		Headers: map[string]string{"Content-Type": "text/csv"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := tr.Requests[0].Header.Get("Content-Type"); got != "text/csv" {
		t.Errorf("caller content type must not be overridden, got %q", got)
	}
}

// ─── Idempotence ───────────────────────────────────────────────────────

func TestExecute_RepeatedReadsAreStructurallyEqual(t *testing.T) {
	t.Parallel()
	body := `{"status":"success","logs":[{"service":"auth","message":"ok"}],"count":1}`
	tr := &testutil.ScriptedTransport{Script: []testutil.ScriptedResponse{
		{Status: 200, ContentType: "application/json", Body: body},
		{Status: 200, ContentType: "application/json", Body: body},
	}}
	c := newTestClient(t, tr, client.Config{})

	first, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	second, err := c.Execute(context.Background(), "/api/logs", client.CallOptions{})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated reads of unchanged state should be equal:\n%+v\n%+v", first, second)
	}
}
