// Package client is the Go SDK for the Universal Logging System API. Its
// core is a resilient request executor: every logical call is turned into
// one or more network attempts bounded by a per-attempt timeout, with
// failures classified into retryable and terminal kinds.
package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/ulsys/uls/internal/logging"
)

// HeaderAPIKey is the authentication header required on every
// authenticated call.
const HeaderAPIKey = "X-API-KEY"

// Defaults for the per-call execution configuration.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetryDelay = 1 * time.Second
)

// Config configures a Client. Zero-valued fields fall back to defaults.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:5000".
	BaseURL string

	// Credentials supplies the API key attached to authenticated calls.
	// May be nil, in which case no key is sent.
	Credentials CredentialSource

	// HTTPClient overrides the transport. The client never sets a
	// http.Client-level timeout; attempts are bounded per call instead.
	HTTPClient *http.Client

	Logger logging.Logger

	// Timeout bounds each individual attempt. Default 30s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// retryable failures. Default 0 (single attempt).
	MaxRetries int

	// RetryDelay is the base backoff; attempt n waits RetryDelay*(n+1)
	// before the next attempt. Default 1s.
	RetryDelay time.Duration
}

// Client issues logical API calls against a single backend.
type Client struct {
	baseURL string
	creds   CredentialSource
	http    *http.Client
	logger  logging.Logger
	cfg     Config
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Client")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   cfg.Credentials,
		http:    httpClient,
		logger:  logger,
		cfg:     cfg,
	}
}

// CallOptions override the client defaults for a single logical call.
// Unset fields inherit from Config.
type CallOptions struct {
	// Method defaults to GET.
	Method string

	// Body is the serialized request payload, forwarded as-is.
	Body []byte

	// Headers merge with the injected ones. The API-key header is always
	// forcibly set (unless NoCredentials); Content-Type defaults to
	// application/json only when a body is present and the caller has not
	// supplied one.
	Headers map[string]string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// NoCredentials skips API-key injection for this call (used by the
	// key-generation endpoint, which is unauthenticated).
	NoCredentials bool
}

// callConfig is the resolved, immutable execution configuration for one
// logical call.
type callConfig struct {
	method     string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

func (c *Client) resolve(opts CallOptions) callConfig {
	cfg := callConfig{
		method:     opts.Method,
		timeout:    opts.Timeout,
		maxRetries: c.cfg.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
	if cfg.method == "" {
		cfg.method = http.MethodGet
	}
	if cfg.timeout <= 0 {
		cfg.timeout = c.cfg.Timeout
	}
	if opts.MaxRetries > 0 {
		cfg.maxRetries = opts.MaxRetries
	}
	if cfg.retryDelay <= 0 {
		cfg.retryDelay = c.cfg.RetryDelay
	}
	return cfg
}
