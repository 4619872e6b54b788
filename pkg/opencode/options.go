package opencode

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the address of a locally running opencode server.
	DefaultBaseURL = "http://localhost:54321"

	// DefaultTimeout bounds each request attempt.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2

	// BaseURLEnv overrides DefaultBaseURL when set.
	BaseURLEnv = "OPENCODE_BASE_URL"
)

// clientOptions holds the settings collected from Options before a Client is
// built.
type clientOptions struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	headers    http.Header
	query      url.Values
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client created with NewClient.
type Option func(*clientOptions)

// WithBaseURL sets the server address, taking precedence over OPENCODE_BASE_URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithMaxRetries sets the default number of retries after the first attempt.
func WithMaxRetries(maxRetries int) Option {
	return func(o *clientOptions) {
		o.maxRetries = maxRetries
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *clientOptions) {
		o.headers.Add(key, value)
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers http.Header) Option {
	return func(o *clientOptions) {
		for k, vs := range headers {
			for _, v := range vs {
				o.headers.Add(k, v)
			}
		}
	}
}

// WithQuery adds a query parameter sent with every request. Per-call query
// parameters with the same key replace it.
func WithQuery(key, value string) Option {
	return func(o *clientOptions) {
		o.query.Set(key, value)
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Timeout, if any,
// applies in addition to the per-attempt timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// requestConfig is the effective configuration of a single call.
type requestConfig struct {
	headers    http.Header
	query      url.Values
	timeout    time.Duration
	maxRetries int
	tee        io.Writer
}

// RequestOption overrides client defaults for a single call.
type RequestOption func(*requestConfig)

// WithRequestHeader sets a header for this call only. It wins over client
// defaults and the headers the client sets itself.
func WithRequestHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.headers.Set(key, value)
	}
}

// WithRequestQuery sets a query parameter for this call only.
func WithRequestQuery(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.query.Set(key, value)
	}
}

// WithRequestTimeout overrides the per-attempt timeout for this call.
func WithRequestTimeout(timeout time.Duration) RequestOption {
	return func(rc *requestConfig) {
		rc.timeout = timeout
	}
}

// WithRequestMaxRetries overrides the retry bound for this call.
func WithRequestMaxRetries(maxRetries int) RequestOption {
	return func(rc *requestConfig) {
		rc.maxRetries = maxRetries
	}
}

// WithStreamTee copies the raw bytes of an event stream response to w as they
// are read. It has no effect on non-streaming calls.
func WithStreamTee(w io.Writer) RequestOption {
	return func(rc *requestConfig) {
		rc.tee = w
	}
}
