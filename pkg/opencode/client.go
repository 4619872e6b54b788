// Package opencode is a typed client for the opencode server HTTP API.
//
// Every call goes through a retrying request engine: transient failures
// (connection errors, timeouts, and 408, 409, 429 and 5xx responses) are
// retried with exponential backoff and jitter, honoring the server's
// retry-after-ms, retry-after, and x-should-retry hints. All failures are
// returned as *Error.
//
// The event feed at GET /event is exposed as a Stream that decodes
// Server-Sent Events lazily, one item per call to Next.
package opencode

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/utils"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	headerRetryCount  = "X-Retry-Count"

	mimeJSON        = "application/json"
	mimeEventStream = "text/event-stream"
)

// Client is an opencode API client. It is safe for concurrent use; its
// configuration is read-only after NewClient returns.
type Client struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	headers    http.Header
	query      url.Values
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. The base URL is resolved from WithBaseURL, then
// the OPENCODE_BASE_URL environment variable, then DefaultBaseURL.
func NewClient(opts ...Option) (*Client, error) {
	o := &clientOptions{
		baseURL:    os.Getenv(BaseURLEnv),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		headers:    http.Header{},
		query:      url.Values{},
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}

	for _, opt := range opts {
		opt(o)
	}

	baseURL, err := normalizeBaseURL(o.baseURL)
	if err != nil {
		return nil, err
	}

	if o.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", o.timeout)
	}

	if o.maxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", o.maxRetries)
	}

	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    o.timeout,
		maxRetries: o.maxRetries,
		headers:    o.headers,
		query:      o.query,
		httpClient: o.httpClient,
		logger:     o.logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", raw, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: scheme and host are required", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the default per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// MaxRetries returns the default number of retries after the first attempt.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// DefaultHeaders returns a copy of the headers sent with every request.
func (c *Client) DefaultHeaders() http.Header {
	return c.headers.Clone()
}

// DefaultQuery returns a copy of the query parameters sent with every request.
func (c *Client) DefaultQuery() url.Values {
	q := make(url.Values, len(c.query))
	for k, vs := range c.query {
		q[k] = append([]string(nil), vs...)
	}
	return q
}

// App returns the app service.
func (c *Client) App() *AppService {
	return &AppService{client: c}
}

// Config returns the config service.
func (c *Client) Config() *ConfigService {
	return &ConfigService{client: c}
}

// Event returns the event service.
func (c *Client) Event() *EventService {
	return &EventService{client: c}
}

// File returns the file service.
func (c *Client) File() *FileService {
	return &FileService{client: c}
}

// Find returns the find service.
func (c *Client) Find() *FindService {
	return &FindService{client: c}
}

// Session returns the session service.
func (c *Client) Session() *SessionService {
	return &SessionService{client: c}
}

// Tui returns the tui service.
func (c *Client) Tui() *TuiService {
	return &TuiService{client: c}
}

// newRequestConfig resolves per-call options over the client defaults.
func (c *Client) newRequestConfig(opts []RequestOption) (*requestConfig, error) {
	rc := &requestConfig{
		headers:    http.Header{},
		query:      url.Values{},
		timeout:    c.timeout,
		maxRetries: c.maxRetries,
	}

	for _, opt := range opts {
		opt(rc)
	}

	if rc.timeout <= 0 {
		return nil, errors.New("request timeout must be positive")
	}
	if rc.maxRetries < 0 {
		return nil, errors.New("request max retries must not be negative")
	}

	return rc, nil
}

// buildURL joins path onto the base URL and appends the default query merged
// with query. Keys are sorted; per-call values replace defaults.
func (c *Client) buildURL(path string, query url.Values) string {
	merged := c.DefaultQuery()
	maps.Copy(merged, query)

	u := c.baseURL + path
	if len(merged) > 0 {
		u += "?" + merged.Encode()
	}

	return u
}

// buildHeaders assembles the headers for one attempt: client defaults, the
// client's own headers, the retry count for retries, then per-call headers.
func (c *Client) buildHeaders(attempt int, extra http.Header) http.Header {
	h := c.headers.Clone()
	if h == nil {
		h = http.Header{}
	}

	h.Set(headerAccept, mimeJSON)
	h.Set(headerUserAgent, userAgent())

	if attempt > 0 {
		h.Set(headerRetryCount, strconv.Itoa(attempt))
	}

	for k, vs := range extra {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	return h
}

func userAgent() string {
	return "opencode-go/" + utils.Version
}
