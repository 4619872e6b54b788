package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// do performs one logical request, retrying transient failures, and decodes
// the 2xx JSON response into T. body is JSON-encoded when non-nil.
func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, opts []RequestOption) (T, error) {
	var zero T

	rc, err := c.newRequestConfig(opts)
	if err != nil {
		return zero, &Error{Kind: KindHTTP, Message: err.Error(), Err: err}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return zero, newSerializationError(err)
		}
	}

	merged := url.Values{}
	for k, vs := range query {
		merged[k] = vs
	}
	for k, vs := range rc.query {
		merged[k] = vs
	}
	target := c.buildURL(path, merged)

	var lastErr *Error
	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		c.logger.Debug("sending request",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("attempt", attempt),
		)

		status, header, respBody, tErr := c.roundTrip(ctx, rc, method, target, payload, attempt)
		if tErr != nil {
			if ctx.Err() != nil || attempt >= rc.maxRetries || !tErr.Retryable() {
				return zero, tErr
			}

			if abort := c.backoff(ctx, attempt, nil, tErr); abort != nil {
				return zero, abort
			}
			lastErr = tErr
			continue
		}

		if status >= 200 && status < 300 {
			var out T
			if err := json.Unmarshal(respBody, &out); err != nil {
				return zero, newSerializationError(err)
			}
			return out, nil
		}

		apiErr := ErrorFromResponse(status, header, respBody)
		if attempt >= rc.maxRetries || !shouldRetry(status, header) {
			return zero, apiErr
		}

		if abort := c.backoff(ctx, attempt, header, apiErr); abort != nil {
			return zero, abort
		}
		lastErr = apiErr
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, &Error{Kind: KindHTTP, Message: "max retries exhausted"}
}

// roundTrip issues a single attempt bounded by the per-call timeout and reads
// the whole response body.
func (c *Client) roundTrip(ctx context.Context, rc *requestConfig, method, target string, payload []byte, attempt int) (int, http.Header, []byte, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, reqBody)
	if err != nil {
		return 0, nil, nil, &Error{Kind: KindHTTP, Message: err.Error(), Err: err}
	}

	req.Header = c.buildHeaders(attempt, rc.headers)
	if payload != nil && req.Header.Get(headerContentType) == "" {
		req.Header.Set(headerContentType, mimeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return 0, nil, nil, classifyTransportError(ctx, err)
		}
		// Error bodies are best-effort.
		respBody = nil
	}

	return resp.StatusCode, resp.Header, respBody, nil
}

// backoff sleeps before the next attempt. It returns a user abort error when
// ctx ends during the wait.
func (c *Client) backoff(ctx context.Context, attempt int, header http.Header, cause *Error) *Error {
	delay := retryDelay(attempt, header)

	c.logger.Debug("retrying request",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Stringer("kind", cause.Kind),
		zap.Int("status", cause.Status),
	)

	if err := sleep(ctx, delay); err != nil {
		return &Error{Kind: KindUserAbort, Message: err.Error(), Err: err}
	}

	return nil
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values, opts []RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodGet, path, query, nil, opts)
}

func post[T any](ctx context.Context, c *Client, path string, body any, opts []RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPost, path, nil, body, opts)
}

func put[T any](ctx context.Context, c *Client, path string, body any, opts []RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPut, path, nil, body, opts)
}

func patch[T any](ctx context.Context, c *Client, path string, body any, opts []RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPatch, path, nil, body, opts)
}

func del[T any](ctx context.Context, c *Client, path string, opts []RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodDelete, path, nil, nil, opts)
}

// getStream opens a Server-Sent Events response. It is a single attempt with
// no retry. The timeout bounds only the wait for response headers; after that
// the stream lives until ctx is done or the Stream is closed. Non-2xx
// responses are returned as API errors.
func getStream[T any](ctx context.Context, c *Client, path string, opts []RequestOption) (*Stream[T], error) {
	rc, err := c.newRequestConfig(opts)
	if err != nil {
		return nil, &Error{Kind: KindHTTP, Message: err.Error(), Err: err}
	}

	target := c.buildURL(path, rc.query)

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, &Error{Kind: KindHTTP, Message: err.Error(), Err: err}
	}

	extra := rc.headers.Clone()
	if extra.Get(headerAccept) == "" {
		extra.Set(headerAccept, mimeEventStream)
	}
	req.Header = c.buildHeaders(0, extra)

	c.logger.Debug("opening event stream", zap.String("url", target))

	timer := time.AfterFunc(rc.timeout, cancel)
	resp, err := c.httpClient.Do(req)
	timedOut := !timer.Stop()

	if timedOut {
		cancel()
		if err == nil {
			resp.Body.Close()
		}
		return nil, &Error{Kind: KindTimeout, Message: "timed out waiting for event stream", Err: context.DeadlineExceeded}
	}

	if err != nil {
		cancel()
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, ErrorFromResponse(resp.StatusCode, resp.Header, body)
	}

	return newStream[T](resp.Body, cancel, rc.tee, c.logger), nil
}
