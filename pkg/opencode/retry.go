package opencode

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	headerRetryAfterMs = "Retry-After-Ms"
	headerRetryAfter   = "Retry-After"
	headerShouldRetry  = "X-Should-Retry"

	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second

	// maxHintDelay is the largest server hint representable as a Duration.
	maxHintDelay = time.Duration(math.MaxInt64)
)

// shouldRetry decides whether a non-2xx response is retried. An explicit
// x-should-retry header wins over the status rule.
func shouldRetry(status int, header http.Header) bool {
	switch header.Get(headerShouldRetry) {
	case "true":
		return true
	case "false":
		return false
	}

	return retryableStatus(status)
}

// retryDelay returns how long to wait before the retry that follows attempt.
// Server hints take precedence over exponential backoff. header may be nil.
func retryDelay(attempt int, header http.Header) time.Duration {
	if v := header.Get(headerRetryAfterMs); v != "" {
		if ms, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			if ms > uint64(maxHintDelay/time.Millisecond) {
				return maxHintDelay
			}
			return time.Duration(ms) * time.Millisecond
		}
	}

	if v := header.Get(headerRetryAfter); v != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && secs >= 0 {
			nanos := secs * float64(time.Second)
			if nanos >= float64(maxHintDelay) {
				return maxHintDelay
			}
			return time.Duration(nanos)
		}
	}

	return backoff(attempt, jitterFactor(time.Now()))
}

// backoff is min(0.5s * 2^attempt, 8s) scaled by jitter.
func backoff(attempt int, jitter float64) time.Duration {
	base := maxRetryDelay
	if attempt < 5 {
		base = min(initialRetryDelay<<attempt, maxRetryDelay)
	}

	return time.Duration(float64(base) * jitter)
}

// jitterFactor maps the sub-microsecond part of now into [0.75, 1.0).
func jitterFactor(now time.Time) float64 {
	nanos := now.Nanosecond() % 1000
	return 1 - 0.25*float64(nanos)/1000
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classifyTransportError maps a failed round trip to an *Error. parent is
// the caller's context: its cancellation is a user abort, while a deadline on
// the per-attempt context is a timeout.
func classifyTransportError(parent context.Context, err error) *Error {
	if errors.Is(parent.Err(), context.Canceled) {
		return &Error{Kind: KindUserAbort, Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: err.Error(), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: err.Error(), Err: err}
	}

	if isConnectError(err) {
		return newConnectionError(err)
	}

	return &Error{Kind: KindHTTP, Message: err.Error(), Err: err}
}

// isConnectError reports whether err happened while establishing or holding
// the connection rather than in request construction.
func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
