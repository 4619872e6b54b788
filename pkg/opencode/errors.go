package opencode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an *Error.
type Kind int

const (
	// KindAPI is a non-2xx response from the server.
	KindAPI Kind = iota + 1

	// KindConnection is a failure to reach the server.
	KindConnection

	// KindTimeout is a request that exceeded its deadline.
	KindTimeout

	// KindUserAbort is a request cancelled by the caller's context.
	KindUserAbort

	// KindSerialization is a JSON encode or decode failure.
	KindSerialization

	// KindHTTP is any other transport failure.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindUserAbort:
		return "user_abort"
	case KindSerialization:
		return "serialization"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by API errors of the corresponding status through
// errors.Is.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrAuthentication      = errors.New("authentication error")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrRateLimit           = errors.New("rate limit exceeded")
	ErrInternalServer      = errors.New("internal server error")
)

// Error is the single error type returned by the client.
type Error struct {
	Kind Kind

	// Status, Header, and Body are set for KindAPI only. Body holds the
	// response body when it was valid JSON.
	Status int
	Header http.Header
	Body   json.RawMessage

	// Message is the human readable detail.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	case KindConnection:
		return "Connection error: " + e.Message
	case KindTimeout:
		return "Request timed out."
	case KindUserAbort:
		return "Request was aborted."
	case KindSerialization:
		return "Serialization error: " + e.Message
	default:
		return "HTTP error: " + e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches API errors against the status sentinels.
func (e *Error) Is(target error) bool {
	if e.Kind != KindAPI {
		return false
	}
	return statusSentinel(e.Status) == target
}

// Retryable reports whether the failure is transient: connection failures,
// timeouts, and API errors with status 408, 409, 429, or >= 500.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConnection, KindTimeout:
		return true
	case KindAPI:
		return retryableStatus(e.Status)
	default:
		return false
	}
}

// Timeout reports whether the request exceeded its deadline.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// StatusCode returns the HTTP status of an API error and 0 otherwise.
func (e *Error) StatusCode() int {
	if e.Kind != KindAPI {
		return 0
	}
	return e.Status
}

// Name returns the well-known name of an API error status, such as
// "not_found" or "rate_limit". Unmapped statuses return "api_error".
func (e *Error) Name() string {
	switch {
	case e.Kind != KindAPI:
		return e.Kind.String()
	case e.Status == http.StatusBadRequest:
		return "bad_request"
	case e.Status == http.StatusUnauthorized:
		return "authentication"
	case e.Status == http.StatusForbidden:
		return "permission_denied"
	case e.Status == http.StatusNotFound:
		return "not_found"
	case e.Status == http.StatusConflict:
		return "conflict"
	case e.Status == http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case e.Status == http.StatusTooManyRequests:
		return "rate_limit"
	case e.Status >= http.StatusInternalServerError:
		return "internal_server"
	default:
		return "api_error"
	}
}

// ErrorFromResponse builds a KindAPI error for a non-2xx response. The
// message is taken from a "message" string field in the JSON body, else the
// compact JSON body, else a placeholder naming the status.
func ErrorFromResponse(status int, header http.Header, body []byte) *Error {
	e := &Error{
		Kind:   KindAPI,
		Status: status,
		Header: header,
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		e.Body = json.RawMessage(trimmed)
	}

	e.Message = errorMessage(status, e.Body)
	return e
}

func errorMessage(status int, body json.RawMessage) string {
	if body == nil {
		return fmt.Sprintf("%d status code (no body)", status)
	}

	var withMessage struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &withMessage); err == nil && withMessage.Message != nil {
		return *withMessage.Message
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return string(body)
	}
	return compact.String()
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrAuthentication
	case status == http.StatusForbidden:
		return ErrPermissionDenied
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= http.StatusInternalServerError:
		return ErrInternalServer
	default:
		return nil
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func newSerializationError(err error) *Error {
	return &Error{Kind: KindSerialization, Message: err.Error(), Err: err}
}

func newConnectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: err.Error(), Err: err}
}
