package opencode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/sse"
)

// Stream is a lazy, pull-based sequence of JSON items decoded from a
// Server-Sent Events response. It is not safe for concurrent use and cannot
// be restarted once exhausted.
type Stream[T any] struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	logger *zap.Logger
	reader *sse.TeeReader

	// done is set after end of stream or a read failure.
	done bool

	closeOnce sync.Once
	closeErr  error
}

// newStream decodes body. When tee is non-nil it receives the raw bytes of
// the response, heartbeats included, as they are read.
func newStream[T any](body io.ReadCloser, cancel context.CancelFunc, tee io.Writer, logger *zap.Logger) *Stream[T] {
	if cancel == nil {
		cancel = func() {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Stream[T]{
		body:   body,
		cancel: cancel,
		logger: logger,
		reader: sse.NewTeeReader(body, tee),
	}
}

// Next returns the next item. Frames with empty data are heartbeats and are
// skipped. A frame that fails to decode returns a KindSerialization error for
// that item only and the stream remains usable. A failed read returns a
// KindConnection error, after which Next returns io.EOF. At the end of the
// stream Next returns io.EOF.
func (s *Stream[T]) Next() (T, error) {
	var zero T

	for {
		if s.done {
			return zero, io.EOF
		}

		frame, err := s.reader.Next()
		if err != nil {
			s.done = true
			s.logger.Debug("event stream read failed", zap.Error(err))
			return zero, newConnectionError(err)
		}

		if frame == nil {
			s.done = true
			continue
		}

		if frame.Data == "" {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(frame.Data), &item); err != nil {
			s.logger.Debug("dropping undecodable stream item",
				zap.String("event", frame.Type),
				zap.Error(err),
			)
			return zero, newSerializationError(err)
		}
		return item, nil
	}
}

// All returns a range-over-func view of the stream. Iteration stops at the
// end of the stream and after a connection error has been yielded.
// Serialization errors are yielded and iteration continues.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}

			if !yield(item, err) {
				return
			}

			var apiErr *Error
			if errors.As(err, &apiErr) && apiErr.Kind == KindConnection {
				return
			}
		}
	}
}

// Close releases the underlying response. It is safe to call more than once.
func (s *Stream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.body.Close()
	})

	return s.closeErr
}
