package sse

import (
	"errors"
	"io"
)

const readChunkSize = 32 * 1024

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the Event for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// The destination receives the exact byte stream (comments and heartbeats
// included), while the caller inspects parsed events.
type TeeReader struct {
	src  io.Reader
	dest io.Writer
	dec  *Decoder

	chunk []byte
	queue []Event
	done  bool

	// err is a read error held back until the events parsed from the same
	// read have been returned.
	err error
}

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest. A nil dest discards the bytes.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	if dest == nil {
		dest = io.Discard
	}

	return &TeeReader{
		src:   src,
		dest:  dest,
		dec:   NewDecoder(),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next parsed SSE event. It blocks until a complete event is
// available (terminated by a blank line in the stream). When the source ends
// without a trailing blank line, the pending event is flushed and returned.
// Next returns nil, nil when the source is exhausted. A read error is
// returned only after the events completed by that read, and is returned
// again on every later call.
//
// Bytes are written to the destination as soon as they are read, before they
// are parsed.
func (r *TeeReader) Next() (*Event, error) {
	for {
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			return &ev, nil
		}

		if r.err != nil {
			return nil, r.err
		}

		if r.done {
			return nil, nil
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			if _, werr := r.dest.Write(r.chunk[:n]); werr != nil {
				return nil, werr
			}
			r.queue = r.dec.Feed(r.chunk[:n])
		}

		if errors.Is(err, io.EOF) {
			r.done = true
			if ev, ok := r.dec.Flush(); ok {
				r.queue = append(r.queue, ev)
			}
			continue
		}
		if err != nil {
			r.err = err
		}
	}
}
