// Package sse provides an incremental SSE (Server-Sent Events) decoder for
// consuming the opencode event feed, a tee-reader that parses events while
// forwarding the raw bytes verbatim to a second writer, and an encoder used
// by the mock server to produce the same feed.
//
// Only the subset of the wire format used by the opencode server is
// recognized: the "event", "data" and "id" fields, ":" comments, and blank
// line frame terminators. Both LF and CRLF line endings are accepted.
//
// See the WHATWG server-sent events standard:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE frame, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means no event field was sent.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n". An empty Data is a keep-alive with no payload.
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
