package sse

import (
	"strings"
	"unicode/utf8"
)

// Decoder incrementally turns an append-only sequence of byte chunks into
// Events. Chunk boundaries may fall anywhere, including inside a line or a
// multi-byte character.
//
// A Decoder is not safe for concurrent use: each stream owns its own.
type Decoder struct {
	// buf is the decoded text that has not yet formed a complete line.
	buf string

	// partial holds the bytes of a UTF-8 sequence cut off at the end of the
	// previous chunk.
	partial []byte

	eventType string
	hasType   bool
	id        string
	hasID     bool
	data      []string
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the decoder and returns every Event completed by it,
// in the order their terminating blank lines appeared. Invalid UTF-8 is
// replaced with U+FFFD; Feed never fails.
func (d *Decoder) Feed(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}

	d.buf += d.decode(chunk)

	var events []Event
	for {
		i := strings.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}

		line := strings.TrimSuffix(d.buf[:i], "\r")
		d.buf = d.buf[i+1:]

		if ev, ok := d.processLine(line); ok {
			events = append(events, ev)
		}
	}

	return events
}

// Flush interprets any unterminated trailing line as a final field line and
// emits the pending frame, if any. It is meant to be called once, after the
// underlying stream has ended.
func (d *Decoder) Flush() (Event, bool) {
	rest := d.buf
	if len(d.partial) > 0 {
		rest += toValidUTF8(d.partial)
	}
	d.buf = ""
	d.partial = nil

	rest = strings.TrimSuffix(rest, "\r")
	if rest != "" && !strings.HasPrefix(rest, ":") {
		d.processLine(rest)
	}

	return d.emit()
}

// decode converts chunk to valid UTF-8, holding back an incomplete trailing
// sequence so a character split across two chunks survives intact.
func (d *Decoder) decode(chunk []byte) string {
	data := chunk
	if len(d.partial) > 0 {
		data = append(d.partial, chunk...)
		d.partial = nil
	}

	cut := len(data)
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if !utf8.FullRune(data[i:]) {
			cut = i
		}
		break
	}

	if cut < len(data) {
		d.partial = append([]byte(nil), data[cut:]...)
	}

	return toValidUTF8(data[:cut])
}

// toValidUTF8 replaces each maximal invalid subpart of b with one U+FFFD.
// Replacing per subpart rather than per run keeps the output independent of
// where b was split into chunks.
func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + utf8.UTFMax)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[invalidPrefixLen(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// invalidPrefixLen returns the length of the maximal invalid subpart at the
// start of b: a lead byte followed by as many continuation bytes as could
// still have formed a valid sequence with it.
func invalidPrefixLen(b []byte) int {
	var need int
	lo, hi := byte(0x80), byte(0xBF)
	switch lead := b[0]; {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 1
	case lead == 0xE0:
		need, lo = 2, 0xA0
	case lead == 0xED:
		need, hi = 2, 0x9F
	case lead >= 0xE1 && lead <= 0xEF:
		need = 2
	case lead == 0xF0:
		need, lo = 3, 0x90
	case lead == 0xF4:
		need, hi = 3, 0x8F
	case lead >= 0xF1 && lead <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) {
		c := b[n]
		if n > 1 {
			lo, hi = 0x80, 0xBF
		}
		if c < lo || c > hi {
			break
		}
		n++
	}
	return n
}

// processLine handles a single line with its terminator removed. It returns
// an Event only for a blank line that completes a non-empty frame.
func (d *Decoder) processLine(line string) (Event, bool) {
	if line == "" {
		return d.emit()
	}

	if line[0] == ':' {
		return Event{}, false
	}

	// A line without a colon is a field name with an empty value.
	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "event":
		d.eventType = value
		d.hasType = true
	case "data":
		d.data = append(d.data, value)
	case "id":
		d.id = value
		d.hasID = true
	default:
		// "retry" and unknown fields are ignored.
	}

	return Event{}, false
}

// emit builds an Event from the pending fields and clears them. Nothing is
// emitted when no field was seen since the last frame.
func (d *Decoder) emit() (Event, bool) {
	if !d.hasType && !d.hasID && len(d.data) == 0 {
		return Event{}, false
	}

	ev := Event{
		Type: d.eventType,
		Data: strings.Join(d.data, "\n"),
		ID:   d.id,
	}

	d.eventType, d.hasType = "", false
	d.id, d.hasID = "", false
	d.data = d.data[:0]

	return ev, true
}
