package sse

import (
	"bufio"
	"io"
	"strings"
)

// Encode writes ev to w as one frame: an optional "event:" line, an optional
// "id:" line, one "data:" line per line of Data, and the blank terminator
// line. An event with empty Data is written as a single empty "data:" line
// so that it still reaches the consumer as a keep-alive.
func Encode(w io.Writer, ev Event) error {
	bw := bufio.NewWriter(w)

	if ev.Type != "" {
		writeField(bw, "event", ev.Type)
	}
	if ev.ID != "" {
		writeField(bw, "id", ev.ID)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		writeField(bw, "data", line)
	}
	bw.WriteByte('\n')

	return bw.Flush()
}

// WriteComment writes a ":" comment frame. Consumers ignore comments, which
// makes them suitable as heartbeats.
func WriteComment(w io.Writer, text string) error {
	_, err := io.WriteString(w, ": "+text+"\n\n")
	return err
}

func writeField(bw *bufio.Writer, name, value string) {
	bw.WriteString(name)
	bw.WriteString(": ")
	bw.WriteString(value)
	bw.WriteByte('\n')
}
