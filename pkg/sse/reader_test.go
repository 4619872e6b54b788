package sse

import (
	"bytes"
	"errors"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TeeReader", func() {
	var dst *bytes.Buffer

	BeforeEach(func() {
		dst = &bytes.Buffer{}
	})

	Describe("Next", func() {
		Context("with opencode event frames", func() {
			It("parses a single event", func() {
				src := strings.NewReader("data: {\"type\":\"server.connected\",\"properties\":{}}\n\n")
				r := NewTeeReader(src, dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal(`{"type":"server.connected","properties":{}}`))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses multiple events in wire order", func() {
				src := strings.NewReader("data: first\n\nid: 2\ndata: second\n\nevent: message\ndata: third\n\n")
				r := NewTeeReader(src, dst)

				ev1, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev1.Data).To(Equal("first"))

				ev2, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev2.Data).To(Equal("second"))
				Expect(ev2.ID).To(Equal("2"))

				ev3, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev3.Type).To(Equal("message"))
				Expect(ev3.Data).To(Equal("third"))

				ev4, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev4).To(BeNil())
			})

			It("joins multiple data lines with newline", func() {
				src := strings.NewReader("data: {\"a\":\ndata: 1}\n\n")
				r := NewTeeReader(src, dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("{\"a\":\n1}"))
			})
		})

		Context("with a source that returns one byte at a time", func() {
			It("yields the same events as a single read", func() {
				input := ": heartbeat\n\nevent: message\r\ndata: héllo\r\n\r\ndata: tail"
				r := NewTeeReader(iotest.OneByteReader(strings.NewReader(input)), dst)

				ev1, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev1.Type).To(Equal("message"))
				Expect(ev1.Data).To(Equal("héllo"))

				ev2, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev2.Data).To(Equal("tail"))

				ev3, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev3).To(BeNil())

				Expect(dst.String()).To(Equal(input))
			})
		})

		Context("with SSE comments", func() {
			It("ignores comment lines in parsed events", func() {
				src := strings.NewReader(": this is a comment\ndata: hello\n\n")
				r := NewTeeReader(src, dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("forwards comment lines to dst", func() {
				src := strings.NewReader(": keep-alive\ndata: hello\n\n")
				r := NewTeeReader(src, dst)

				_, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(dst.String()).To(ContainSubstring(": keep-alive\n"))
			})
		})

		Context("verbatim byte forwarding", func() {
			It("forwards all bytes including \\n\\n delimiters to dst", func() {
				input := "data: first\n\ndata: second\n\n"
				r := NewTeeReader(strings.NewReader(input), dst)

				_, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				_, err = r.Next()
				Expect(err).NotTo(HaveOccurred())

				Expect(dst.String()).To(Equal(input))
			})

			It("discards bytes when dst is nil", func() {
				r := NewTeeReader(strings.NewReader("data: x\n\n"), nil)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("x"))
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				r := NewTeeReader(strings.NewReader(""), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns nil on input with only blank lines", func() {
				r := NewTeeReader(strings.NewReader("\n\n\n"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("yields event when stream ends without trailing blank line", func() {
				r := NewTeeReader(strings.NewReader("data: unterminated"), dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("unterminated"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns source read errors", func() {
				boom := errors.New("boom")
				r := NewTeeReader(iotest.ErrReader(boom), dst)

				ev, err := r.Next()
				Expect(err).To(MatchError(boom))
				Expect(ev).To(BeNil())
			})

			It("returns events read together with an error before the error", func() {
				boom := errors.New("connection reset")
				src := &dataErrReader{data: []byte("data: one\n\ndata: two\n\ndata: cut"), err: boom}
				r := NewTeeReader(src, dst)

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("one"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("two"))

				_, err = r.Next()
				Expect(err).To(MatchError(boom))
				_, err = r.Next()
				Expect(err).To(MatchError(boom))
				Expect(dst.String()).To(Equal("data: one\n\ndata: two\n\ndata: cut"))
			})

			It("returns destination write errors", func() {
				boom := errors.New("closed pipe")
				r := NewTeeReader(strings.NewReader("data: x\n\n"), failingWriter{err: boom})

				_, err := r.Next()
				Expect(err).To(MatchError(boom))
			})
		})
	})
})

// dataErrReader returns all of data and err from a single Read.
type dataErrReader struct {
	data []byte
	err  error
}

func (r *dataErrReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, r.err
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write(_ []byte) (int, error) {
	return 0, w.err
}
