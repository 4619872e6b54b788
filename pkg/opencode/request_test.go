package opencode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recordedRequest is what the test server saw for one attempt.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// recorder is an http.Handler that records requests and answers each attempt
// with the next handler in its script, repeating the last one.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	script   []http.HandlerFunc
	attempts atomic.Int32
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		Query:  req.URL.RawQuery,
		Header: req.Header.Clone(),
		Body:   string(body),
	})
	n := len(r.requests)
	r.mu.Unlock()

	r.attempts.Add(1)

	idx := min(n-1, len(r.script)-1)
	r.script[idx](w, req)
}

func (r *recorder) seen() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func respondJSON(status int, body string, headers ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i+1 < len(headers); i += 2 {
			w.Header().Set(headers[i], headers[i+1])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func stall(d time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(d):
		}
		w.WriteHeader(http.StatusOK)
	}
}

var _ = Describe("Request engine", func() {
	var (
		rec    *recorder
		server *httptest.Server
		client *Client
		ctx    context.Context
	)

	start := func(script ...http.HandlerFunc) {
		rec = &recorder{script: script}
		server = httptest.NewServer(rec)

		var err error
		client, err = NewClient(WithBaseURL(server.URL), WithTimeout(2*time.Second))
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("decodes a 2xx JSON body", func() {
		start(respondJSON(200, `{"git":true,"hostname":"box","path":{"cwd":"/w"},"time":{}}`))

		app, err := client.App().Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(app.Git).To(BeTrue())
		Expect(app.Hostname).To(Equal("box"))
		Expect(app.Path.Cwd).To(Equal("/w"))

		reqs := rec.seen()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Method).To(Equal(http.MethodGet))
		Expect(reqs[0].Path).To(Equal("/app"))
		Expect(reqs[0].Header.Get("Accept")).To(Equal("application/json"))
		Expect(reqs[0].Header.Get("User-Agent")).To(HavePrefix("opencode-go/"))
		Expect(reqs[0].Header.Values("X-Retry-Count")).To(BeEmpty())
	})

	It("sends a JSON body with a content type", func() {
		start(respondJSON(200, `true`))

		ok, err := client.App().Log(ctx, AppLogParams{Level: LogLevelInfo, Message: "hi", Service: "test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		req := rec.seen()[0]
		Expect(req.Method).To(Equal(http.MethodPost))
		Expect(req.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(req.Body).To(MatchJSON(`{"level":"info","message":"hi","service":"test"}`))
	})

	It("sends no body and no content type for bodiless posts", func() {
		start(respondJSON(200, `true`))

		_, err := client.Tui().OpenHelp(ctx)
		Expect(err).NotTo(HaveOccurred())

		req := rec.seen()[0]
		Expect(req.Body).To(BeEmpty())
		Expect(req.Header.Get("Content-Type")).To(BeEmpty())
	})

	It("sends PUT and PATCH bodies and retries them like any other call", func() {
		start(
			respondJSON(503, `{"error":"busy"}`, "Retry-After-Ms", "0"),
			respondJSON(200, `{"id":"ses_1","title":"renamed"}`),
			respondJSON(200, `true`),
		)

		ses, err := put[Session](ctx, client, "/session/ses_1", map[string]string{"title": "renamed"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ses.ID).To(Equal("ses_1"))
		Expect(ses.Title).To(Equal("renamed"))

		ok, err := patch[bool](ctx, client, "/session/ses_1", map[string]string{"title": "again"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		reqs := rec.seen()
		Expect(reqs).To(HaveLen(3))
		Expect(reqs[0].Method).To(Equal(http.MethodPut))
		Expect(reqs[1].Method).To(Equal(http.MethodPut))
		Expect(reqs[1].Body).To(MatchJSON(`{"title":"renamed"}`))
		Expect(reqs[1].Header.Get("X-Retry-Count")).To(Equal("1"))
		Expect(reqs[2].Method).To(Equal(http.MethodPatch))
		Expect(reqs[2].Path).To(Equal("/session/ses_1"))
		Expect(reqs[2].Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(reqs[2].Body).To(MatchJSON(`{"title":"again"}`))
	})

	It("retries a 429 and succeeds on the second attempt", func() {
		start(
			respondJSON(429, `{"message":"slow down"}`, "retry-after-ms", "10"),
			respondJSON(200, `[]`),
		)

		sessions, err := client.Session().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(BeEmpty())

		reqs := rec.seen()
		Expect(reqs).To(HaveLen(2))
		Expect(reqs[0].Header.Values("X-Retry-Count")).To(BeEmpty())
		Expect(reqs[1].Header.Get("X-Retry-Count")).To(Equal("1"))
	})

	It("returns the last API error once retries are exhausted", func() {
		start(respondJSON(503, `{"message":"down"}`, "retry-after-ms", "1"))

		_, err := client.Session().List(ctx, WithRequestMaxRetries(3))
		Expect(err).To(HaveOccurred())

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindAPI))
		Expect(apiErr.Status).To(Equal(503))
		Expect(apiErr.Message).To(Equal("down"))
		Expect(errors.Is(err, ErrInternalServer)).To(BeTrue())
		Expect(rec.attempts.Load()).To(BeEquivalentTo(4))
	})

	It("does not retry a 404", func() {
		start(respondJSON(404, `{"message":"no such session"}`))

		_, err := client.Session().Messages(ctx, "ses_missing")
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		Expect(err.Error()).To(Equal("404 no such session"))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(1))
	})

	It("retries a 404 when the server says x-should-retry: true", func() {
		start(
			respondJSON(404, `{}`, "x-should-retry", "true", "retry-after-ms", "1"),
			respondJSON(200, `true`),
		)

		ok, err := client.Session().Delete(ctx, "ses_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(rec.attempts.Load()).To(BeEquivalentTo(2))
	})

	It("does not retry a 500 when the server says x-should-retry: false", func() {
		start(respondJSON(500, `{"message":"fatal"}`, "x-should-retry", "false"))

		_, err := client.Session().Delete(ctx, "ses_1")
		Expect(errors.Is(err, ErrInternalServer)).To(BeTrue())
		Expect(rec.attempts.Load()).To(BeEquivalentTo(1))
	})

	It("surfaces a timeout after maxRetries + 1 attempts", func() {
		start(stall(5 * time.Second))

		began := time.Now()
		_, err := client.App().Get(ctx, WithRequestTimeout(50*time.Millisecond), WithRequestMaxRetries(1))

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindTimeout))
		Expect(apiErr.Timeout()).To(BeTrue())
		Expect(err.Error()).To(Equal("Request timed out."))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(2))
		Expect(time.Since(began)).To(BeNumerically("<", 3*time.Second))
	})

	It("reports a cancelled context as a user abort without retrying", func() {
		start(stall(5 * time.Second))

		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(50*time.Millisecond, cancel)

		_, err := client.App().Get(cctx)

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindUserAbort))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(1))
	})

	It("reports cancellation during the backoff sleep as a user abort", func() {
		start(respondJSON(503, `{}`, "retry-after-ms", "10000"))

		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(100*time.Millisecond, cancel)

		_, err := client.App().Get(cctx)

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindUserAbort))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(1))
	})

	It("fails with a serialization error on an undecodable 2xx body", func() {
		start(respondJSON(200, `{"git": "yes"}`))

		_, err := client.App().Get(ctx)

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindSerialization))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(1))
	})

	It("fails with a serialization error before sending an unencodable body", func() {
		start(respondJSON(200, `true`))

		_, err := post[bool](ctx, client, "/log", map[string]any{"bad": make(chan int)}, nil)

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindSerialization))
		Expect(rec.attempts.Load()).To(BeEquivalentTo(0))
	})

	It("reports an unreachable server as a connection error", func() {
		start(respondJSON(200, `true`))
		addr := server.URL
		server.Close()
		server = nil

		c, err := NewClient(WithBaseURL(addr), WithMaxRetries(0))
		Expect(err).NotTo(HaveOccurred())

		_, err = c.App().Get(ctx)

		var apiErr *Error
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Kind).To(Equal(KindConnection))
		Expect(apiErr.Retryable()).To(BeTrue())
	})

	It("lets per-call headers win and carries the default query", func() {
		rec = &recorder{script: []http.HandlerFunc{respondJSON(200, `[]`)}}
		server = httptest.NewServer(rec)

		c, err := NewClient(
			WithBaseURL(server.URL),
			WithHeader("X-Team", "core"),
			WithQuery("directory", "/work"),
		)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Find().Files(ctx, "main.go", WithRequestHeader("X-Team", "edge"), WithRequestHeader("Accept", "application/vnd.test"))
		Expect(err).NotTo(HaveOccurred())

		req := rec.seen()[0]
		Expect(req.Path).To(Equal("/find/file"))
		Expect(req.Query).To(Equal("directory=%2Fwork&query=main.go"))
		Expect(req.Header.Get("X-Team")).To(Equal("edge"))
		Expect(req.Header.Get("Accept")).To(Equal("application/vnd.test"))
	})

	It("escapes session ids in paths", func() {
		start(respondJSON(200, `true`))

		_, err := client.Session().Abort(ctx, "a/b c")
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.seen()[0].Path).To(Equal("/session/a%2Fb%20c/abort"))
	})

	It("encodes chat parts with their discriminators", func() {
		start(respondJSON(200, `{"id":"msg_2","cost":0,"mode":"build","modelID":"m","path":{"cwd":"/","root":"/"},"providerID":"p","sessionID":"ses_1","system":[],"time":{"created":1},"tokens":{"cache":{"read":0,"write":0},"input":1,"output":2,"reasoning":0}}`))

		reply, err := client.Session().Chat(ctx, "ses_1", ChatParams{
			ProviderID: "p",
			ModelID:    "m",
			Parts:      []PartInput{TextInput("hello"), FileInput("text/plain", "file:///a.txt")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.ID).To(Equal("msg_2"))
		Expect(reply.Tokens.Output).To(BeEquivalentTo(2))

		var sent map[string]any
		Expect(json.Unmarshal([]byte(rec.seen()[0].Body), &sent)).To(Succeed())
		Expect(sent["parts"]).To(Equal([]any{
			map[string]any{"type": "text", "text": "hello"},
			map[string]any{"type": "file", "mime": "text/plain", "url": "file:///a.txt"},
		}))
	})
})
