package findcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil/cmdtest"
	findcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/find"
	"github.com/papercomputeco/opencode-go/pkg/mockserver"
)

var _ = Describe("Find command", func() {
	var harness *cmdtest.Harness

	BeforeEach(func() {
		var err error
		harness, err = cmdtest.Start(mockserver.Config{
			Root: "/srv/project",
			Files: map[string]string{
				"client.go":       "package opencode\n\nfunc NewClient() {}\n\nfunc (c *Client) Retry() {}\n",
				"client_test.go":  "package opencode\n",
				"docs/retries.md": "retry with backoff\nno retry here? retry!\n",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(harness.Close)
	})

	run := func(args ...string) (string, error) {
		return harness.Execute(findcmder.NewFindCmd(), args...)
	}

	It("finds files by path", func() {
		out, err := run("files", "CLIENT")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("client.go"))
		Expect(out).To(ContainSubstring("client_test.go"))
		Expect(out).NotTo(ContainSubstring("retries.md"))
	})

	It("finds symbols with their kind and position", func() {
		out, err := run("symbols", "client")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchRegexp(`NewClient function /srv/project/client\.go:3:6`))

		out, err = run("symbols", "retry")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Retry method"))
	})

	It("searches text with line numbers", func() {
		out, err := run("text", "retry")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("docs/retries.md:1: retry with backoff"))
		Expect(out).To(ContainSubstring("docs/retries.md:2: no retry here? retry!"))
	})

	It("reports when nothing matches", func() {
		out, err := run("files", "zzz")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No matches."))
	})

	It("surfaces invalid patterns", func() {
		_, err := run("text", "(")
		Expect(err).To(MatchError(ContainSubstring("400")))
	})
})
