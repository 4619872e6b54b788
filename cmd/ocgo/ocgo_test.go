package ocgocmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	ocgocmder "github.com/papercomputeco/opencode-go/cmd/ocgo"
	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil/cmdtest"
	"github.com/papercomputeco/opencode-go/pkg/mockserver"
)

var _ = Describe("Ocgo command", func() {
	It("registers every subcommand", func() {
		cmd := ocgocmder.NewOcgoCmd()

		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"app", "chat", "config", "events", "file", "find",
			"init", "serve", "session", "tui", "version",
		))
	})

	It("registers the global flags", func() {
		cmd := ocgocmder.NewOcgoCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("runs a session round trip through the full tree", func() {
		harness, err := cmdtest.Start(mockserver.Config{})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(harness.Close)

		run := func(args ...string) string {
			cmd := ocgocmder.NewOcgoCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(append(args, "--base-url", harness.URL, "--max-retries", "0", "--config-dir", harness.ConfigDir))
			Expect(cmd.Execute()).To(Succeed())
			return out.String()
		}

		Expect(run("chat", "hello", "tree")).To(ContainSubstring("hello tree"))
		Expect(run("session", "list")).To(ContainSubstring("hello tree"))
		Expect(run("session", "messages")).To(ContainSubstring("assistant"))
	})
})
