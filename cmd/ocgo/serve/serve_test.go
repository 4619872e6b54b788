package servecmder_test

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	servecmder "github.com/papercomputeco/opencode-go/cmd/ocgo/serve"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// freeAddr returns a loopback address that was free a moment ago.
func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return addr
}

var _ = Describe("Serve command", func() {
	var (
		configDir  string
		projectDir string
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		projectDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(projectDir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(projectDir, ".git"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(projectDir, ".git", "HEAD"), []byte("ref: main\n"), 0o644)).To(Succeed())
	})

	// serve runs the serve command until the returned cancel func is
	// called, and returns a client for it.
	serve := func(args ...string) (*opencode.Client, func() error) {
		addr := freeAddr()

		root := &cobra.Command{Use: "ocgo", SilenceUsage: true, SilenceErrors: true}
		cmdutil.AddPersistentFlags(root)
		root.AddCommand(servecmder.NewServeCmd())
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"serve", "--listen", addr, "--config-dir", configDir}, args...))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- root.ExecuteContext(ctx) }()

		client, err := opencode.NewClient(opencode.WithBaseURL("http://"+addr), opencode.WithMaxRetries(0))
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() error {
			_, err := client.App().Get(context.Background())
			return err
		}).Should(Succeed())

		stop := func() error {
			cancel()
			var err error
			Eventually(done).Should(Receive(&err))
			return err
		}
		DeferCleanup(func() { cancel() })
		return client, stop
	}

	It("serves until cancelled", func() {
		client, stop := serve("--root", projectDir)

		app, err := client.App().Get(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(app.Path.Root).To(Equal(projectDir))

		files, err := client.Find().Files(context.Background(), "main")
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(BeEmpty())

		Expect(stop()).To(Succeed())
	})

	It("serves the project files with --load", func() {
		client, stop := serve("--root", projectDir, "--load")
		defer func() { Expect(stop()).To(Succeed()) }()

		content, err := client.File().Read(context.Background(), "main.go")
		Expect(err).NotTo(HaveOccurred())
		Expect(content.Content).To(ContainSubstring("func main()"))

		files, err := client.Find().Files(context.Background(), "HEAD")
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(BeEmpty())
	})

	It("rejects an invalid heartbeat", func() {
		root := &cobra.Command{Use: "ocgo", SilenceUsage: true, SilenceErrors: true}
		cmdutil.AddPersistentFlags(root)
		root.AddCommand(servecmder.NewServeCmd())
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"serve", "--config-dir", configDir, "--listen", freeAddr()})

		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[server]\nheartbeat = \"soon\"\n"), 0o600)).To(Succeed())
		Expect(root.Execute()).To(MatchError(ContainSubstring("server.heartbeat")))
	})
})
