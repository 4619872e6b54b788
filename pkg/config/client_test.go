package config_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/config"
)

var _ = Describe("NewClient", func() {
	It("applies the client section", func() {
		retries := uint(0)
		cfg := config.NewDefaultConfig()
		cfg.Client.BaseURL = "http://example.test:4096/"
		cfg.Client.Timeout = "7s"
		cfg.Client.MaxRetries = &retries
		cfg.Client.Directory = "/src/app"

		client, err := config.NewClient(cfg, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(client.BaseURL()).To(Equal("http://example.test:4096"))
		Expect(client.Timeout()).To(Equal(7 * time.Second))
		Expect(client.MaxRetries()).To(BeZero())
		Expect(client.DefaultQuery().Get("directory")).To(Equal("/src/app"))
	})

	It("omits the directory query when unset", func() {
		client, err := config.NewClient(config.NewDefaultConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.DefaultQuery()).NotTo(HaveKey("directory"))
		Expect(client.MaxRetries()).To(Equal(2))
	})

	It("rejects an unparsable timeout", func() {
		cfg := config.NewDefaultConfig()
		cfg.Client.Timeout = "later"

		_, err := config.ClientOptions(cfg, nil)
		Expect(err).To(MatchError(ContainSubstring("client.timeout")))
	})

	It("rejects a nil config", func() {
		_, err := config.ClientOptions(nil, nil)
		Expect(err).To(HaveOccurred())
	})
})
