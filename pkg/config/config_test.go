package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/opencode-go/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[client]
base_url = "http://opencode.internal:4096"
timeout = "5s"
max_retries = 4
directory = "/src/app"

[log]
debug = true
file = "/tmp/ocgo.log"

[events]
publisher = "kafka"
workers = 8
queue_size = 64
filter = "session."

[kafka]
brokers = "k1:9092,k2:9092"
topic = "oc"

[server]
listen = ":4096"
heartbeat = "2s"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.BaseURL).To(Equal("http://opencode.internal:4096"))
			Expect(cfg.Client.Timeout).To(Equal("5s"))
			Expect(*cfg.Client.MaxRetries).To(Equal(uint(4)))
			Expect(cfg.Client.Directory).To(Equal("/src/app"))
			Expect(cfg.Log.Debug).To(BeTrue())
			Expect(cfg.Log.File).To(Equal("/tmp/ocgo.log"))
			Expect(cfg.Events.Publisher).To(Equal("kafka"))
			Expect(cfg.Events.Workers).To(Equal(uint(8)))
			Expect(cfg.Events.QueueSize).To(Equal(uint(64)))
			Expect(cfg.Events.Filter).To(Equal("session."))
			Expect(cfg.Kafka.Brokers).To(Equal("k1:9092,k2:9092"))
			Expect(cfg.Kafka.Topic).To(Equal("oc"))
			Expect(cfg.Server.Listen).To(Equal(":4096"))
			Expect(cfg.Server.Heartbeat).To(Equal("2s"))
		})

		It("keeps an explicit zero max_retries", func() {
			writeConfig("[client]\nmax_retries = 0\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.MaxRetries).NotTo(BeNil())
			Expect(*cfg.Client.MaxRetries).To(BeZero())
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig("[kafka]\ntopic = \"custom\"\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Kafka.Topic).To(Equal("custom"))
			Expect(cfg.Kafka.Brokers).To(Equal(defaults.Kafka.Brokers))
			Expect(cfg.Client.BaseURL).To(Equal(defaults.Client.BaseURL))
			Expect(*cfg.Client.MaxRetries).To(Equal(*defaults.Client.MaxRetries))
			Expect(cfg.Events.Workers).To(Equal(defaults.Events.Workers))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("not valid toml [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})

		It("returns error for an unknown publisher", func() {
			writeConfig("[events]\npublisher = \"nats\"\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("nats")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a saved config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Client.Directory = "/work"
			cfg.Events.Filter = "message."
			Expect(c.SaveConfig(cfg)).To(Succeed())

			_, err = os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("sets and reads back a key",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(Succeed())

				got, err := c.GetConfigValue(key)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(value))
			},
			Entry("string", "client.base_url", "http://10.0.0.2:4096"),
			Entry("duration", "client.timeout", "30s"),
			Entry("retries", "client.max_retries", "0"),
			Entry("bool", "log.debug", "true"),
			Entry("publisher", "events.publisher", "kafka"),
			Entry("uint", "events.queue_size", "512"),
			Entry("server", "server.listen", ":9999"),
		)

		DescribeTable("rejects invalid values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(MatchError(ContainSubstring(key)))
			},
			Entry("duration", "client.timeout", "soon"),
			Entry("negative duration", "server.heartbeat", "-1s"),
			Entry("retries", "client.max_retries", "-1"),
			Entry("bool", "log.debug", "maybe"),
			Entry("publisher", "events.publisher", "nats"),
			Entry("uint", "events.workers", "many"),
		)

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))

			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("kafka.topic", "a")).To(Succeed())
			Expect(c.SetConfigValue("kafka.brokers", "b:9092")).To(Succeed())

			topic, err := c.GetConfigValue("kafka.topic")
			Expect(err).NotTo(HaveOccurred())
			Expect(topic).To(Equal("a"))
		})

		It("returns defaults when no config file exists", func() {
			got, err := c.GetConfigValue("client.base_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("http://localhost:54321"))

			got, err = c.GetConfigValue("client.directory")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("returns every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(14))
			Expect(keys[0]).To(Equal("client.base_url"))
			Expect(keys[len(keys)-1]).To(Equal("server.heartbeat"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
			}
		})

		It("rejects unknown keys", func() {
			Expect(config.IsValidConfigKey("client")).To(BeFalse())
			Expect(config.IsValidConfigKey("base_url")).To(BeFalse())
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the local preset as the defaults", func() {
		cfg, err := config.PresetConfig("local")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("returns the kafka preset with the kafka publisher", func() {
		cfg, err := config.PresetConfig("KAFKA")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Events.Publisher).To(Equal(config.PublisherKafka))
		Expect(cfg.Kafka.Topic).To(Equal("opencode.events"))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("cloud")
		Expect(err).To(MatchError(ContainSubstring("local, kafka")))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML([]byte(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.BaseURL).To(BeEmpty())
		Expect(cfg.Client.MaxRetries).To(BeNil())
	})

	It("returns error for invalid TOML", func() {
		_, err := config.ParseConfigTOML([]byte("[[["))
		Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
	})
})
