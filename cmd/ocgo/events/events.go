// Package eventscmder provides the events command, which follows the opencode
// server's event feed and optionally relays it to kafka.
package eventscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/eventstream/kafka"
	"github.com/papercomputeco/opencode-go/pkg/eventstream/nop"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
	"github.com/papercomputeco/opencode-go/relay"
)

type eventsCommander struct {
	tee   string
	json  bool
	quiet bool

	mu  sync.Mutex
	out io.Writer
}

const eventsLongDesc string = `Follow the opencode server's event feed.

Every event is printed as it arrives. With --publish kafka the events are
also relayed to a kafka topic, keyed by session id. Publishing runs on a
worker pool with a bounded queue: when kafka falls behind, events are
dropped rather than stalling the feed.

The command runs until interrupted or until the server ends the feed.

Examples:
  ocgo events
  ocgo events --filter session.
  ocgo events --json > events.jsonl
  ocgo events --publish kafka --brokers kafka-1:9092,kafka-2:9092 --quiet
  ocgo events --tee feed.sse`

const eventsShortDesc string = "Follow and relay the server event feed"

// eventsFlags are the registry keys bound by the events command.
var eventsFlags = []string{
	config.FlagFilter,
	config.FlagPublisher,
	config.FlagWorkers,
	config.FlagQueueSize,
	config.FlagBrokers,
	config.FlagTopic,
}

func NewEventsCmd() *cobra.Command {
	cmder := &eventsCommander{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: eventsShortDesc,
		Long:  eventsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Setup(cmd, eventsFlags...)
			if err != nil {
				return err
			}
			defer env.Close()

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), env)
		},
	}

	config.AddClientFlags(cmd)

	var (
		filter, publisher, brokers, topic string
		workers, queueSize                uint
	)
	config.AddStringFlag(cmd, config.Flags, config.FlagFilter, &filter)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublisher, &publisher)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &queueSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &topic)

	cmd.Flags().StringVar(&cmder.tee, "tee", "", "Append the raw SSE feed to this file")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print events as JSON lines")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Do not print events")

	return cmd
}

func (c *eventsCommander) run(ctx context.Context, env *cmdutil.Env) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(env.Config, env.Logger)
	if err != nil {
		return err
	}

	relayConfig := relay.Config{
		Client:    env.Client,
		Publisher: publisher,
		Filter:    env.Config.Events.Filter,
		Workers:   env.Config.Events.Workers,
		QueueSize: env.Config.Events.QueueSize,
		Logger:    env.Logger,
	}
	if !c.quiet {
		relayConfig.OnEvent = c.print
	}

	if c.tee != "" {
		f, err := os.OpenFile(c.tee, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = publisher.Close()
			return fmt.Errorf("opening tee file: %w", err)
		}
		defer f.Close()
		relayConfig.StreamOptions = append(relayConfig.StreamOptions, opencode.WithStreamTee(f))
	}

	r, err := relay.New(relayConfig)
	if err != nil {
		_ = publisher.Close()
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			env.Logger.Error("closing relay", zap.Error(err))
		}
	}()

	return r.Run(ctx)
}

// newPublisher creates the publisher named by events.publisher.
func newPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Publisher {
	case "", config.PublisherNop:
		return nop.NewPublisher(), nil

	case config.PublisherKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: kafka.ParseBrokers(cfg.Kafka.Brokers),
			Topic:   cfg.Kafka.Topic,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Info("relaying events to kafka",
			zap.String("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown events publisher %q (available: %s, %s)", cfg.Events.Publisher, config.PublisherNop, config.PublisherKafka)
	}
}

func (c *eventsCommander) print(event opencode.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.json {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintln(c.out, string(data))
		return
	}

	line := fmt.Sprintf("%s %s",
		cliui.DimStyle.Render(time.Now().Format("15:04:05")),
		cliui.EventStyle.Render(event.Type),
	)
	if id := event.SessionID(); id != "" {
		line += " " + cliui.IDStyle.Render(id)
	}
	if detail := describe(event); detail != "" {
		line += " " + detail
	}
	fmt.Fprintln(c.out, line)
}

// describe returns a short summary of the event payload for the event types
// where one is useful.
func describe(event opencode.Event) string {
	props, err := event.DecodeProperties()
	if err != nil {
		return ""
	}

	switch p := props.(type) {
	case *opencode.MessagePartUpdatedProps:
		return cliui.DimStyle.Render(p.Part.Type)
	case *opencode.MessageUpdatedProps:
		return cliui.DimStyle.Render(p.Info.Role)
	case *opencode.SessionUpdatedProps:
		return cliui.ValueStyle.Render(p.Info.Title)
	case *opencode.SessionCreatedProps:
		return cliui.ValueStyle.Render(p.Info.Title)
	case *opencode.TuiPromptAppendProps:
		return cliui.ValueStyle.Render(p.Text)
	case *opencode.TuiCommandExecuteProps:
		return cliui.ValueStyle.Render(p.Command)
	case *opencode.FileEditedProps:
		return cliui.ValueStyle.Render(p.File)
	case *opencode.SessionErrorProps:
		if p.Error != nil {
			return cliui.FailMark + " " + p.Error.Error()
		}
	}
	return ""
}
