package mockserver

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
	"github.com/papercomputeco/opencode-go/pkg/sse"
)

// handleEvents streams hub events as server-sent events. The first frame is
// always server.connected, sent after the subscription is registered.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	events, cancel := s.hub.Subscribe()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	pr, pw := io.Pipe()
	go s.streamEvents(pw, events, cancel)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// streamEvents writes events to pw until the subscription ends or the
// client goes away, which surfaces as a write error on the pipe.
func (s *Server) streamEvents(pw *io.PipeWriter, events <-chan opencode.Event, cancel func()) {
	defer cancel()
	defer pw.Close()

	connected, err := opencode.NewEvent(opencode.EventServerConnected, opencode.EmptyProps{})
	if err == nil {
		err = writeEvent(pw, connected)
	}
	if err != nil {
		s.logger.Debug("event stream closed", zap.Error(err))
		return
	}

	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(pw, event); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment(pw, "heartbeat"); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}

func writeEvent(w io.Writer, event opencode.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return sse.Encode(w, sse.Event{Data: string(data)})
}
