package mockserver

import (
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// shutdownTimeout bounds how long Close waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server is an in-memory opencode server.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
	hub    *Hub
	store  *store

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a mock server with the given configuration.
func NewServer(config Config, logger *zap.Logger) *Server {
	config = config.withDefaults()
	if config.Hostname == "" {
		config.Hostname, _ = os.Hostname()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
		hub:    NewHub(logger),
		store:  newStore(),
	}

	app.Get("/app", s.handleGetApp)
	app.Post("/app/init", s.handleInitApp)
	app.Post("/log", s.handleLog)
	app.Get("/mode", s.handleModes)
	app.Get("/config/providers", s.handleProviders)
	app.Get("/config", s.handleConfig)
	app.Get("/event", s.handleEvents)

	app.Get("/file/content", s.handleReadFile)
	app.Get("/file/status", s.handleFileStatus)
	app.Get("/file", s.handleListFiles)
	app.Get("/find/file", s.handleFindFiles)
	app.Get("/find/symbol", s.handleFindSymbols)
	app.Get("/find", s.handleFindText)

	app.Post("/session", s.handleCreateSession)
	app.Get("/session", s.handleListSessions)
	app.Delete("/session/:id", s.handleDeleteSession)
	app.Post("/session/:id/abort", s.handleAbortSession)
	app.Post("/session/:id/message", s.handleChat)
	app.Get("/session/:id/message", s.handleListMessages)
	app.Post("/session/:id/init", s.handleInitSession)
	app.Post("/session/:id/revert", s.handleRevert)
	app.Post("/session/:id/unrevert", s.handleUnrevert)
	app.Post("/session/:id/share", s.handleShare)
	app.Delete("/session/:id/share", s.handleUnshare)
	app.Post("/session/:id/summarize", s.handleSummarize)

	app.Post("/tui/append-prompt", s.handleAppendPrompt)
	app.Post("/tui/open-help", s.handleOpenHelp)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting mock opencode server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting mock opencode server",
		zap.String("listen", listener.Addr().String()),
	)
	return s.app.Listener(listener)
}

// Handler returns the server as a net/http handler. Responses are buffered,
// so it suits the request/response endpoints but not /event.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Hub returns the event hub, for publishing events the server would not
// produce on its own.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close ends all event streams and shuts the server down. It is safe to
// call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.hub.Close()
		s.closeErr = s.app.ShutdownWithTimeout(shutdownTimeout)
	})
	return s.closeErr
}

// publish encodes props as an event of type t and sends it to subscribers.
func (s *Server) publish(t string, props any) {
	event, err := opencode.NewEvent(t, props)
	if err != nil {
		s.logger.Error("encoding event", zap.String("type", t), zap.Error(err))
		return
	}
	s.hub.Publish(event)
}

// newID returns a prefixed random identifier such as "ses_4f1c...".
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
