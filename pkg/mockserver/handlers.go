package mockserver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// Identifiers of the single provider and model the mock server offers.
const (
	ProviderID = "mock"
	ModelID    = "echo"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

func fail(c *fiber.Ctx, status int, format string, args ...any) error {
	return c.Status(status).JSON(ErrorResponse{Message: fmt.Sprintf(format, args...)})
}

// handleGetApp describes the mock instance.
func (s *Server) handleGetApp(c *fiber.Ctx) error {
	root := s.config.Root
	return c.JSON(opencode.App{
		Git:      s.config.Git,
		Hostname: s.config.Hostname,
		Path: opencode.AppPath{
			Config: filepath.Join(root, ".opencode"),
			Cwd:    root,
			Data:   filepath.Join(root, ".opencode", "data"),
			Root:   root,
			State:  filepath.Join(root, ".opencode", "state"),
		},
		Time: opencode.AppTime{Initialized: s.store.initializedAt()},
	})
}

func (s *Server) handleInitApp(c *fiber.Ctx) error {
	s.store.markInitialized()
	return c.JSON(true)
}

// handleLog writes a client supplied entry to the server log.
func (s *Server) handleLog(c *fiber.Ctx) error {
	var params opencode.AppLogParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}

	fields := []zap.Field{zap.String("service", params.Service)}
	for key, value := range params.Extra {
		fields = append(fields, zap.ByteString(key, value))
	}

	switch params.Level {
	case opencode.LogLevelDebug:
		s.logger.Debug(params.Message, fields...)
	case opencode.LogLevelInfo:
		s.logger.Info(params.Message, fields...)
	case opencode.LogLevelWarn:
		s.logger.Warn(params.Message, fields...)
	case opencode.LogLevelError:
		s.logger.Error(params.Message, fields...)
	default:
		return fail(c, fiber.StatusBadRequest, "invalid log level %q", params.Level)
	}

	return c.JSON(true)
}

func (s *Server) handleModes(c *fiber.Ctx) error {
	return c.JSON([]opencode.Mode{
		{Name: "build", Tools: map[string]bool{}},
		{Name: "plan", Tools: map[string]bool{"write": false, "edit": false, "patch": false}},
	})
}

func (s *Server) handleProviders(c *fiber.Ctx) error {
	return c.JSON(opencode.AppProvidersResponse{
		Default: map[string]string{ProviderID: ModelID},
		Providers: []opencode.Provider{{
			ID:   ProviderID,
			Name: "Mock",
			Env:  []string{},
			Models: map[string]opencode.Model{
				ModelID: {
					ID:       ModelID,
					Name:     "Echo",
					Options:  map[string]json.RawMessage{},
					Limit:    opencode.ModelLimit{Context: 8192, Output: 4096},
					ToolCall: false,
				},
			},
		}},
	})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(opencode.Config{
		Model:    ProviderID + "/" + ModelID,
		Share:    opencode.ShareManual,
		Username: "mock",
	})
}

func (s *Server) handleAppendPrompt(c *fiber.Ctx) error {
	var params opencode.TuiAppendPromptParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}

	s.publish(opencode.EventTuiPromptAppend, opencode.TuiPromptAppendProps{Text: params.Text})
	return c.JSON(true)
}

func (s *Server) handleOpenHelp(c *fiber.Ctx) error {
	s.publish(opencode.EventTuiCommandExecute, opencode.TuiCommandExecuteProps{Command: "help.show"})
	return c.JSON(true)
}

// pathParam returns the unescaped route parameter name.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}
