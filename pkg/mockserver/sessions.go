package mockserver

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
	"github.com/papercomputeco/opencode-go/pkg/utils"
)

const (
	// sessionVersion is reported as the version of every session.
	sessionVersion = "mock"

	defaultTitlePrefix = "New session - "
	maxTitleLen        = 50
	shareURLPrefix     = "https://opencode.ai/s/"
)

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	now := nowMillis()
	session := opencode.Session{
		ID:      newID("ses"),
		Time:    opencode.SessionTime{Created: now, Updated: now},
		Title:   defaultTitlePrefix + time.UnixMilli(int64(now)).UTC().Format(time.RFC3339),
		Version: sessionVersion,
	}
	s.store.createSession(session)

	s.publish(opencode.EventSessionCreated, opencode.SessionCreatedProps{Info: session})
	return c.JSON(session)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	return c.JSON(s.store.listSessions())
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	session, ok := s.store.deleteSession(id)
	if !ok {
		return sessionNotFound(c, id)
	}

	s.publish(opencode.EventSessionDeleted, opencode.SessionDeletedProps{Info: session})
	return c.JSON(true)
}

// handleAbortSession succeeds for any known session. Replies are produced
// synchronously, so there is never a generation to stop.
func (s *Server) handleAbortSession(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	if _, ok := s.store.getSession(id); !ok {
		return sessionNotFound(c, id)
	}
	return c.JSON(true)
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	messages, ok := s.store.listMessages(id)
	if !ok {
		return sessionNotFound(c, id)
	}
	return c.JSON(messages)
}

// handleChat records the user message and answers with an assistant message
// that echoes the text parts back. Every message and part is published as
// it is created, followed by session.idle.
func (s *Server) handleChat(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	if _, ok := s.store.getSession(id); !ok {
		return sessionNotFound(c, id)
	}

	var params opencode.ChatParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}
	if params.ProviderID == "" || params.ModelID == "" {
		return fail(c, fiber.StatusBadRequest, "providerID and modelID are required")
	}
	if len(params.Parts) == 0 {
		return fail(c, fiber.StatusBadRequest, "at least one part is required")
	}

	user, texts, err := userMessage(id, params)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "%v", err)
	}

	prompt := strings.Join(texts, "\n")
	reply, assistant, err := assistantMessage(id, params, s.config.Root, prompt)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "building reply: %v", err)
	}

	s.store.appendMessages(id, user, assistant)
	s.publishMessage(user)
	s.publishMessage(assistant)

	session, _ := s.store.updateSession(id, func(session *opencode.Session) {
		if strings.HasPrefix(session.Title, defaultTitlePrefix) && prompt != "" {
			session.Title = utils.Truncate(firstLine(prompt), maxTitleLen)
		}
	})
	s.publish(opencode.EventSessionUpdated, opencode.SessionUpdatedProps{Info: session})
	s.publish(opencode.EventSessionIdle, opencode.SessionIdleProps{SessionID: id})

	return c.JSON(reply)
}

func (s *Server) publishMessage(msg opencode.MessageWithParts) {
	s.publish(opencode.EventMessageUpdated, opencode.MessageUpdatedProps{Info: msg.Info})
	for _, part := range msg.Parts {
		s.publish(opencode.EventMessagePartUpdated, opencode.MessagePartUpdatedProps{Part: part})
	}
}

// handleInitSession accepts the request without writing anything to disk.
func (s *Server) handleInitSession(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	if _, ok := s.store.getSession(id); !ok {
		return sessionNotFound(c, id)
	}

	var params opencode.InitParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}
	if params.MessageID == "" || params.ProviderID == "" || params.ModelID == "" {
		return fail(c, fiber.StatusBadRequest, "messageID, providerID and modelID are required")
	}

	return c.JSON(true)
}

func (s *Server) handleRevert(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	if _, ok := s.store.getSession(id); !ok {
		return sessionNotFound(c, id)
	}

	var params opencode.RevertParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}
	if !s.store.hasMessage(id, params.MessageID) {
		return fail(c, fiber.StatusNotFound, "message not found: %s", params.MessageID)
	}

	return s.updateAndRespond(c, id, func(session *opencode.Session) {
		session.Revert = &opencode.SessionRevert{MessageID: params.MessageID, PartID: params.PartID}
	})
}

func (s *Server) handleUnrevert(c *fiber.Ctx) error {
	return s.updateAndRespond(c, pathParam(c, "id"), func(session *opencode.Session) {
		session.Revert = nil
	})
}

func (s *Server) handleShare(c *fiber.Ctx) error {
	return s.updateAndRespond(c, pathParam(c, "id"), func(session *opencode.Session) {
		session.Share = &opencode.SessionShare{URL: shareURLPrefix + strings.TrimPrefix(session.ID, "ses_")}
	})
}

func (s *Server) handleUnshare(c *fiber.Ctx) error {
	return s.updateAndRespond(c, pathParam(c, "id"), func(session *opencode.Session) {
		session.Share = nil
	})
}

// handleSummarize publishes session.compacted without altering history.
func (s *Server) handleSummarize(c *fiber.Ctx) error {
	id := pathParam(c, "id")
	if _, ok := s.store.getSession(id); !ok {
		return sessionNotFound(c, id)
	}

	var params opencode.SummarizeParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: %v", err)
	}
	if params.ProviderID == "" || params.ModelID == "" {
		return fail(c, fiber.StatusBadRequest, "providerID and modelID are required")
	}

	s.publish(opencode.EventSessionCompacted, opencode.SessionCompactedProps{SessionID: id})
	return c.JSON(true)
}

// updateAndRespond applies fn to session id, publishes session.updated and
// writes the updated session.
func (s *Server) updateAndRespond(c *fiber.Ctx, id string, fn func(*opencode.Session)) error {
	session, ok := s.store.updateSession(id, fn)
	if !ok {
		return sessionNotFound(c, id)
	}

	s.publish(opencode.EventSessionUpdated, opencode.SessionUpdatedProps{Info: session})
	return c.JSON(session)
}

func sessionNotFound(c *fiber.Ctx, id string) error {
	return fail(c, fiber.StatusNotFound, "session not found: %s", id)
}

// userMessage converts the chat input into a stored user message and
// returns the text of its text parts.
func userMessage(sessionID string, params opencode.ChatParams) (opencode.MessageWithParts, []string, error) {
	messageID := params.MessageID
	if messageID == "" {
		messageID = newID("msg")
	}

	info, err := opencode.NewUserMessage(opencode.UserMessage{
		ID:        messageID,
		SessionID: sessionID,
		Time:      opencode.UserMessageTime{Created: nowMillis()},
	})
	if err != nil {
		return opencode.MessageWithParts{}, nil, err
	}

	var texts []string
	parts := make([]opencode.Part, 0, len(params.Parts))
	for _, in := range params.Parts {
		part, err := inputPart(in, sessionID, messageID)
		if err != nil {
			return opencode.MessageWithParts{}, nil, err
		}
		if in.Text != nil {
			texts = append(texts, in.Text.Text)
		}
		parts = append(parts, part)
	}

	return opencode.MessageWithParts{Info: info, Parts: parts}, texts, nil
}

func inputPart(in opencode.PartInput, sessionID, messageID string) (opencode.Part, error) {
	switch {
	case in.Text != nil:
		return opencode.NewTextPart(opencode.TextPart{
			ID:        idOrNew(in.Text.ID, "prt"),
			MessageID: messageID,
			SessionID: sessionID,
			Text:      in.Text.Text,
			Synthetic: in.Text.Synthetic,
		})
	case in.File != nil:
		return opencode.NewPart(opencode.PartTypeFile, opencode.FilePart{
			ID:        idOrNew(in.File.ID, "prt"),
			MessageID: messageID,
			Mime:      in.File.Mime,
			SessionID: sessionID,
			URL:       in.File.URL,
			Filename:  in.File.Filename,
			Source:    in.File.Source,
		})
	default:
		return opencode.Part{}, errors.New("part input has no body")
	}
}

// assistantMessage builds the echo reply: a step-start part, a text part
// holding prompt, and a step-finish part with the token counts.
func assistantMessage(sessionID string, params opencode.ChatParams, root, prompt string) (opencode.AssistantMessage, opencode.MessageWithParts, error) {
	messageID := newID("msg")
	created := nowMillis()
	completed := nowMillis()

	words := uint64(len(strings.Fields(prompt)))
	tokens := opencode.AssistantMessageTokens{Input: words, Output: words}

	mode := params.Mode
	if mode == "" {
		mode = "build"
	}

	reply := opencode.AssistantMessage{
		ID:         messageID,
		Mode:       mode,
		ModelID:    params.ModelID,
		Path:       opencode.AssistantMessagePath{Cwd: root, Root: root},
		ProviderID: params.ProviderID,
		SessionID:  sessionID,
		System:     []string{},
		Time:       opencode.AssistantMessageTime{Created: created, Completed: &completed},
		Tokens:     tokens,
	}
	if params.System != "" {
		reply.System = []string{params.System}
	}

	info, err := opencode.NewAssistantMessage(reply)
	if err != nil {
		return reply, opencode.MessageWithParts{}, err
	}

	stepStart, err := opencode.NewPart(opencode.PartTypeStepStart, opencode.StepStartPart{
		ID: newID("prt"), MessageID: messageID, SessionID: sessionID,
	})
	if err != nil {
		return reply, opencode.MessageWithParts{}, err
	}

	text, err := opencode.NewTextPart(opencode.TextPart{
		ID:        newID("prt"),
		MessageID: messageID,
		SessionID: sessionID,
		Text:      prompt,
		Time:      &opencode.TextPartTime{Start: created, End: &completed},
	})
	if err != nil {
		return reply, opencode.MessageWithParts{}, err
	}

	stepFinish, err := opencode.NewPart(opencode.PartTypeStepFinish, opencode.StepFinishPart{
		ID: newID("prt"), MessageID: messageID, SessionID: sessionID, Tokens: tokens,
	})
	if err != nil {
		return reply, opencode.MessageWithParts{}, err
	}

	return reply, opencode.MessageWithParts{
		Info:  info,
		Parts: []opencode.Part{stepStart, text, stepFinish},
	}, nil
}

func idOrNew(id, prefix string) string {
	if id != "" {
		return id
	}
	return newID(prefix)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
