package opencode

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Message", func() {
	It("decodes an assistant message by role", func() {
		var m Message
		Expect(json.Unmarshal([]byte(`{
			"role": "assistant",
			"id": "msg_1",
			"sessionID": "ses_1",
			"cost": 0.25,
			"mode": "build",
			"modelID": "claude",
			"providerID": "anthropic",
			"path": {"cwd": "/w", "root": "/w"},
			"system": [],
			"time": {"created": 10, "completed": 12},
			"tokens": {"cache": {"read": 1, "write": 2}, "input": 3, "output": 4, "reasoning": 0},
			"error": {"name": "ProviderAuthError", "data": {"message": "bad key", "providerID": "anthropic"}}
		}`), &m)).To(Succeed())

		Expect(m.Role).To(Equal(RoleAssistant))
		Expect(m.ID()).To(Equal("msg_1"))
		Expect(m.SessionID()).To(Equal("ses_1"))

		a, err := m.Assistant()
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Cost).To(Equal(0.25))
		Expect(*a.Time.Completed).To(Equal(12.0))
		Expect(a.Error.Name).To(Equal(ErrorNameProviderAuth))
		Expect(a.Error.Message()).To(Equal("bad key"))
		Expect(a.Error.ProviderID()).To(Equal("anthropic"))
		Expect(a.Error.Error()).To(Equal("ProviderAuthError: bad key"))

		_, err = m.User()
		Expect(err).To(HaveOccurred())
	})

	It("round trips through the constructors", func() {
		m, err := NewUserMessage(UserMessage{ID: "msg_u", SessionID: "ses_1", Time: UserMessageTime{Created: 5}})
		Expect(err).NotTo(HaveOccurred())

		data, err := json.Marshal(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"role":"user","id":"msg_u","sessionID":"ses_1","time":{"created":5}}`))

		var back Message
		Expect(json.Unmarshal(data, &back)).To(Succeed())
		u, err := back.User()
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Time.Created).To(Equal(5.0))
	})
})

var _ = Describe("Part", func() {
	It("decodes a tool part with a completed state", func() {
		var p Part
		Expect(json.Unmarshal([]byte(`{
			"type": "tool",
			"id": "prt_1",
			"callID": "call_1",
			"messageID": "msg_1",
			"sessionID": "ses_1",
			"tool": "bash",
			"state": {
				"status": "completed",
				"input": {"command": "ls"},
				"metadata": {},
				"output": "main.go",
				"title": "ls",
				"time": {"start": 1, "end": 2}
			}
		}`), &p)).To(Succeed())

		Expect(p.Type).To(Equal(PartTypeTool))
		Expect(p.MessageID()).To(Equal("msg_1"))

		tool, err := p.Tool()
		Expect(err).NotTo(HaveOccurred())
		Expect(tool.State.Status).To(Equal(ToolStatusCompleted))

		done, err := tool.State.Completed()
		Expect(err).NotTo(HaveOccurred())
		Expect(done.Output).To(Equal("main.go"))
		Expect(string(done.Input)).To(MatchJSON(`{"command":"ls"}`))

		_, err = tool.State.Running()
		Expect(err).To(HaveOccurred())
	})

	It("keeps parts of unknown types verbatim", func() {
		raw := `{"type":"reasoning","id":"prt_9","messageID":"msg_1","sessionID":"ses_1","text":"hmm"}`

		var p Part
		Expect(json.Unmarshal([]byte(raw), &p)).To(Succeed())
		Expect(p.Type).To(Equal("reasoning"))
		Expect(p.SessionID()).To(Equal("ses_1"))

		_, err := p.Text()
		Expect(err).To(HaveOccurred())

		out, err := json.Marshal(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(raw))
	})

	It("decodes file sources", func() {
		var p Part
		Expect(json.Unmarshal([]byte(`{
			"type": "file", "id": "prt_2", "messageID": "m", "sessionID": "s",
			"mime": "text/x-go", "url": "file:///a.go",
			"source": {"type": "symbol", "kind": 12, "name": "main", "path": "a.go",
				"range": {"start": {"line": 1, "character": 0}, "end": {"line": 3, "character": 1}},
				"text": {"start": 0, "end": 4, "value": "main"}}
		}`), &p)).To(Succeed())

		file, err := p.File()
		Expect(err).NotTo(HaveOccurred())
		sym, err := file.Source.Symbol()
		Expect(err).NotTo(HaveOccurred())
		Expect(sym.Name).To(Equal("main"))
		Expect(sym.Range.End.Line).To(BeEquivalentTo(3))
	})
})

var _ = Describe("PartInput", func() {
	It("decodes by type", func() {
		var in []PartInput
		Expect(json.Unmarshal([]byte(`[{"type":"text","text":"hi"},{"type":"file","mime":"image/png","url":"data:,"}]`), &in)).To(Succeed())
		Expect(in[0].Text.Text).To(Equal("hi"))
		Expect(in[1].File.Mime).To(Equal("image/png"))
	})

	It("rejects unknown or mismatched inputs", func() {
		var in PartInput
		Expect(json.Unmarshal([]byte(`{"type":"agent"}`), &in)).NotTo(Succeed())

		_, err := json.Marshal(PartInput{Type: PartTypeText})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Event", func() {
	It("decodes properties by type", func() {
		ev := Event{
			Type:       EventMessagePartDelta,
			Properties: json.RawMessage(`{"sessionID":"s","messageID":"m","partID":"p","field":"text","delta":"lo"}`),
		}

		props, err := ev.DecodeProperties()
		Expect(err).NotTo(HaveOccurred())
		delta, ok := props.(*MessagePartDeltaProps)
		Expect(ok).To(BeTrue())
		Expect(delta.Delta).To(Equal("lo"))
		Expect(ev.SessionID()).To(Equal("s"))
	})

	It("has a properties type for every known event type", func() {
		for t := range eventProps {
			_, err := Event{Type: t, Properties: json.RawMessage(`{}`)}.DecodeProperties()
			Expect(err).NotTo(HaveOccurred(), t)
		}
		Expect(eventProps).To(HaveLen(43))
	})

	It("keeps open-ended payloads raw", func() {
		props, err := Event{Type: EventPermissionAsked, Properties: json.RawMessage(`{"id":"per_1","tool":"bash"}`)}.DecodeProperties()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(*props.(*json.RawMessage))).To(MatchJSON(`{"id":"per_1","tool":"bash"}`))
	})

	It("reports unknown types", func() {
		ev := Event{Type: "storage.write", Properties: json.RawMessage(`{"key":"x"}`)}
		_, err := ev.DecodeProperties()
		Expect(errors.Is(err, ErrUnknownEventType)).To(BeTrue())
		Expect(KnownEventType("storage.write")).To(BeFalse())
		Expect(string(ev.Properties)).To(Equal(`{"key":"x"}`))
	})

	It("finds the session of lifecycle, message and part events", func() {
		created, err := NewEvent(EventSessionCreated, SessionCreatedProps{Info: Session{ID: "ses_new"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(created.SessionID()).To(Equal("ses_new"))

		msg, err := NewUserMessage(UserMessage{ID: "msg_1", SessionID: "ses_msg"})
		Expect(err).NotTo(HaveOccurred())
		updated, err := NewEvent(EventMessageUpdated, MessageUpdatedProps{Info: msg})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.SessionID()).To(Equal("ses_msg"))

		part, err := NewTextPart(TextPart{ID: "prt_1", MessageID: "msg_1", SessionID: "ses_part", Text: "x"})
		Expect(err).NotTo(HaveOccurred())
		partEv, err := NewEvent(EventMessagePartUpdated, MessagePartUpdatedProps{Part: part})
		Expect(err).NotTo(HaveOccurred())
		Expect(partEv.SessionID()).To(Equal("ses_part"))

		pty, err := NewEvent(EventPtyCreated, PtyCreatedProps{Info: Pty{ID: "pty_1"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pty.SessionID()).To(BeEmpty())
	})

	It("decodes a session error event", func() {
		ev := Event{Type: EventSessionError, Properties: json.RawMessage(`{"sessionID":"s","error":{"name":"MessageAbortedError"}}`)}
		props, err := ev.DecodeProperties()
		Expect(err).NotTo(HaveOccurred())
		Expect(props.(*SessionErrorProps).Error.Name).To(Equal(ErrorNameMessageAborted))
		Expect(props.(*SessionErrorProps).Error.Error()).To(Equal("MessageAbortedError"))
	})
})
