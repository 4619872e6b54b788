package mockserver

import (
	"sync"
	"time"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// store holds sessions and their messages in memory. Sessions are returned
// by value; updates replace pointer fields rather than mutating them.
type store struct {
	mu          sync.RWMutex
	sessions    map[string]*opencode.Session
	order       []string
	messages    map[string][]opencode.MessageWithParts
	initialized *float64
}

func newStore() *store {
	return &store{
		sessions: make(map[string]*opencode.Session),
		messages: make(map[string][]opencode.MessageWithParts),
	}
}

func (s *store) createSession(session opencode.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = &session
	s.order = append(s.order, session.ID)
}

func (s *store) listSessions() []opencode.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]opencode.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.sessions[id])
	}
	return out
}

func (s *store) getSession(id string) (opencode.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return opencode.Session{}, false
	}
	return *session, true
}

// updateSession applies fn to the session and bumps its updated time.
func (s *store) updateSession(id string, fn func(*opencode.Session)) (opencode.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return opencode.Session{}, false
	}
	fn(session)
	session.Time.Updated = nowMillis()
	return *session, true
}

func (s *store) deleteSession(id string) (opencode.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return opencode.Session{}, false
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *session, true
}

func (s *store) appendMessages(id string, msgs ...opencode.MessageWithParts) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	s.messages[id] = append(s.messages[id], msgs...)
	return true
}

func (s *store) listMessages(id string) ([]opencode.MessageWithParts, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[id]; !ok {
		return nil, false
	}
	out := make([]opencode.MessageWithParts, len(s.messages[id]))
	copy(out, s.messages[id])
	return out, true
}

func (s *store) hasMessage(sessionID, messageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, msg := range s.messages[sessionID] {
		if msg.Info.ID() == messageID {
			return true
		}
	}
	return false
}

func (s *store) markInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized == nil {
		now := nowMillis()
		s.initialized = &now
	}
}

func (s *store) initializedAt() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// nowMillis returns the current time in milliseconds since the epoch, the
// unit the opencode API uses for timestamps.
func nowMillis() float64 {
	return float64(time.Now().UnixMilli())
}
