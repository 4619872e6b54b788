package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// CurrentSession is the session selected with "ocgo session use" or created
// by "ocgo chat". Chat requests default to its provider and model.
type CurrentSession struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	ProviderID string `json:"providerID,omitempty"`
	ModelID    string `json:"modelID,omitempty"`
}

// LoadCurrentSession loads the current session from a target .ocgo/session.json.
// Returns nil, nil if no session has been selected.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadCurrentSession(overrideDir string) (*CurrentSession, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &CurrentSession{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	if state.ID == "" {
		return nil, errors.New("session state has no id")
	}

	return state, nil
}

// SaveCurrentSession persists the current session to a target .ocgo/session.json.
func (m *Manager) SaveCurrentSession(state *CurrentSession, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}
	if state.ID == "" {
		return errors.New("cannot save session state without an id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearCurrentSession removes the session state file so the next chat
// creates a new session. Returns nil if the file doesn't exist.
func (m *Manager) ClearCurrentSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
