// Package session remembers where the viewer was in each file between runs.
// Only view state is kept; highlighting is always recomputed.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileState is the saved view of one file.
type FileState struct {
	Cursor int    `json:"cursor"`
	Lang   string `json:"lang,omitempty"`
}

type state struct {
	Files     map[string]FileState `json:"files"`
	LastSaved time.Time            `json:"last_saved"`
}

// Manager loads the session file once and writes it back on Save.
type Manager struct {
	mu    sync.RWMutex
	path  string
	state state
	dirty bool
}

// Open loads the session stored at path. A missing or unreadable file
// yields an empty session.
func Open(path string) *Manager {
	m := &Manager{path: path, state: state{Files: make(map[string]FileState)}}
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil || st.Files == nil {
		return m
	}
	m.state = st
	return m
}

// Path returns the default session file: $QCOLOR_STATE_HOME/session.json,
// else qcolor/session.json under $XDG_STATE_HOME or ~/.local/state.
func Path() (string, error) {
	if v := os.Getenv("QCOLOR_STATE_HOME"); v != "" {
		return filepath.Join(v, "session.json"), nil
	}
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "qcolor", "session.json"), nil
}

func (m *Manager) File(absPath string) (FileState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.state.Files[absPath]
	return st, ok
}

func (m *Manager) SetFile(absPath string, st FileState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.state.Files[absPath]; ok && cur == st {
		return
	}
	m.state.Files[absPath] = st
	m.dirty = true
}

// Save writes the session if it changed since the last save.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}

	m.state.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return err
	}
	m.dirty = false
	return nil
}
