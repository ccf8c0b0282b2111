package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoState is returned by StateStore.Load when nothing has been saved yet.
var ErrNoState = errors.New("no saved client state")

// State is what the client remembers between runs.
type State struct {
	CurrentSessionID string    `json:"current_session_id"`
	BackendURL       string    `json:"backend_url,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StateStore persists State locally.
type StateStore interface {
	Save(s *State) error
	Load() (*State, error) // ErrNoState if none exists
	Delete() error
}

type fileState struct {
	path string
}

// NewStateStore returns a StateStore under the XDG data directory:
// $XDG_DATA_HOME/syllabus/state.json or ~/.local/share/syllabus/state.json.
func NewStateStore() (StateStore, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &fileState{path: filepath.Join(dir, "state.json")}, nil
}

// DataDir is the client's XDG data directory.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "syllabus"), nil
}

// Save writes s through a temp file and a rename so readers never see a
// partial document.
func (f *fileState) Save(s *State) (err error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist client state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist client state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist client state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist client state: %w", err)
	}
	if err = os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to persist client state: %w", err)
	}
	return nil
}

func (f *fileState) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read client state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse client state: %w", err)
	}
	return &s, nil
}

func (f *fileState) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}
