package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"thoreinstein.com/crit/pkg/bootstrap"
	criterrors "thoreinstein.com/crit/pkg/errors"
)

const (
	// critDir is the directory within a repository where crit stores state.
	critDir = ".crit"
	// sessionFile holds the serialized State.
	sessionFile = "session.json"
	// historyFile holds the serialized command History.
	historyFile = "history.json"
)

// Store persists session state and command history as two flat JSON files
// in a state directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the state directory: <git root>/.crit when run inside
// a repository, so each repository keeps its own review session, otherwise
// ~/.local/state/crit.
func DefaultDir() string {
	if root, err := bootstrap.FindGitRoot(); err == nil && root != "" {
		return filepath.Join(root, critDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "state", "crit")
}

// Dir returns the store's state directory.
func (st *Store) Dir() string {
	return st.dir
}

// SessionPath returns the full path of the session file.
func (st *Store) SessionPath() string {
	return filepath.Join(st.dir, sessionFile)
}

// HistoryPath returns the full path of the history file.
func (st *Store) HistoryPath() string {
	return filepath.Join(st.dir, historyFile)
}

// SaveSession writes the session state to session.json.
//
// The file is created with restricted permissions (0600) since comment
// bodies may quote unreleased code.
func (st *Store) SaveSession(state *State) error {
	if state == nil {
		return criterrors.NewSessionError("save", "state is nil")
	}

	if err := os.MkdirAll(st.dir, 0700); err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.dir, "failed to create state directory", err)
	}

	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.SessionPath(), "failed to marshal session", err)
	}

	if err := os.WriteFile(st.SessionPath(), data, 0600); err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.SessionPath(), "failed to write session", err)
	}

	return nil
}

// LoadSession reads session.json. A missing file returns a fresh zero
// state, not an error; corrupt JSON returns a SessionError naming the file.
func (st *Store) LoadSession() (*State, error) {
	path := st.SessionPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, criterrors.NewSessionErrorWithCause("load", path, "failed to read session", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, criterrors.NewSessionErrorWithCause("load", path, "failed to parse session", err)
	}

	return &state, nil
}

// SaveHistory writes the command history to history.json.
func (st *Store) SaveHistory(h *History) error {
	if h == nil {
		return criterrors.NewSessionError("save", "history is nil")
	}

	if err := os.MkdirAll(st.dir, 0700); err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.dir, "failed to create state directory", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.HistoryPath(), "failed to marshal history", err)
	}

	if err := os.WriteFile(st.HistoryPath(), data, 0600); err != nil {
		return criterrors.NewSessionErrorWithCause("save", st.HistoryPath(), "failed to write history", err)
	}

	return nil
}

// LoadHistory reads history.json. A missing file returns an empty history
// bounded to max; corrupt JSON returns a SessionError naming the file.
func (st *Store) LoadHistory(max int) (*History, error) {
	path := st.HistoryPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewHistory(max), nil
		}
		return nil, criterrors.NewSessionErrorWithCause("load", path, "failed to read history", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, criterrors.NewSessionErrorWithCause("load", path, "failed to parse history", err)
	}

	// The configured bound wins over whatever was saved
	h.SetMax(max)

	return &h, nil
}

// Clear removes both state files. Missing files are not an error.
func (st *Store) Clear() error {
	for _, path := range []string{st.SessionPath(), st.HistoryPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return criterrors.NewSessionErrorWithCause("clear", path, "failed to remove", err)
		}
	}
	return nil
}
