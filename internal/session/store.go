package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	stateFileName   = "state.json"
	tempFilePattern = ".state-*.json.tmp"
	stateFileMode   = 0o600
)

// ErrNotFound is returned when no persisted record exists for a session id.
var ErrNotFound = errors.New("session not found")

// Store persists session records as one JSON file per session under a data
// directory. Writes are whole-record overwrites through a temp file and an
// atomic rename, so a crash mid-write leaves either the old or the new
// complete record, never a mix.
type Store struct {
	dir string
}

// Summary is the listing view of a persisted session.
type Summary struct {
	ID        string `json:"session_id"`
	CreatedAt string `json:"created_at"`
	Stage     Stage  `json:"stage"`
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// SessionDir returns the directory holding a session's record and artifacts.
func (st *Store) SessionDir(id string) string {
	return filepath.Join(st.dir, id)
}

// Save durably writes the full session record. It must be called after
// every mutation and before the pipeline depends on the new state.
func (st *Store) Save(s *Session) error {
	dir := st.SessionDir(s.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tempName := tempFile.Name()

	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to write temp record: %w", err)
	}
	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to chmod temp record: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp record: %w", err)
	}

	if err := os.Rename(tempName, filepath.Join(dir, stateFileName)); err != nil {
		return fmt.Errorf("failed to replace session record: %w", err)
	}
	cleanup = false

	return nil
}

// Load reads the persisted record for a session id.
func (st *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(st.SessionDir(id), stateFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session record %s: %w", id, err)
	}
	if s.Version > RecordVersion {
		return nil, fmt.Errorf("session record %s has unsupported version %d", id, s.Version)
	}
	s.normalize()

	return &s, nil
}

// List returns summaries of all persisted sessions, oldest first.
func (st *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s, err := st.Load(entry.Name())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:        s.ID,
			CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
			Stage:     s.Stage,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt < summaries[j].CreatedAt
	})
	return summaries, nil
}
