package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DocumentRecord notes how a document was handled.
type DocumentRecord struct {
	Name      string    `json:"name"`
	SessionID string    `json:"session_id,omitempty"`
	Records   int       `json:"records"`
	At        time.Time `json:"at"`
}

// State tracks progress so an interrupted run can resume.
type State struct {
	StartedAt       time.Time                 `json:"started_at"`
	LastProcessedAt time.Time                 `json:"last_processed_at"`
	Processed       map[string]DocumentRecord `json:"processed"`
	Errors          []string                  `json:"errors"`

	path string
}

// LoadState reads the state file, or starts a new state when it does not
// exist yet.
func LoadState(path string) (*State, error) {
	p := ExpandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt: time.Now().UTC(),
				Processed: make(map[string]DocumentRecord),
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Processed == nil {
		s.Processed = make(map[string]DocumentRecord)
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *State) IsProcessed(docID string) bool {
	_, ok := s.Processed[docID]
	return ok
}

func (s *State) MarkProcessed(docID string, rec DocumentRecord) {
	if s.Processed == nil {
		s.Processed = make(map[string]DocumentRecord)
	}
	rec.At = time.Now().UTC()
	s.Processed[docID] = rec
}

func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
