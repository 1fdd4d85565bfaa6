// Package sessionstore implements the persistence layer for document
// composition sessions: one JSON file per session under a base
// directory, named "{session_id}.json".
package sessionstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docsmith/docsmith/internal/docmodel"
)

// Store is file-backed session persistence. A single mutex serializes
// writes; reads and deletes take no lock beyond what the filesystem
// itself provides, matching the reference implementation's
// one-file-per-session design where cross-session operations never
// contend with each other.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates dir (if needed) and returns a Store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Save persists session as a single JSON document, atomically replacing
// any prior version via a temp-file-plus-rename.
func (s *Store) Save(session *docmodel.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(session.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the session for sessionID. It returns (nil, nil) when no
// file exists, so callers distinguish "not found" from an I/O error.
func (s *Store) Load(sessionID string) (*docmodel.Session, error) {
	raw, err := os.ReadFile(s.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session docmodel.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes sessionID's file if it exists. It does not error when
// the file is already absent.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// List returns every persisted session ID (file stems), sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}
