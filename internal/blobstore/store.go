// Package blobstore implements the content-addressed file storage
// shared by rendered documents and plot images: a directory of
// {guid}.{ext} files plus a single JSON metadata catalogue that is the
// source of truth for group, format, creation time, and any extra tags.
package blobstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a GUID has no file and no metadata.
var ErrNotFound = errors.New("blobstore: not found")

// ErrGroupMismatch is returned when the caller's group differs from the
// blob's recorded group. Callers decide how to surface this: as an
// indistinguishable not-found to most tools, or as an explicit
// access-denied on the one endpoint that is allowed to reveal it.
var ErrGroupMismatch = errors.New("blobstore: group mismatch")

// candidateExtensions are tried, in order, when resolving a GUID to a
// file whose format is unknown or whose metadata is missing.
var candidateExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "svg", "pdf", "md", "json"}

// Metadata is the catalogue entry for one blob.
type Metadata struct {
	Format    string         `json:"format"`
	Group     string         `json:"group"`
	Size      int64          `json:"size"`
	CreatedAt time.Time      `json:"created_at"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Store is a directory of content files plus its metadata catalogue.
// The mutex guards only the in-memory catalogue and its on-disk
// reflection; file reads/writes for blob content happen outside the
// critical section.
type Store struct {
	dir          string
	metadataPath string

	mu   sync.Mutex
	meta map[string]Metadata
}

// Open creates dir if needed and loads (or initializes) its metadata
// catalogue.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, metadataPath: filepath.Join(dir, "metadata.json"), meta: map[string]Metadata{}}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadLocked() error {
	raw, err := os.ReadFile(s.metadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		// A corrupt catalogue is treated the same as an empty one; a
		// purge pass will reconcile the files that survive on disk.
		return nil
	}
	s.meta = m
	return nil
}

// saveMetadataLocked writes the catalogue as a single JSON document.
// Caller must hold s.mu.
func (s *Store) saveMetadataLocked() error {
	raw, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.metadataPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.metadataPath)
}

func (s *Store) path(guid, format string) string {
	return filepath.Join(s.dir, guid+"."+strings.ToLower(format))
}

// Save writes data under a freshly minted GUID and records its
// metadata, returning the GUID.
func (s *Store) Save(data []byte, format, group string, extra map[string]any) (string, error) {
	guid := uuid.NewString()
	format = strings.ToLower(format)

	if err := os.WriteFile(s.path(guid, format), data, 0o644); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[guid] = Metadata{
		Format:    format,
		Group:     group,
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
		Extra:     extra,
	}
	if err := s.saveMetadataLocked(); err != nil {
		return "", err
	}
	return guid, nil
}

// resolveExtensions returns the extensions to try for guid, preferring
// the metadata-recorded format when one is on file.
func (s *Store) resolveExtensions(guid string) []string {
	if md, ok := s.meta[guid]; ok && md.Format != "" {
		preferred := []string{md.Format}
		for _, ext := range candidateExtensions {
			if ext != md.Format {
				preferred = append(preferred, ext)
			}
		}
		return preferred
	}
	return candidateExtensions
}

// Get returns the blob's bytes and metadata for guid. If group is
// non-empty and the blob's recorded group differs, ErrGroupMismatch is
// returned instead of the content.
func (s *Store) Get(guid, group string) ([]byte, Metadata, error) {
	if _, err := uuid.Parse(guid); err != nil {
		return nil, Metadata{}, ErrNotFound
	}

	s.mu.Lock()
	md, known := s.meta[guid]
	exts := s.resolveExtensions(guid)
	s.mu.Unlock()

	if known && group != "" && md.Group != group {
		return nil, Metadata{}, ErrGroupMismatch
	}

	for _, ext := range exts {
		data, err := os.ReadFile(s.path(guid, ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, Metadata{}, err
		}
		return data, md, nil
	}
	return nil, Metadata{}, ErrNotFound
}

// Delete removes guid's file and metadata. It returns ErrGroupMismatch
// under the same rule as Get, and reports whether anything was deleted.
func (s *Store) Delete(guid, group string) (bool, error) {
	if _, err := uuid.Parse(guid); err != nil {
		return false, nil
	}

	s.mu.Lock()
	md, known := s.meta[guid]
	exts := s.resolveExtensions(guid)
	s.mu.Unlock()

	if known && group != "" && md.Group != group {
		return false, ErrGroupMismatch
	}

	deleted := false
	for _, ext := range exts {
		if err := os.Remove(s.path(guid, ext)); err == nil {
			deleted = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[guid]; ok {
		delete(s.meta, guid)
		if err := s.saveMetadataLocked(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// List returns every GUID visible to group (or every GUID when group is
// empty), sorted for a stable listing.
func (s *Store) List(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.meta))
	for guid, md := range s.meta {
		if group == "" || md.Group == group {
			out = append(out, guid)
		}
	}
	sort.Strings(out)
	return out
}

// Purge deletes blobs whose CreatedAt predates now-ageDays (ageDays==0
// deletes everything in scope), then reconciles orphaned metadata
// entries (no surviving file) and orphaned files (no metadata entry) in
// the same pass.
func (s *Store) Purge(ageDays int, group string) (int, error) {
	var cutoff time.Time
	hasCutoff := ageDays > 0
	if hasCutoff {
		cutoff = time.Now().UTC().AddDate(0, 0, -ageDays)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for guid, md := range s.meta {
		if group != "" && md.Group != group {
			continue
		}
		if hasCutoff && !md.CreatedAt.Before(cutoff) {
			continue
		}
		for _, ext := range s.resolveExtensions(guid) {
			os.Remove(s.path(guid, ext))
		}
		delete(s.meta, guid)
		deleted++
	}

	deleted += s.reconcileOrphansLocked(group)

	if deleted > 0 {
		if err := s.saveMetadataLocked(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// reconcileOrphansLocked drops metadata entries whose file no longer
// exists and removes files with no corresponding metadata entry when
// they parse as a GUID; caller must hold s.mu. Such a file carries no
// group, so when group is non-empty orphaned files are left in place
// and only that group's orphaned metadata entries are dropped.
func (s *Store) reconcileOrphansLocked(group string) int {
	reconciled := 0
	for guid, md := range s.meta {
		if group != "" && md.Group != group {
			continue
		}
		if !s.anyFileExistsLocked(guid) {
			delete(s.meta, guid)
			reconciled++
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return reconciled
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "metadata.json" || name == "metadata.json.tmp" {
			continue
		}
		ext := filepath.Ext(name)
		guid := strings.TrimSuffix(name, ext)
		if _, err := uuid.Parse(guid); err != nil {
			continue
		}
		if group != "" {
			if md, ok := s.meta[guid]; !ok || md.Group != group {
				continue
			}
		}
		if _, ok := s.meta[guid]; !ok {
			os.Remove(filepath.Join(s.dir, name))
			reconciled++
		}
	}
	return reconciled
}

func (s *Store) anyFileExistsLocked(guid string) bool {
	for _, ext := range candidateExtensions {
		if _, err := os.Stat(s.path(guid, ext)); err == nil {
			return true
		}
	}
	return false
}

// lockFileName is the stale-lock file PruneSize uses to prevent two
// concurrent prune passes from racing each other's deletions.
const lockFileName = ".prune.lock"

const staleLockAge = 5 * time.Minute

// PruneSize deletes blobs in oldest-first order, scoped to group (or
// every group when empty), until the total size is at or under
// maxMB. A stale-lock file guards against concurrent prune runs; a lock
// older than staleLockAge is treated as abandoned and reclaimed.
func (s *Store) PruneSize(maxMB int, group string) (int, error) {
	lockPath := filepath.Join(s.dir, lockFileName)
	acquired, err := s.acquireLock(lockPath)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, errors.New("blobstore: prune already in progress")
	}
	defer os.Remove(lockPath)

	maxBytes := int64(maxMB) * 1024 * 1024

	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		guid string
		md   Metadata
	}
	var entries []entry
	var total int64
	for guid, md := range s.meta {
		if group != "" && md.Group != group {
			continue
		}
		entries = append(entries, entry{guid, md})
		total += md.Size
	}
	if total <= maxBytes {
		return 0, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].md.CreatedAt.Before(entries[j].md.CreatedAt) })

	deleted := 0
	for _, e := range entries {
		if total <= maxBytes {
			break
		}
		for _, ext := range s.resolveExtensions(e.guid) {
			os.Remove(s.path(e.guid, ext))
		}
		delete(s.meta, e.guid)
		total -= e.md.Size
		deleted++
	}

	if deleted > 0 {
		if err := s.saveMetadataLocked(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *Store) acquireLock(lockPath string) (bool, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		f.Close()
		return true, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return false, err
	}
	info, statErr := os.Stat(lockPath)
	if statErr != nil {
		return false, nil
	}
	if time.Since(info.ModTime()) < staleLockAge {
		return false, nil
	}
	if rmErr := os.Remove(lockPath); rmErr != nil {
		return false, nil
	}
	return s.acquireLock(lockPath)
}
