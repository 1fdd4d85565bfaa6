package blobstore

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// ErrInvalidAlias is returned when an alias fails the format check.
var ErrInvalidAlias = fmt.Errorf("blobstore: alias must match %s", aliasPattern.String())

// ErrAliasTaken is returned when an alias is already registered within
// the same group.
var ErrAliasTaken = fmt.Errorf("blobstore: alias already registered in this group")

// AliasIndex is a per-group bijection between human-chosen aliases and
// blob GUIDs, persisted as the "aliases" entry of each blob's extra
// metadata so it survives a restart without its own file.
type AliasIndex struct {
	store   *Store
	byGroup map[string]map[string]string // group -> alias -> guid
}

// NewAliasIndex builds an index from store's current catalogue,
// reading each blob's extra.aliases.
func NewAliasIndex(store *Store) *AliasIndex {
	idx := &AliasIndex{store: store, byGroup: map[string]map[string]string{}}

	store.mu.Lock()
	defer store.mu.Unlock()
	for guid, md := range store.meta {
		for _, alias := range extractAliases(md.Extra) {
			idx.put(md.Group, alias, guid)
		}
	}
	return idx
}

func extractAliases(extra map[string]any) []string {
	raw, ok := extra["aliases"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (idx *AliasIndex) put(group, alias, guid string) {
	m, ok := idx.byGroup[group]
	if !ok {
		m = map[string]string{}
		idx.byGroup[group] = m
	}
	m[alias] = guid
}

// Register binds alias to guid within group. It fails if alias is
// malformed or already taken in that group.
func (idx *AliasIndex) Register(alias, guid, group string) error {
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}

	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()

	if m, ok := idx.byGroup[group]; ok {
		if existing, taken := m[alias]; taken && existing != guid {
			return ErrAliasTaken
		}
	}

	md, ok := idx.store.meta[guid]
	if !ok {
		return ErrNotFound
	}
	aliases := extractAliases(md.Extra)
	for _, a := range aliases {
		if a == alias {
			idx.put(group, alias, guid)
			return nil
		}
	}
	if md.Extra == nil {
		md.Extra = map[string]any{}
	}
	md.Extra["aliases"] = append(toAnySlice(aliases), alias)
	idx.store.meta[guid] = md
	if err := idx.store.saveMetadataLocked(); err != nil {
		return err
	}
	idx.put(group, alias, guid)
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Unregister removes alias from group if present. It is idempotent.
func (idx *AliasIndex) Unregister(alias, group string) error {
	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()

	m, ok := idx.byGroup[group]
	if !ok {
		return nil
	}
	guid, ok := m[alias]
	if !ok {
		return nil
	}
	delete(m, alias)

	md, ok := idx.store.meta[guid]
	if !ok {
		return nil
	}
	remaining := make([]string, 0)
	for _, a := range extractAliases(md.Extra) {
		if a != alias {
			remaining = append(remaining, a)
		}
	}
	if md.Extra == nil {
		md.Extra = map[string]any{}
	}
	md.Extra["aliases"] = toAnySlice(remaining)
	idx.store.meta[guid] = md
	return idx.store.saveMetadataLocked()
}

// Resolve returns the GUID identifier names, within group: identifier
// is first tried as a GUID, then as a registered alias. It returns
// false when neither resolves.
func (idx *AliasIndex) Resolve(identifier, group string) (string, bool) {
	if _, err := uuid.Parse(identifier); err == nil {
		return identifier, true
	}

	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()
	m, ok := idx.byGroup[group]
	if !ok {
		return "", false
	}
	guid, ok := m[identifier]
	return guid, ok
}
