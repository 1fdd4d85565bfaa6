package blobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveGetRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	guid, err := store.Save([]byte("hello"), "TXT", "finance", nil)
	require.NoError(t, err)

	data, md, err := store.Get(guid, "finance")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.Equal(t, "finance", md.Group)
	require.Equal(t, "txt", md.Format)
}

func TestGet_CrossGroupReturnsGroupMismatch(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	guid, err := store.Save([]byte("secret"), "txt", "finance", nil)
	require.NoError(t, err)

	_, _, err = store.Get(guid, "marketing")
	require.ErrorIs(t, err, ErrGroupMismatch)

	_, _, err = store.Get(guid, "")
	require.NoError(t, err)
}

func TestGet_UnknownGUIDNotFound(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get("00000000-0000-0000-0000-000000000000", "finance")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_CrossGroupRefused(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	guid, err := store.Save([]byte("x"), "txt", "finance", nil)
	require.NoError(t, err)

	_, err = store.Delete(guid, "marketing")
	require.ErrorIs(t, err, ErrGroupMismatch)

	ok, err := store.Delete(guid, "finance")
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = store.Get(guid, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_FiltersByGroup(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	a, _ := store.Save([]byte("a"), "txt", "finance", nil)
	_, _ = store.Save([]byte("b"), "txt", "marketing", nil)

	require.Equal(t, []string{a}, store.List("finance"))
	require.Len(t, store.List(""), 2)
}

func TestPurge_AgeBoundary(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	guid, err := store.Save([]byte("old"), "txt", "finance", nil)
	require.NoError(t, err)

	store.mu.Lock()
	md := store.meta[guid]
	md.CreatedAt = time.Now().UTC().AddDate(0, 0, -10)
	store.meta[guid] = md
	store.mu.Unlock()

	n, err := store.Purge(5, "finance")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, _, err = store.Get(guid, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPurge_WithinAgeSurvives(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	guid, err := store.Save([]byte("fresh"), "txt", "finance", nil)
	require.NoError(t, err)

	n, err := store.Purge(5, "finance")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, _, err = store.Get(guid, "finance")
	require.NoError(t, err)
}

func TestPruneSize_DeletesOldestFirst(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save(make([]byte, 1024*1024), "bin", "finance", nil)
	require.NoError(t, err)
	store.mu.Lock()
	md := store.meta[first]
	md.CreatedAt = time.Now().UTC().Add(-time.Hour)
	store.meta[first] = md
	store.mu.Unlock()

	second, err := store.Save(make([]byte, 1024*1024), "bin", "finance", nil)
	require.NoError(t, err)

	n, err := store.PruneSize(1, "finance")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, _, err = store.Get(first, "")
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = store.Get(second, "")
	require.NoError(t, err)
}

func TestAliasIndex_RegisterResolveUnregister(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	idx := NewAliasIndex(store)

	guid, err := store.Save([]byte("x"), "txt", "finance", nil)
	require.NoError(t, err)

	require.NoError(t, idx.Register("weekly-digest", guid, "finance"))

	resolved, ok := idx.Resolve("weekly-digest", "finance")
	require.True(t, ok)
	require.Equal(t, guid, resolved)

	_, ok = idx.Resolve("weekly-digest", "marketing")
	require.False(t, ok)

	require.NoError(t, idx.Unregister("weekly-digest", "finance"))
	_, ok = idx.Resolve("weekly-digest", "finance")
	require.False(t, ok)

	require.NoError(t, idx.Unregister("weekly-digest", "finance"))
}

func TestAliasIndex_RejectsMalformedAlias(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	idx := NewAliasIndex(store)

	guid, err := store.Save([]byte("x"), "txt", "finance", nil)
	require.NoError(t, err)

	require.ErrorIs(t, idx.Register("a", guid, "finance"), ErrInvalidAlias)
	require.ErrorIs(t, idx.Register("bad!alias", guid, "finance"), ErrInvalidAlias)
}

func TestAliasIndex_RejectsDuplicateInGroup(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	idx := NewAliasIndex(store)

	first, _ := store.Save([]byte("a"), "txt", "finance", nil)
	second, _ := store.Save([]byte("b"), "txt", "finance", nil)

	require.NoError(t, idx.Register("weekly", first, "finance"))
	require.ErrorIs(t, idx.Register("weekly", second, "finance"), ErrAliasTaken)
}

func TestPlotStore_SaveListGetDataURI(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	plots := NewPlotStore(store)

	guid, err := plots.SaveImage([]byte{0x89, 0x50, 0x4e, 0x47}, "png", "finance", "q3-chart")
	require.NoError(t, err)

	require.Equal(t, []string{guid}, plots.ListImages("finance"))

	uri, err := plots.GetImageAsDataURI("q3-chart", "finance")
	require.NoError(t, err)
	require.Contains(t, uri, "data:image/png;base64,")

	_, _, err = plots.GetImage("q3-chart", "marketing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlotStore_DoesNotLeakOrdinaryDocuments(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	plots := NewPlotStore(store)

	_, err = store.Save([]byte("<html></html>"), "html", "finance", map[string]any{"artefact_type": "document"})
	require.NoError(t, err)

	require.Empty(t, plots.ListImages("finance"))
}
