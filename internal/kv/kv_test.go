package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/notice"
)

type payload struct {
	IDs  []int  `json:"ids"`
	Note string `json:"note"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state"))

	_, err := store.Get(KeyWishlist)
	require.ErrorIs(t, err, ErrNotFound)

	in := payload{IDs: []int{3, 1, 2}, Note: "ünïcode"}
	require.NoError(t, SaveJSON(store, KeyWishlist, in))

	var out payload
	require.NoError(t, LoadJSON(store, KeyWishlist, &out))
	assert.Equal(t, in, out)

	first, err := store.Get(KeyWishlist)
	require.NoError(t, err)
	require.NoError(t, SaveJSON(store, KeyWishlist, out))
	second, err := store.Get(KeyWishlist)
	require.NoError(t, err)
	assert.Equal(t, first, second, "save(load()) must not change the stored bytes")

	require.NoError(t, store.Delete(KeyWishlist))
	require.NoError(t, store.Delete(KeyWishlist))
	_, err = store.Get(KeyWishlist)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())
	assert.Error(t, store.Put("../escape", []byte("x")))
	_, err := store.Get("a/b")
	assert.Error(t, err)
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	store := NewMemoryStore()
	blob := []byte(`{"ids":[1]}`)
	require.NoError(t, store.Put("k", blob))
	blob[2] = 'X'
	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, `{"ids":[1]}`, string(got))
}

type failingStore struct {
	*MemoryStore
	putErr error
}

func (f *failingStore) Put(string, []byte) error { return f.putErr }

func TestBindingDegradesOnCorruptData(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(KeyWishlist, []byte("{not json")))
	board := notice.NewMemory()

	var out payload
	loaded := Bind(store, KeyWishlist, board).Load(&out)
	assert.False(t, loaded)
	latest, ok := board.Latest()
	require.True(t, ok)
	assert.Equal(t, KeyWishlist, latest.Source)
}

func TestBindingStopsWritingAfterFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), putErr: errors.New("read-only")}
	var reported []error
	reporter := reporterFunc(func(_ string, err error) { reported = append(reported, err) })

	b := Bind(store, KeyPurchaseHistory, reporter)
	b.Save(payload{})
	b.Save(payload{})
	assert.True(t, b.Degraded())
	require.Len(t, reported, 1)
	assert.True(t, apperr.IsPersistence(reported[0]))
}

func TestBindingWithoutStoreIsMemoryOnly(t *testing.T) {
	b := Bind(nil, KeyCart, nil)
	var out payload
	assert.False(t, b.Load(&out))
	b.Save(out)
	assert.False(t, b.Degraded())
}

func TestFileStoreUnreadableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "state")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))
	store := NewFileStore(blocker)
	assert.Error(t, store.Put(KeyCart, []byte("{}")))
}

type reporterFunc func(string, error)

func (f reporterFunc) Report(source string, err error) { f(source, err) }
