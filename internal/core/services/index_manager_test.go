package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/adapters/driven/vector/flat"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// saveFlatIndex writes a small flat index built for the given model and dims.
func saveFlatIndex(t *testing.T, path, model string, dims int) domain.IndexManifest {
	t.Helper()

	items := make([]domain.IndexItem, 3)
	for i := range items {
		vec := make([]float32, dims)
		vec[i%dims] = 1
		items[i] = domain.IndexItem{
			Chunk:  testHit(i+1, "c"+string(rune('1'+i)), "Credit card", "late fee", 0).Chunk,
			Vector: vec,
		}
	}

	store := flat.NewStore()
	idx, err := store.Build(context.Background(), domain.IndexManifest{
		ID:             uuid.New().String(),
		EmbeddingModel: model,
		Dimensions:     dims,
		BuiltAt:        time.Now().UTC(),
		DocumentCount:  3,
	}, items)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Save(context.Background(), path))
	return idx.Manifest()
}

func newTestIndexManager(embedder driven.EmbeddingService) (*IndexManager, *IndexHandle) {
	store := flat.NewStore()
	handle := NewIndexHandle()
	resolve := func(backend string) (driven.IndexStore, error) {
		if backend != flat.Backend {
			return nil, domain.ErrUnsupportedType
		}
		return store, nil
	}
	return NewIndexManager(handle, store, resolve, embedder), handle
}

func TestIndexManager_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saved := saveFlatIndex(t, path, "mock-embed", 4)

	m, handle := newTestIndexManager(&mockEmbeddingService{dims: 4})

	manifest, err := m.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, manifest.ID)
	assert.Equal(t, 3, manifest.ChunkCount)

	current, version, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, saved.ID, current.ID)
	assert.Equal(t, uint64(1), version)

	snap, err := handle.Acquire()
	require.NoError(t, err)
	defer snap.Release()
	assert.Equal(t, 3, snap.Index.Len())
}

func TestIndexManager_OpenDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saveFlatIndex(t, path, "mock-embed", 4)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 8})

	_, err := m.Open(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.IndexDimensions)
	assert.Equal(t, 8, dimErr.ProviderDimensions)

	_, _, ok := m.Current()
	assert.False(t, ok, "a rejected index must not be installed")
}

func TestIndexManager_OpenModelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saveFlatIndex(t, path, "other-model", 4)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})

	_, err := m.Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelMismatch)
}

func TestIndexManager_OpenMissing(t *testing.T) {
	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})

	_, err := m.Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexManager_FailedOpenKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.db")
	bad := filepath.Join(dir, "bad.db")
	saved := saveFlatIndex(t, good, "mock-embed", 4)
	saveFlatIndex(t, bad, "mock-embed", 6)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})
	_, err := m.Open(context.Background(), good)
	require.NoError(t, err)

	_, err = m.Open(context.Background(), bad)
	require.Error(t, err)

	current, version, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, saved.ID, current.ID)
	assert.Equal(t, uint64(1), version)
}

func TestIndexManager_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saveFlatIndex(t, path, "mock-embed", 4)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})

	_, err := m.Reload(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)

	_, err = m.Open(context.Background(), path)
	require.NoError(t, err)

	rebuilt := saveFlatIndex(t, path, "mock-embed", 4)
	manifest, err := m.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rebuilt.ID, manifest.ID)

	_, version, _ := m.Current()
	assert.Equal(t, uint64(2), version)
}

func TestIndexManager_Inspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saved := saveFlatIndex(t, path, "mock-embed", 4)

	// Inspect works even when the provider could not serve the index.
	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 768})

	manifest, err := m.Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, manifest.ID)
	assert.Equal(t, 4, manifest.Dimensions)
	assert.Equal(t, "flat", manifest.Backend)

	_, _, ok := m.Current()
	assert.False(t, ok)
}

func TestIndexManager_UnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saveFlatIndex(t, path, "mock-embed", 4)

	handle := NewIndexHandle()
	resolve := func(string) (driven.IndexStore, error) { return nil, domain.ErrUnsupportedType }
	m := NewIndexManager(handle, flat.NewStore(), resolve, &mockEmbeddingService{dims: 4})

	_, err := m.Open(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIndexManager_WatchRequiresOpen(t *testing.T) {
	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})

	err := m.Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)
}

func TestIndexManager_WatchReloadsOnRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saveFlatIndex(t, path, "mock-embed", 4)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})
	m.ReloadDelay = 20 * time.Millisecond
	_, err := m.Open(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register before the rebuild lands.
	time.Sleep(100 * time.Millisecond)
	rebuilt := saveFlatIndex(t, path, "mock-embed", 4)

	require.Eventually(t, func() bool {
		current, _, _ := m.Current()
		return current.ID == rebuilt.ID
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestIndexManager_WatchKeepsIndexOnBadRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	saved := saveFlatIndex(t, path, "mock-embed", 4)

	m, _ := newTestIndexManager(&mockEmbeddingService{dims: 4})
	m.ReloadDelay = 20 * time.Millisecond
	_, err := m.Open(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	saveFlatIndex(t, path, "mock-embed", 6)
	time.Sleep(300 * time.Millisecond)

	current, version, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, saved.ID, current.ID)
	assert.Equal(t, uint64(1), version)

	require.Eventually(t, func() bool { return m.ReloadError() != nil }, 5*time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, m.ReloadError(), domain.ErrDimensionMismatch)

	fixed := saveFlatIndex(t, path, "mock-embed", 4)
	require.Eventually(t, func() bool {
		current, _, _ := m.Current()
		return current.ID == fixed.ID
	}, 5*time.Second, 20*time.Millisecond)
	assert.NoError(t, m.ReloadError())
}

func TestIsIndexReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create and chmod", fsnotify.Event{Name: path, Op: fsnotify.Create | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"temp file", fsnotify.Event{Name: path + ".tmp", Op: fsnotify.Create}, false},
		{"unclean name", fsnotify.Event{Name: dir + string(os.PathSeparator) + "." + string(os.PathSeparator) + "index.db", Op: fsnotify.Write}, true},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "other.db"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIndexReplaced(tt.event, path))
		})
	}
}
