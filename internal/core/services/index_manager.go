package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexManager = (*IndexManager)(nil)

// DefaultReloadDelay lets a burst of file events settle before reloading.
const DefaultReloadDelay = 250 * time.Millisecond

// StoreResolver returns the IndexStore for a manifest's backend name.
type StoreResolver func(backend string) (driven.IndexStore, error)

// IndexManager loads persisted indexes into an IndexHandle.
type IndexManager struct {
	handle   *IndexHandle
	stores   StoreResolver
	inspect  driven.IndexStore
	embedder driven.EmbeddingService

	// ReloadDelay debounces Watch. Zero uses DefaultReloadDelay.
	ReloadDelay time.Duration

	mu        sync.Mutex
	path      string
	reloadErr error
}

// NewIndexManager creates a manager. inspect reads manifests of any backend;
// stores picks the store able to load a given backend.
func NewIndexManager(
	handle *IndexHandle,
	inspect driven.IndexStore,
	stores StoreResolver,
	embedder driven.EmbeddingService,
) *IndexManager {
	return &IndexManager{
		handle:   handle,
		stores:   stores,
		inspect:  inspect,
		embedder: embedder,
	}
}

// Open loads the index at path and makes it active. The embedding provider
// must match the manifest, otherwise nothing is swapped in.
func (m *IndexManager) Open(ctx context.Context, path string) (domain.IndexManifest, error) {
	done := logger.Timed("index open")
	defer done()

	manifest, err := m.inspect.ReadManifest(ctx, path)
	if err != nil {
		return domain.IndexManifest{}, fmt.Errorf("open index: %w", err)
	}

	store, err := m.stores(manifest.Backend)
	if err != nil {
		return domain.IndexManifest{}, fmt.Errorf("open index: %w", err)
	}

	want := domain.EmbeddingSpec{
		Model:      m.embedder.ModelName(),
		Dimensions: m.embedder.Dimensions(),
	}
	idx, err := store.Load(ctx, path, want)
	if err != nil {
		return domain.IndexManifest{}, fmt.Errorf("open index: %w", err)
	}

	version := m.handle.Swap(idx)

	m.mu.Lock()
	m.path = path
	m.reloadErr = nil
	m.mu.Unlock()

	logger.Info("Loaded index %s (version %d): %d chunks from %d complaints, model %s",
		filepath.Base(path), version, idx.Len(), manifest.DocumentCount, manifest.EmbeddingModel)

	return idx.Manifest(), nil
}

// Reload re-opens the last opened path.
func (m *IndexManager) Reload(ctx context.Context) (domain.IndexManifest, error) {
	m.mu.Lock()
	path := m.path
	m.mu.Unlock()

	if path == "" {
		return domain.IndexManifest{}, domain.ErrIndexNotLoaded
	}
	return m.Open(ctx, path)
}

// Current returns the active manifest and version.
func (m *IndexManager) Current() (domain.IndexManifest, uint64, bool) {
	return m.handle.Current()
}

// ReloadError returns why the last background reload failed. It is nil once
// an index opens successfully.
func (m *IndexManager) ReloadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloadErr
}

func (m *IndexManager) failReload(err error) {
	m.mu.Lock()
	m.reloadErr = err
	m.mu.Unlock()
	logger.Warn("%v", err)
}

// Inspect reads the manifest at path without loading the index.
func (m *IndexManager) Inspect(ctx context.Context, path string) (domain.IndexManifest, error) {
	return m.inspect.ReadManifest(ctx, path)
}

// Watch reloads the index whenever its file is replaced, until ctx is done.
// A failed reload keeps the current index in service.
func (m *IndexManager) Watch(ctx context.Context) error {
	m.mu.Lock()
	path := m.path
	m.mu.Unlock()
	if path == "" {
		return domain.ErrIndexNotLoaded
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Snapshots are replaced by rename, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	logger.Debug("watching %s for rebuilds", path)

	delay := m.ReloadDelay
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isIndexReplaced(event, path) {
				timer.Reset(delay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.failReload(fmt.Errorf("index watcher: %w", err))

		case <-timer.C:
			m.reloadIfChanged(ctx, path)
		}
	}
}

// reloadIfChanged opens path when it holds a different build than the active one.
func (m *IndexManager) reloadIfChanged(ctx context.Context, path string) {
	manifest, err := m.inspect.ReadManifest(ctx, path)
	if err != nil {
		m.failReload(fmt.Errorf("reading rebuilt index, keeping current index: %w", err))
		return
	}
	if current, _, ok := m.handle.Current(); ok && current.ID == manifest.ID {
		logger.Debug("index %s unchanged, skipping reload", manifest.ID)
		return
	}
	if _, err := m.Open(ctx, path); err != nil {
		m.failReload(fmt.Errorf("reload after rebuild failed, keeping current index: %w", err))
	}
}

// isIndexReplaced reports whether event means a new snapshot is at path.
func isIndexReplaced(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(path) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}
