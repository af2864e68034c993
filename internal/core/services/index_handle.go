package services

import (
	"sync"
	"sync/atomic"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/logger"
)

// IndexHandle holds the active vector index. Readers pin one immutable
// snapshot per turn; Swap installs a replacement without disturbing them.
type IndexHandle struct {
	mu        sync.Mutex
	current   *indexRef
	version   uint64
	observers []func(version uint64)
}

// indexRef counts the handle itself plus every unreleased Snapshot.
type indexRef struct {
	index   driven.VectorIndex
	version uint64
	refs    atomic.Int64
}

func (r *indexRef) release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	if err := r.index.Close(); err != nil {
		logger.Warn("closing index version %d: %v", r.version, err)
	}
	logger.Debug("index version %d closed", r.version)
}

// Snapshot is a pinned index version. Call Release when done.
type Snapshot struct {
	Index   driven.VectorIndex
	Version uint64

	ref      *indexRef
	released atomic.Bool
}

// Release unpins the snapshot. It is safe to call more than once.
func (s *Snapshot) Release() {
	if s.released.Swap(true) {
		return
	}
	s.ref.release()
}

// NewIndexHandle creates an empty handle.
func NewIndexHandle() *IndexHandle {
	return &IndexHandle{}
}

// Acquire pins the current index, or fails with domain.ErrIndexNotLoaded.
func (h *IndexHandle) Acquire() (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	h.current.refs.Add(1)
	return &Snapshot{Index: h.current.index, Version: h.current.version, ref: h.current}, nil
}

// Swap installs idx as the active index and returns its version. The
// previous index is closed once its last snapshot is released.
func (h *IndexHandle) Swap(idx driven.VectorIndex) uint64 {
	ref := &indexRef{index: idx}
	ref.refs.Store(1)

	h.mu.Lock()
	h.version++
	ref.version = h.version
	old := h.current
	h.current = ref
	observers := append([]func(uint64){}, h.observers...)
	h.mu.Unlock()

	if old != nil {
		old.release()
	}

	logger.Debug("index version %d installed (%d items)", ref.version, idx.Len())
	for _, fn := range observers {
		fn(ref.version)
	}
	return ref.version
}

// OnSwap registers fn to run after every Swap.
func (h *IndexHandle) OnSwap(fn func(version uint64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, fn)
}

// Current returns the active manifest and version.
func (h *IndexHandle) Current() (domain.IndexManifest, uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return domain.IndexManifest{}, 0, false
	}
	return h.current.index.Manifest(), h.current.version, true
}

// Close drops the active index. Outstanding snapshots stay usable until released.
func (h *IndexHandle) Close() error {
	h.mu.Lock()
	old := h.current
	h.current = nil
	h.mu.Unlock()

	if old != nil {
		old.release()
	}
	return nil
}
