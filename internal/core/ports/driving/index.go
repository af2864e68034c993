package driving

import (
	"context"

	"github.com/creditrust/credirag/internal/core/domain"
)

// BuildRequest describes one offline index build.
type BuildRequest struct {
	// CorpusPath overrides the configured corpus file.
	CorpusPath string

	// OutputPath overrides the configured index path.
	OutputPath string

	// Sample overrides the configured stratified sample size when > 0.
	Sample int

	// Progress, if set, is called as each stage advances.
	Progress func(domain.BuildProgress)
}

// IndexBuilder builds and persists a vector index from the corpus.
type IndexBuilder interface {
	Build(ctx context.Context, req BuildRequest) (*domain.BuildReport, error)
}

// IndexManager loads persisted indexes and swaps them into service.
type IndexManager interface {
	// Open loads the index at path, checks it against the embedding provider
	// and makes it the active index.
	Open(ctx context.Context, path string) (domain.IndexManifest, error)

	// Reload re-opens the last opened path.
	Reload(ctx context.Context) (domain.IndexManifest, error)

	// Watch reloads whenever the index file is replaced, until ctx is done.
	Watch(ctx context.Context) error

	// Current returns the active manifest and version.
	Current() (domain.IndexManifest, uint64, bool)

	// ReloadError reports the last failed background reload, or nil.
	ReloadError() error

	// Inspect reads the manifest at path without loading the index.
	Inspect(ctx context.Context, path string) (domain.IndexManifest, error)
}
