package domain

import "time"

// EmbeddingSpec identifies the embedding model that produced a set of vectors.
type EmbeddingSpec struct {
	Model      string
	Dimensions int
}

// IndexItem is one (vector, chunk) pair stored in a vector index.
type IndexItem struct {
	Chunk  Chunk
	Vector []float32
}

// IndexManifest is the explicit record persisted alongside an index so that
// load-time compatibility can be checked.
type IndexManifest struct {
	// ID uniquely identifies one build.
	ID string

	// Backend names the index implementation ("flat", "qdrant").
	Backend string

	// EmbeddingModel is the model name/version used for every vector.
	EmbeddingModel string

	// Dimensions is the shared vector length.
	Dimensions int

	// BuiltAt is the build timestamp.
	BuiltAt time.Time

	// ChunkSize and ChunkOverlap are the segmentation parameters.
	ChunkSize    int
	ChunkOverlap int

	// DocumentCount and ChunkCount describe the corpus snapshot.
	DocumentCount int
	ChunkCount    int
}

// Embedding returns the spec the manifest was built with.
func (m IndexManifest) Embedding() EmbeddingSpec {
	return EmbeddingSpec{Model: m.EmbeddingModel, Dimensions: m.Dimensions}
}

// CheckCompatible reports whether vectors from provider can be searched
// against this manifest. A zero provider field skips that check.
func (m IndexManifest) CheckCompatible(provider EmbeddingSpec) error {
	if provider.Dimensions > 0 && provider.Dimensions != m.Dimensions {
		return &DimensionMismatchError{
			IndexModel:         m.EmbeddingModel,
			IndexDimensions:    m.Dimensions,
			ProviderModel:      provider.Model,
			ProviderDimensions: provider.Dimensions,
		}
	}
	if provider.Model != "" && m.EmbeddingModel != "" && provider.Model != m.EmbeddingModel {
		return ErrEmbeddingModelMismatch
	}
	return nil
}
