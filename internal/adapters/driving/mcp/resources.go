package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "credirag://"

	// ManifestURI addresses the manifest of the index being served.
	ManifestURI = uriScheme + "index/manifest"
)

// ManifestOutput is the JSON form of the active index manifest.
type ManifestOutput struct {
	ID             string    `json:"id"`
	Version        uint64    `json:"version"`
	Backend        string    `json:"backend"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	BuiltAt        time.Time `json:"built_at"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         ManifestURI,
		Name:        "index-manifest",
		Description: "Embedding model, segmentation parameters and size of the active complaint index",
		MIMEType:    "application/json",
	}, s.handleManifestResource)
}

func (s *Server) handleManifestResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	manifest, version, ok := s.ports.Index.Current()
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := json.MarshalIndent(ManifestOutput{
		ID:             manifest.ID,
		Version:        version,
		Backend:        manifest.Backend,
		EmbeddingModel: manifest.EmbeddingModel,
		Dimensions:     manifest.Dimensions,
		BuiltAt:        manifest.BuiltAt,
		ChunkSize:      manifest.ChunkSize,
		ChunkOverlap:   manifest.ChunkOverlap,
		Documents:      manifest.DocumentCount,
		Chunks:         manifest.ChunkCount,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling manifest: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
