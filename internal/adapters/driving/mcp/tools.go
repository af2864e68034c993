package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/creditrust/credirag/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"question or keywords describing the complaints to find"`
	K     int    `json:"k,omitempty" jsonschema:"number of chunks to return (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks       []ChunkOutput `json:"chunks"`
	Count        int           `json:"count"`
	IndexVersion uint64        `json:"index_version"`
}

// ChunkOutput is one retrieved complaint excerpt.
type ChunkOutput struct {
	Rank       int     `json:"rank"`
	DocumentID string  `json:"document_id"`
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question about customer complaints"`
	K        int    `json:"k,omitempty" jsonschema:"number of chunks to ground the answer on"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer        string           `json:"answer"`
	Model         string           `json:"model"`
	Sources       []CitationOutput `json:"sources"`
	DroppedChunks int              `json:"dropped_chunks,omitempty"`
}

// CitationOutput identifies a source the answer was grounded on.
type CitationOutput struct {
	Rank       int     `json:"rank"`
	DocumentID string  `json:"document_id"`
	Category   string  `json:"category"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the complaint excerpts most similar to a query",
	}, s.handleRetrieve)

	if s.ports.Generator != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using only retrieved complaint excerpts, with citations",
		}, s.handleAsk)
	}
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	result, err := s.ports.Retriever.Retrieve(ctx, input.Query, input.K)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks:       make([]ChunkOutput, len(result.Hits)),
		Count:        len(result.Hits),
		IndexVersion: result.IndexVersion,
	}
	for i, hit := range result.Hits {
		output.Chunks[i] = ChunkOutput{
			Rank:       hit.Rank,
			DocumentID: hit.Chunk.DocumentID,
			Category:   hit.Chunk.Category,
			Score:      hit.Score,
			Text:       hit.Chunk.Text,
		}
	}
	return nil, output, nil
}

// handleAsk runs a single stateless turn. MCP clients keep their own history.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	retrieved, err := s.ports.Retriever.Retrieve(ctx, input.Question, input.K)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Generator.Generate(ctx, input.Question, retrieved)
	if errors.Is(err, domain.ErrNoRelevantContext) {
		return nil, AskOutput{Answer: err.Error(), Sources: []CitationOutput{}}, nil
	}
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:        answer.Text,
		Model:         answer.Model,
		Sources:       make([]CitationOutput, len(answer.Sources)),
		DroppedChunks: answer.DroppedChunks,
	}
	for i, c := range answer.Sources {
		output.Sources[i] = CitationOutput(c)
	}
	return nil, output, nil
}
