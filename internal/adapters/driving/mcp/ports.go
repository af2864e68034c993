package mcp

import (
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// Ports aggregates the driving ports exposed over MCP.
type Ports struct {
	// Retriever serves the retrieve tool. Required.
	Retriever driving.Retriever

	// Generator serves the ask tool. Without it only retrieval is offered.
	Generator driving.AnswerGenerator

	// Index exposes the active manifest as a resource.
	Index driving.IndexManager
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
