// Package tui provides the interactive chat interface for credirag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Conversation runs the chat turns. Required.
	Conversation driving.ConversationDriver

	// Index reports which index is being served. Optional.
	Index driving.IndexManager

	// Settings backs the settings view. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Conversation == nil {
		return ErrMissingConversation
	}
	return nil
}
