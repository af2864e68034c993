package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/creditrust/credirag/internal/adapters/driving/tui"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// runTUI runs the full-screen chat until the user quits.
func runTUI(
	ctx context.Context,
	conv driving.ConversationDriver,
	index driving.IndexManager,
	settings driving.SettingsService,
) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{
		Conversation: conv,
		Index:        index,
		Settings:     settings,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	// stderr writes would land on the alt screen. Reload failures reach
	// the status bar through the index port instead.
	prev := logger.Output()
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(prev)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.Observe(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
