package tui

import "errors"

// ErrMissingConversation is returned when the conversation driver is not provided.
var ErrMissingConversation = errors.New("tui: conversation driver is required")
