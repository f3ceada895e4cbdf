// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrieveCompleted carries fused hits back to the model.
type RetrieveCompleted struct {
	Query string
	Hits  []domain.RetrievalHit
	Err   error
}

// AskRequested asks the application to generate an answer for a query.
type AskRequested struct {
	Query   string
	Options domain.RetrieveOptions
}

// AskCompleted carries a generated answer back to the model.
type AskCompleted struct {
	Answer *domain.Answer
	Err    error
}

// HitOpened is sent when the user opens a hit to read it in full.
type HitOpened struct {
	Hit domain.RetrievalHit
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the query input and hit list.
	ViewSearch ViewType = iota
	// ViewReader shows one hit or one answer in full.
	ViewReader
	// ViewHelp lists the keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewReader:
		return "reader"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
