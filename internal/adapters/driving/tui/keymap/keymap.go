// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Submit runs a retrieval for the typed query.
	Submit key.Binding

	Up   key.Binding
	Down key.Binding

	// Open shows the full text of the selected hit.
	Open key.Binding

	// Ask generates an answer for the current query.
	Ask key.Binding

	// NewQuery returns focus to the query input.
	NewQuery key.Binding

	// Semantic and Lexical shift the fusion weight towards one signal.
	Semantic key.Binding
	Lexical  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "retrieve"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Ask: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "ask"),
		),
		NewQuery: key.NewBinding(
			key.WithKeys("/", "n"),
			key.WithHelp("/", "new query"),
		),
		Semantic: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "semantic"),
		),
		Lexical: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "lexical"),
		),
	}
}

// InputHelp returns the bindings shown while typing a query.
func (k *KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back, k.Help}
}

// ResultsHelp returns the bindings shown while browsing hits.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Open, k.Ask, k.Semantic, k.Lexical, k.NewQuery}
}

// ReaderHelp returns the bindings shown while reading a hit or an answer.
func (k *KeyMap) ReaderHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Back}
}

// FullHelp returns every binding, grouped for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NewQuery, k.Ask},
		{k.Up, k.Down, k.Open},
		{k.Semantic, k.Lexical},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
