// Package input provides text input components for the TUI.
package input

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MaxQueryLength caps the number of characters a query may hold.
const MaxQueryLength = 512

// QueryInput wraps a bubbles textinput and shows the active retrieval options.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	opts      domain.RetrieveOptions
	width     int
}

// NewQueryInput creates a focused query input.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask the index..."
	ti.Focus()
	ti.CharLimit = MaxQueryLength
	ti.Width = 50

	return &QueryInput{
		textinput: ti,
		styles:    s,
		opts:      domain.DefaultRetrieveOptions(),
		width:     50,
	}
}

// Init starts the cursor blinking.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the label, the input box and the option summary.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Query: ")
	box := q.styles.InputField.Render(q.textinput.View())
	opts := q.styles.Muted.Render(fmt.Sprintf(" top %d  w=%.2f", q.opts.TopK, q.opts.SemanticWeight))
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, box, opts)
}

// Value returns the raw input text.
func (q *QueryInput) Value() string {
	return q.textinput.Value()
}

// Query returns the input text without surrounding whitespace.
func (q *QueryInput) Query() string {
	return strings.TrimSpace(q.textinput.Value())
}

// SetValue sets the input text.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// SetOptions sets the options shown next to the input.
func (q *QueryInput) SetOptions(opts domain.RetrieveOptions) {
	q.opts = opts
}

// Focus sets focus on the input.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	// Label, border and option summary.
	inputWidth := width - 30
	if inputWidth < 20 {
		inputWidth = 20
	}
	q.textinput.Width = inputWidth
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the input.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
}
