// Package search provides the main query view for the TUI.
package search

import (
	"context"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// WeightStep is how far one keypress moves the semantic weight.
const WeightStep = 0.1

// Actions offered for a selected hit.
const (
	ActionOpen   = "Open chunk"
	ActionAsk    = "Ask about this query"
	ActionCancel = "Cancel"
)

// ActionMenu represents a simple action selection overlay.
type ActionMenu struct {
	actions  []string
	selected int
	hit      *domain.RetrievalHit
}

// View represents the query view with input, hit list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.HitList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	ctx       context.Context
	opts      domain.RetrieveOptions

	// lastQuery is the query the listed hits belong to.
	lastQuery string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
	actionMenu *ActionMenu
}

// NewView creates a new query view. Invalid options fall back to the defaults.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrieval driving.RetrievalService,
	opts domain.RetrieveOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if opts.Validate() != nil {
		opts = domain.DefaultRetrieveOptions()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewHitList(s),
		statusbar:  status.NewBar(s, km),
		retrieval:  retrieval,
		ctx:        context.Background(),
		opts:       opts,
		width:      80,
		height:     24,
		focusInput: true,
	}
	v.input.SetOptions(opts)
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrieveCompleted:
		v.handleRetrieveCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil {
		return v.handleActionMenuKey(msg)
	}
	if v.focusInput {
		return v.handleInputKey(msg)
	}
	return v.handleResultsKey(msg)
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		if v.lastQuery != "" {
			v.focusResults()
			return v, nil
		}
		return v, func() tea.Msg { return messages.Quit{} }
	case tea.KeyEnter:
		query := v.input.Query()
		if query == "" {
			return v, nil
		}
		return v, v.submit(query)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Open):
		if hit := v.list.SelectedHit(); hit != nil {
			v.actionMenu = &ActionMenu{
				actions: []string{ActionOpen, ActionAsk, ActionCancel},
				hit:     hit,
			}
		}
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Ask):
		return v, v.ask()
	case keymap.Matches(msg.String(), v.keymap.Semantic):
		return v, v.shiftWeight(WeightStep)
	case keymap.Matches(msg.String(), v.keymap.Lexical):
		return v, v.shiftWeight(-WeightStep)
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(msg.String(), v.keymap.Back):
		v.focusInput = true
		return v, v.input.Focus()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.actionMenu.selected > 0 {
			v.actionMenu.selected--
		}
	case "down", "j":
		if v.actionMenu.selected < len(v.actionMenu.actions)-1 {
			v.actionMenu.selected++
		}
	case "enter":
		action := v.actionMenu.actions[v.actionMenu.selected]
		hit := v.actionMenu.hit
		v.actionMenu = nil
		return v, v.executeAction(action, hit)
	case "esc":
		v.actionMenu = nil
	}
	return v, nil
}

// executeAction performs the selected action on a hit.
func (v *View) executeAction(action string, hit *domain.RetrievalHit) tea.Cmd {
	switch action {
	case ActionOpen:
		selected := *hit
		return func() tea.Msg { return messages.HitOpened{Hit: selected} }
	case ActionAsk:
		return v.ask()
	}
	return nil
}

func (v *View) submit(query string) tea.Cmd {
	v.lastQuery = query
	v.err = nil
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateRetrieving)
	v.focusResults()
	return v.performRetrieve(query, v.opts)
}

func (v *View) ask() tea.Cmd {
	if v.lastQuery == "" {
		return nil
	}
	req := messages.AskRequested{Query: v.lastQuery, Options: v.opts}
	return func() tea.Msg { return req }
}

// shiftWeight moves the semantic weight by delta and reruns the last query.
func (v *View) shiftWeight(delta float64) tea.Cmd {
	w := math.Round((v.opts.SemanticWeight+delta)*10) / 10
	w = math.Max(0, math.Min(1, w))
	if w == v.opts.SemanticWeight {
		return nil
	}
	v.opts.SemanticWeight = w
	v.input.SetOptions(v.opts)
	if v.lastQuery == "" {
		return nil
	}
	return v.submit(v.lastQuery)
}

// performRetrieve runs a hybrid retrieval off the update loop.
func (v *View) performRetrieve(query string, opts domain.RetrieveOptions) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		hits, err := v.retrieval.Retrieve(v.ctx, query, opts)
		return messages.RetrieveCompleted{Query: query, Hits: hits, Err: err}
	}
}

func (v *View) handleRetrieveCompleted(msg messages.RetrieveCompleted) {
	// A newer query superseded this one.
	if msg.Query != "" && msg.Query != v.lastQuery {
		return
	}
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetHits(msg.Hits)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetHitCount(len(msg.Hits))
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) focusResults() {
	v.focusInput = false
	v.input.Blur()
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Sercha RAG"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input and status bar
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the text currently in the input.
func (v *View) Query() string {
	return v.input.Value()
}

// LastQuery returns the query the listed hits belong to.
func (v *View) LastQuery() string {
	return v.lastQuery
}

// Options returns the active retrieval options.
func (v *View) Options() domain.RetrieveOptions {
	return v.opts
}

// Hits returns the listed hits.
func (v *View) Hits() []domain.RetrievalHit {
	return v.list.Hits()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// ActionMenuOpen reports whether the action menu is showing.
func (v *View) ActionMenuOpen() bool {
	return v.actionMenu != nil
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}
