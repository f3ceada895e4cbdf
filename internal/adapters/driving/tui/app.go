package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/reader"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	searchView *search.View
	readerView *reader.View

	currentView messages.ViewType

	// optimize rewrites questions with the LLM before retrieval.
	optimize bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application seeded with the configured retrieval settings.
func NewApp(ports *Ports, settings domain.RetrievalSettings) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	opts := domain.RetrieveOptions{TopK: settings.TopK, SemanticWeight: settings.SemanticWeight}

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		searchView:  search.NewView(s, km, ports.Retrieval, opts),
		readerView:  reader.NewView(s),
		currentView: messages.ViewSearch,
		optimize:    settings.OptimizeQuery,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("sercha-rag"),
		a.searchView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewSearch:
			a.searchView, cmd = a.searchView.Update(msg)
		case messages.ViewReader:
			a.readerView, cmd = a.readerView.Update(msg)
		case messages.ViewHelp:
			switch msg.String() {
			case "esc", "q", "?":
				a.currentView = messages.ViewSearch
			}
		}
		return a, cmd

	case messages.RetrieveCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.AskRequested:
		if a.ports.Answer == nil {
			a.currentView = messages.ViewSearch
			a.searchView, cmd = a.searchView.Update(messages.ErrorOccurred{Err: ErrMissingAnswerService})
			return a, cmd
		}
		a.readerView.SetLoading(msg.Query)
		a.currentView = messages.ViewReader
		return a, a.performAsk(msg)

	case messages.AskCompleted:
		a.readerView, cmd = a.readerView.Update(msg)
		return a, cmd

	case messages.HitOpened:
		a.readerView.ShowHit(msg.Hit)
		a.currentView = messages.ViewReader
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ErrorOccurred:
		switch a.currentView {
		case messages.ViewReader:
			a.readerView, cmd = a.readerView.Update(msg)
		case messages.ViewSearch, messages.ViewHelp:
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	if a.currentView == messages.ViewSearch {
		a.searchView, cmd = a.searchView.Update(msg)
	}
	return a, cmd
}

// performAsk generates an answer off the update loop.
func (a *App) performAsk(msg messages.AskRequested) tea.Cmd {
	answers := a.ports.Answer
	ctx := a.ctx
	optimize := a.optimize
	return func() tea.Msg {
		answer, err := answers.Ask(ctx, domain.AskRequest{
			Query:    msg.Query,
			Optimize: optimize,
			Retrieve: msg.Options,
		})
		return messages.AskCompleted{Answer: answer, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewReader:
		return a.readerView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewSearch:
	}
	return a.searchView.View()
}

// viewHelp lists every keybinding.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	if a.ports.Answer == nil {
		b.WriteString(a.styles.Muted.Render("Asking is disabled: no LLM is configured."))
		b.WriteString("\n\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView returns the query view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// ReaderView returns the reader view.
func (a *App) ReaderView() *reader.View {
	return a.readerView
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
	a.readerView.SetDimensions(width, height)
}
