// Package reader provides a scrollable view of one retrieval hit or one answer.
package reader

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// reservedLines covers the title, separator, scroll indicator and help.
const reservedLines = 7

// View is the reader view.
type View struct {
	styles *styles.Styles

	title        string
	header       []string
	body         string
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error

	hit    *domain.RetrievalHit
	answer *domain.Answer
}

// NewView creates a new reader view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, width: 80, height: 24}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// ShowHit displays the full content of a hit with its scores and metadata.
func (v *View) ShowHit(hit domain.RetrievalHit) {
	v.clear()
	v.hit = &hit
	v.title = list.Label(&hit)

	v.header = []string{
		fmt.Sprintf("%s  final %.3f  %s", v.styles.Signal(hit.Signal), hit.FinalScore, list.Scores(&hit)),
	}
	keys := make([]string, 0, len(hit.Metadata))
	for k := range hit.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.header = append(v.header, fmt.Sprintf("%s: %s", k, hit.Metadata[k]))
	}

	v.body = hit.Content
	v.wrapContent()
}

// SetLoading shows a placeholder while an answer for query is generated.
func (v *View) SetLoading(query string) {
	v.clear()
	v.title = "Answer"
	v.header = []string{"Q: " + query}
	v.loading = true
}

// ShowAnswer displays a generated answer followed by its cited sources.
func (v *View) ShowAnswer(answer *domain.Answer) {
	v.clear()
	v.answer = answer
	v.title = "Answer"
	v.header = []string{"Q: " + answer.Query}
	if answer.OptimizedQuery != "" && answer.OptimizedQuery != answer.Query {
		v.header = append(v.header, "Searched for: "+answer.OptimizedQuery)
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Sources) > 0 {
		b.WriteString("\n\nSources\n")
		for _, src := range answer.Sources {
			fmt.Fprintf(&b, "[Doc %d] %s #%d (%.3f)\n", src.Doc, src.Source, src.ChunkIndex, src.Score)
			if src.Snippet != "" {
				b.WriteString("    " + strings.Join(strings.Fields(src.Snippet), " ") + "\n")
			}
		}
	}
	v.body = strings.TrimRight(b.String(), "\n")
	v.wrapContent()
}

func (v *View) clear() {
	v.title = ""
	v.header = nil
	v.body = ""
	v.lines = nil
	v.scrollOffset = 0
	v.loading = false
	v.err = nil
	v.hit = nil
	v.answer = nil
}

// Update handles messages for the reader view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AskCompleted:
		if msg.Err != nil || msg.Answer == nil {
			v.loading = false
			v.err = msg.Err
			return v, nil
		}
		v.ShowAnswer(msg.Answer)
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "esc", "q":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSearch}
		}
	}

	return v, nil
}

// wrapContent wraps the body to the view width.
func (v *View) wrapContent() {
	if v.body == "" {
		v.lines = nil
		return
	}

	width := max(v.width-4, 20)
	v.lines = strings.Split(ansi.Wrap(v.body, width, ""), "\n")
}

func (v *View) visibleLines() int {
	return max(v.height-reservedLines-len(v.header), 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the reader view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(v.title))
	b.WriteString("\n")
	for _, line := range v.header {
		b.WriteString(v.styles.Muted.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Generating answer..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		v.renderLines(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	body := strings.Join(v.lines[v.scrollOffset:end], "\n")
	if v.answer != nil {
		b.WriteString(v.styles.Answer.Render(body))
	} else {
		b.WriteString(v.styles.Normal.Render(body))
	}

	if len(v.lines) > visible {
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		fmt.Fprintf(b, "\n\n%s", v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage, v.scrollOffset+1, end, len(v.lines))))
	}
}

// SetDimensions sets the view dimensions and rewraps the body.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Hit returns the displayed hit, or nil.
func (v *View) Hit() *domain.RetrievalHit {
	return v.hit
}

// Answer returns the displayed answer, or nil.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Loading reports whether an answer is being generated.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// ScrollOffset returns the index of the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}
