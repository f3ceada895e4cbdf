// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// linesPerHit is the height of one rendered hit plus its spacing.
const linesPerHit = 3

// HitList displays fused retrieval hits in a navigable list.
type HitList struct {
	hits     []domain.RetrievalHit
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewHitList creates a new hit list component.
func NewHitList(s *styles.Styles) *HitList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &HitList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the hit list.
func (l *HitList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation keys.
func (l *HitList) Update(msg tea.Msg) (*HitList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home", "g":
			l.selected = 0
		case "end", "G":
			if len(l.hits) > 0 {
				l.selected = len(l.hits) - 1
			}
		}
	}
	return l, nil
}

// View renders the visible window of hits around the selection.
func (l *HitList) View() string {
	if len(l.hits) == 0 {
		return l.styles.Muted.Render("No hits")
	}

	lines := make([]string, 0, len(l.hits)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Hits (%d)", len(l.hits))), "")

	visible := (l.height - 4) / linesPerHit
	if visible < 1 {
		visible = 1
	}

	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.hits))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderHit(i, &l.hits[i]))
	}

	return strings.Join(lines, "\n")
}

// renderHit formats one hit as a header line, a score line and a preview.
func (l *HitList) renderHit(index int, hit *domain.RetrievalHit) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	label := Label(hit)
	maxLabel := max(l.width-24, 10)
	label = truncate(label, maxLabel)

	score := fmt.Sprintf("%.3f", hit.FinalScore)
	var header string
	if index == l.selected {
		header = l.styles.Selected.Render(fmt.Sprintf("%s%d. %-*s  %s", indicator, index+1, maxLabel, label, score))
	} else {
		header = l.styles.Normal.Render(fmt.Sprintf("%s%d. %-*s  ", indicator, index+1, maxLabel, label)) +
			l.styles.Muted.Render(score)
	}

	scores := "    " + l.styles.Signal(hit.Signal) + " " + l.styles.Muted.Render(Scores(hit))
	preview := l.styles.Muted.Render("    " + truncate(strings.Join(strings.Fields(hit.Content), " "), max(l.width-6, 20)))

	return header + "\n" + scores + "\n" + preview
}

// Label names a hit by its source and chunk position.
func Label(hit *domain.RetrievalHit) string {
	source := hit.Source
	if source == "" {
		source = fmt.Sprintf("chunk %d", hit.ID)
	}
	if n, ok := hit.Metadata.Int(domain.MetaChunkIndex); ok {
		return fmt.Sprintf("%s #%d", source, n)
	}
	return source
}

// Scores renders the per-signal scores of a hit, with "-" for a missing signal.
func Scores(hit *domain.RetrievalHit) string {
	return fmt.Sprintf("semantic %s  lexical %s", formatScore(hit.SemanticScore), formatScore(hit.LexicalScore))
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *score)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetHits replaces the hits and selects the first.
func (l *HitList) SetHits(hits []domain.RetrievalHit) {
	l.hits = hits
	l.selected = 0
}

// Hits returns the current hits.
func (l *HitList) Hits() []domain.RetrievalHit {
	return l.hits
}

// Selected returns the index of the selected hit.
func (l *HitList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index if it is in range.
func (l *HitList) SetSelected(index int) {
	if index >= 0 && index < len(l.hits) {
		l.selected = index
	}
}

// SelectedHit returns the selected hit, or nil if the list is empty.
func (l *HitList) SelectedHit() *domain.RetrievalHit {
	if l.selected < 0 || l.selected >= len(l.hits) {
		return nil
	}
	return &l.hits[l.selected]
}

// MoveUp moves selection up.
func (l *HitList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *HitList) MoveDown() {
	if l.selected < len(l.hits)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *HitList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of hits.
func (l *HitList) Count() int {
	return len(l.hits)
}

// IsEmpty returns whether the list is empty.
func (l *HitList) IsEmpty() bool {
	return len(l.hits) == 0
}
