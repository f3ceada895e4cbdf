package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDefaultTheme_SignalColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := map[lipgloss.Color]bool{}
	for _, c := range []lipgloss.Color{theme.Semantic, theme.Lexical, theme.Both} {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_WithTheme(t *testing.T) {
	theme := DefaultTheme()
	theme.Primary = lipgloss.Color("#000000")

	s := NewStyles(theme)
	assert.Same(t, theme, s.Theme())
}

func TestStyles_AllStylesInitialised(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"title":     s.Title,
		"subtitle":  s.Subtitle,
		"normal":    s.Normal,
		"muted":     s.Muted,
		"selected":  s.Selected,
		"error":     s.Error,
		"input":     s.InputField,
		"statusbar": s.StatusBar,
		"help":      s.Help,
		"border":    s.Border,
		"answer":    s.Answer,
	} {
		assert.NotEqual(t, lipgloss.Style{}, style, name)
	}
}

func TestStyles_Signal(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		signal domain.HitSignal
		want   string
	}{
		{domain.SignalSemantic, "[semantic]"},
		{domain.SignalLexical, "[lexical]"},
		{domain.SignalBoth, "[both]"},
		{domain.HitSignal("other"), "[?]"},
	}

	for _, tt := range tests {
		t.Run(string(tt.signal), func(t *testing.T) {
			assert.Contains(t, s.Signal(tt.signal), tt.want)
		})
	}
}
