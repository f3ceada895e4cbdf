package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

// snippetRunes caps the content preview printed under each hit.
const snippetRunes = 160

// Output styles. lipgloss drops colour when stdout is not a terminal.
var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// retrieveOptions starts from the configured defaults and applies the
// --top-k and --weight flags the user actually set.
func retrieveOptions(cmd *cobra.Command, defaults domain.RetrievalSettings, topK int, weight float64) (domain.RetrieveOptions, error) {
	opts := domain.RetrieveOptions{TopK: defaults.TopK, SemanticWeight: defaults.SemanticWeight}
	if opts.Validate() != nil {
		opts = domain.DefaultRetrieveOptions()
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK = topK
	}
	if cmd.Flags().Changed("weight") {
		opts.SemanticWeight = weight
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("%w: --top-k must be positive and --weight within [0,1]", err)
	}
	return opts, nil
}

func hitLabel(hit *domain.RetrievalHit) string {
	source := hit.Source
	if source == "" {
		source = fmt.Sprintf("chunk %d", hit.ID)
	}
	if n, ok := hit.Metadata.Int(domain.MetaChunkIndex); ok {
		return fmt.Sprintf("%s #%d", source, n)
	}
	return source
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *score)
}

func writeHits(w io.Writer, hits []domain.RetrievalHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintln(w, headingStyle.Render("Results:"))
	fmt.Fprintln(w)
	for i := range hits {
		hit := &hits[i]
		fmt.Fprintf(w, "  [%d] %s %s\n", i+1, hitLabel(hit), accentStyle.Render(fmt.Sprintf("(%.3f)", hit.FinalScore)))
		fmt.Fprintf(w, "      %s\n", mutedStyle.Render(fmt.Sprintf("%s  semantic %s  lexical %s",
			hit.Signal, formatScore(hit.SemanticScore), formatScore(hit.LexicalScore))))
		preview := services.Snippet(strings.Join(strings.Fields(hit.Content), " "), snippetRunes)
		if preview != "" {
			fmt.Fprintf(w, "      %s\n", preview)
		}
		fmt.Fprintln(w)
	}
}
