package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	searchTopK   int
	searchWeight float64
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Long: `Performs hybrid retrieval across every indexed chunk.
Fuses semantic (vector) similarity with lexical (full-text) rank:

  final = semantic * weight + lexical * (1 - weight)

Defaults come from the retrieval section of the settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchWeight, "weight", "w", 0.7, "semantic weight in [0,1]")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	opts, err := retrieveOptions(cmd, svc.Retrieve, searchTopK, searchWeight)
	if err != nil {
		return err
	}

	hits, err := svc.Retrieval.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if hits == nil {
			hits = []domain.RetrievalHit{}
		}
		return writeJSON(cmd.OutOrStdout(), hits)
	}
	writeHits(cmd.OutOrStdout(), hits)
	return nil
}
