package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var (
	evalTopK   int
	evalWeight float64
	evalJSON   bool
)

// evalCase is one entry of an evaluation file.
type evalCase struct {
	Query    string   `json:"query"`
	Relevant []string `json:"relevant"`
}

var evalCmd = &cobra.Command{
	Use:   "eval [cases.json]",
	Short: "Measure retrieval precision and recall",
	Long: `Runs every query in a cases file and compares the returned chunk ids with
the ids judged relevant. Prints mean precision, mean recall and their F1.

The file is a JSON array:

  [{"query": "how are chunks split", "relevant": ["12", "13"]}]`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().IntVarP(&evalTopK, "top-k", "k", 5, "results retrieved per query")
	evalCmd.Flags().Float64VarP(&evalWeight, "weight", "w", 0.7, "semantic weight in [0,1]")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "output metrics as JSON")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading cases: %w", err)
	}
	var cases []evalCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return fmt.Errorf("%w: parsing cases: %w", domain.ErrInvalidInput, err)
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	opts, err := retrieveOptions(cmd, svc.Retrieve, evalTopK, evalWeight)
	if err != nil {
		return err
	}

	measured := make([]domain.RetrievalCase, 0, len(cases))
	for _, c := range cases {
		hits, err := svc.Retrieval.Retrieve(cmd.Context(), c.Query, opts)
		if err != nil {
			return fmt.Errorf("query %q: %w", c.Query, err)
		}
		measured = append(measured, domain.RetrievalCase{
			Retrieved: services.HitIDs(hits),
			Relevant:  c.Relevant,
		})
	}

	metrics := services.EvaluateRetrieval(measured)
	if evalJSON {
		return writeJSON(cmd.OutOrStdout(), metrics)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Retrieval over %d cases (top %d, weight %.2f)",
		metrics.Cases, opts.TopK, opts.SemanticWeight)))
	fmt.Fprintf(out, "  Precision: %.3f\n", metrics.Precision)
	fmt.Fprintf(out, "  Recall:    %.3f\n", metrics.Recall)
	fmt.Fprintf(out, "  F1:        %.3f\n", metrics.F1)
	return nil
}
