package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	askTopK     int
	askWeight   float64
	askOptimize bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed chunks",
	Long: `Retrieves the most relevant chunks for the question and asks the configured
LLM to answer from them only, citing each chunk as [Doc N].

With --optimize the question is first rewritten into a search query. If the
rewrite fails the original question is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 5, "number of chunks used as context")
	askCmd.Flags().Float64VarP(&askWeight, "weight", "w", 0.7, "semantic weight in [0,1]")
	askCmd.Flags().BoolVar(&askOptimize, "optimize", false, "rewrite the question before retrieval")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Answer == nil {
		return ErrAnswerUnavailable
	}

	opts, err := retrieveOptions(cmd, svc.Retrieve, askTopK, askWeight)
	if err != nil {
		return err
	}

	answer, err := svc.Answer.Ask(cmd.Context(), domain.AskRequest{
		Query:    args[0],
		Optimize: askOptimize || svc.Retrieve.OptimizeQuery,
		Retrieve: opts,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return writeJSON(cmd.OutOrStdout(), answer)
	}
	writeAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func writeAnswer(w io.Writer, answer *domain.Answer) {
	if answer.OptimizedQuery != "" && answer.OptimizedQuery != answer.Query {
		fmt.Fprintln(w, mutedStyle.Render("Searched for: "+answer.OptimizedQuery))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, answer.Text)

	if len(answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Sources:"))
		for _, src := range answer.Sources {
			fmt.Fprintf(w, "  [Doc %d] %s #%d %s\n", src.Doc, src.Source, src.ChunkIndex,
				accentStyle.Render(fmt.Sprintf("(%.3f)", src.Score)))
		}
	}
	if answer.TokensUsed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d tokens used", answer.TokensUsed)))
	}
}
