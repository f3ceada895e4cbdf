package cli

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	resetYes  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every indexed chunk",
	Long: `Deletes every chunk from the store and clears the embedding cache.
Asks for confirmation unless --yes is given.`,
	RunE: runReset,
}

var removeCmd = &cobra.Command{
	Use:   "remove [sources...]",
	Short: "Delete the chunks of the given sources",
	Long: `Deletes every chunk ingested from the given sources. Sources are the
file paths given to 'ingest'; relative paths resolve against the working
directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(removeCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	stats, err := svc.Index.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	out := cmd.OutOrStdout()
	llm := stats.LLMModel
	if llm == "" {
		llm = "(not configured)"
	}
	fmt.Fprintln(out, headingStyle.Render("Index"))
	fmt.Fprintf(out, "  Chunks:          %d\n", stats.TotalChunks)
	fmt.Fprintf(out, "  Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(out, "  Dimensions:      %d\n", stats.Dimensions)
	fmt.Fprintf(out, "  LLM model:       %s\n", llm)
	fmt.Fprintf(out, "  Cached vectors:  %d\n", stats.CachedVectors)
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		cmd.Print("Delete every indexed chunk? [y/N]: ")
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if err := svc.Index.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Index reset.")
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	sources := make([]string, len(args))
	for i, arg := range args {
		if sources[i], err = filepath.Abs(arg); err != nil {
			return err
		}
	}
	n, err := svc.Index.Remove(cmd.Context(), sources)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunks.\n", n)
	return nil
}
