package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	ingestMeta []string
	ingestJSON bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index files and directories",
	Long: `Normalises, chunks and embeds the given files, then stores every chunk in a
single transaction. Directories are walked recursively and files of
unsupported types inside them are skipped.

Supported types: plain text, Markdown, HTML, Word (.docx) and PDF (needs pdftotext).

Nothing is stored unless every chunk was embedded.`,
	Example: `  sercha-rag ingest notes.md ./docs
  sercha-rag ingest --meta project=atlas --meta team=search ./atlas`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "metadata attached to every chunk (key=value, repeatable)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	metadata, err := parseMetadata(ingestMeta)
	if err != nil {
		return err
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	result, err := svc.Ingest.IngestFiles(cmd.Context(), args, metadata)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingested %d documents as %d chunks\n", result.Documents, result.Chunks)
	fmt.Fprintln(out, mutedStyle.Render("Batch: "+result.BatchID))
	for _, path := range result.Skipped {
		fmt.Fprintln(out, warnStyle.Render("Skipped (unsupported type): "+path))
	}
	return nil
}

// parseMetadata turns key=value pairs into metadata. A later pair overrides an earlier one.
func parseMetadata(pairs []string) (domain.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(domain.Metadata, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMetadata, pair)
		}
		metadata[key] = strings.TrimSpace(value)
	}
	return metadata, nil
}
