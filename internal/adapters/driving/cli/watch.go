package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/watch"
)

var (
	watchDebounce time.Duration
	watchMeta     []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-index a directory as files change",
	Long: `Watches a directory tree and keeps the index in step with it. Created and
modified files of supported types are re-ingested after the tree has been
quiet for the debounce interval; deleted files have their chunks removed.

Hidden files and directories are ignored. Stops on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-indexing")
	watchCmd.Flags().StringArrayVarP(&watchMeta, "meta", "m", nil, "metadata attached to every chunk (key=value, repeatable)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	metadata, err := parseMetadata(watchMeta)
	if err != nil {
		return err
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := watch.New(watch.Config{
		Root:     args[0],
		Debounce: watchDebounce,
		Metadata: metadata,
		OnFlush: func(changes []watch.Change, err error) {
			if err != nil {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Re-index of %d changes failed: %v", len(changes), err)))
				return
			}
			for _, c := range changes {
				fmt.Fprintf(out, "%s %s\n", mutedStyle.Render(fmt.Sprintf("%-8s", c.Type)), c.Path)
			}
		},
	}, svc.Registry, svc.Ingest, svc.Index)
	defer w.Close() //nolint:errcheck // closing a stopped watcher cannot fail

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", args[0])
	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
