package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for sercha-rag.

Type a query to run a hybrid retrieval, browse the fused hits and open a
chunk, or ask the LLM to answer from the hits.

Controls:
  ↑/k, ↓/j - Navigate results
  Enter    - Search / Select
  a        - Ask about the query
  /, n     - New query
  +/-      - Shift the semantic weight
  Esc      - Back / Cancel
  ?        - Toggle help
  Ctrl+C   - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newTUIApp(cmd)
	if err != nil {
		return err
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func newTUIApp(cmd *cobra.Command) (*tui.App, error) {
	svc, err := loadServices(cmd)
	if err != nil {
		return nil, err
	}

	app, err := tui.NewApp(tui.NewPorts(svc.Retrieval, svc.Answer), svc.Retrieve)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app.WithContext(cmd.Context()), nil
}
