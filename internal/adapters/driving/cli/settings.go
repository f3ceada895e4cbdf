package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking, retrieval and storage.

Settings live in config.toml inside the configuration directory. API keys
may also come from the environment (GEMINI_API_KEY, OPENAI_API_KEY,
OPENROUTER_API_KEY, ANTHROPIC_API_KEY) or a .env file, which take precedence.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	RunE:  runSettingsPath,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:       "set-key [embedding|llm]",
	Short:     "Store the API key of a provider",
	Long:      `Prompts for the API key of the embedding or LLM provider without echoing it.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{services.TargetEmbedding, services.TargetLLM},
	RunE:      runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for chunks and queries.

Changing the model changes the vector dimension. An existing index built
with another dimension must be reset before ingesting again.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for answers and query rewriting.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	ss, err := loadSettingsService()
	if err != nil {
		return err
	}

	settings, err := ss.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(headingStyle.Render("Current Settings"))
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: (none)")
	} else {
		cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
		if settings.LLM.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
		}
		printAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
	}
	printStatus(cmd, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d tokens\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d tokens\n", settings.Chunking.Overlap)
	cmd.Printf("  Encoding: %s\n", settings.Chunking.Encoding)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Semantic weight: %.2f\n", settings.Retrieval.SemanticWeight)
	cmd.Printf("  Optimize query: %t\n", settings.Retrieval.OptimizeQuery)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StoragePostgres:
		cmd.Printf("  Database: %s\n", redactURL(settings.Storage.DatabaseURL))
	case domain.StorageSQLite:
		if settings.Storage.DataDir != "" {
			cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
		}
	case domain.StorageMemory:
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'sercha-rag settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	ss, err := loadSettingsService()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ss.Path())
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	ss, err := loadSettingsService()
	if err != nil {
		return err
	}

	cmd.Printf("Enter %s API key: ", args[0])
	key := readPassword(cmd, bufio.NewReader(cmd.InOrStdin()))
	cmd.Println()
	if key == "" {
		return errors.New("API key is required")
	}

	if err := ss.SetAPIKey(args[0], key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Printf("Stored %s API key %s\n", args[0], maskAPIKey(key))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	ss, err := loadSettingsService()
	if err != nil {
		return err
	}
	settings, err := ss.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if err := configureEmbeddingProvider(cmd, reader, settings); err != nil {
		return err
	}
	if configValidator != nil {
		cmd.Print("Validating configuration... ")
		if err := configValidator.ValidateEmbedding(cmd.Context(), &settings.Embedding); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("embedding provider validation failed: %w", err)
		}
		cmd.Println("OK")
	}
	if err := ss.Save(settings); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s, %d dimensions)\n",
		settings.Embedding.Provider.Description(), settings.Embedding.Model, settings.Embedding.Dimensions)
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	ss, err := loadSettingsService()
	if err != nil {
		return err
	}
	settings, err := ss.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if err := configureLLMProvider(cmd, reader, settings); err != nil {
		return err
	}
	if configValidator != nil {
		cmd.Print("Validating configuration... ")
		if err := configValidator.ValidateLLM(cmd.Context(), &settings.LLM); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("LLM provider validation failed: %w", err)
		}
		cmd.Println("OK")
	}
	if err := ss.Save(settings); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", settings.LLM.Provider.Description(), settings.LLM.Model)
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	suggested := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", suggested.Name)
	model := readLine(reader)
	dims := suggested.Dimensions
	if model == "" {
		model = suggested.Name
	} else if model != suggested.Name {
		cmd.Printf("Enter vector dimensions [%d]: ", suggested.Dimensions)
		input := readLine(reader)
		if input != "" {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 {
				return fmt.Errorf("%w: dimensions must be a positive number", domain.ErrInvalidSettings)
			}
			dims = n
		}
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
	}

	if settings.Embedding.Dimensions != dims {
		cmd.Println(warnStyle.Render("Dimensions changed: run 'sercha-rag reset' before ingesting again."))
	}
	if settings.Embedding.Provider != selected {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.Provider = selected
	settings.Embedding.Model = model
	settings.Embedding.Dimensions = dims
	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
	}

	if settings.LLM.Provider != selected {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.Provider = selected
	settings.LLM.Model = model
	if apiKey != "" {
		settings.LLM.APIKey = apiKey
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when the command reads from a
// terminal and falls back to a plain line from reader otherwise.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// redactURL hides the password of a connection string.
func redactURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	creds := raw[scheme+3 : at]
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return raw
	}
	return raw[:scheme+3] + user + ":****" + raw[at:]
}
