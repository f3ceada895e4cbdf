// Package cli provides the sercha-rag command line interface.
// It is a driving adapter: every command talks to the core through the
// driving ports only.
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// ConfigDirName is the configuration directory inside the user's home.
const ConfigDirName = ".sercha-rag"

// version is reported by the version command; the binary sets it with SetVersion.
var version = "dev"

var (
	verbose   bool
	jsonLogs  bool
	configDir string
)

// Services are the driving ports commands run against.
type Services struct {
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Answer    driving.AnswerService
	Index     driving.IndexService

	// Registry reports which files the watcher should pick up.
	Registry driven.NormaliserRegistry

	// Retrieve holds the configured query defaults.
	Retrieve domain.RetrievalSettings

	// Warnings are logged once when the services start.
	Warnings []string
}

// ServiceBuilder wires Services from settings. The returned function releases them.
type ServiceBuilder func(ctx context.Context, settings *domain.Settings, configDir string) (*Services, func() error, error)

// SettingsFactory opens the settings stored in configDir.
type SettingsFactory func(configDir string) (driving.SettingsService, error)

var (
	settingsFactory SettingsFactory
	settingsService driving.SettingsService
	serviceBuilder  ServiceBuilder
	activeServices  *Services
	closeServices   func() error
	configValidator driven.AIConfigValidator
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Hybrid retrieval over your local documents",
	Long: `sercha-rag indexes local documents into chunks with embeddings and answers
queries by fusing semantic (vector) and lexical (full-text) search.

Get started:
  sercha-rag settings set-key embedding
  sercha-rag ingest ./docs
  sercha-rag search "how are chunks split"
  sercha-rag ask "how are chunks split"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetJSON(jsonLogs)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/"+ConfigDirName+")")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsFactory sets how settings are opened once --config is known.
func SetSettingsFactory(f SettingsFactory) {
	settingsFactory = f
}

// SetSettingsService sets an already opened settings service.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetServiceBuilder sets how services are wired on first use.
func SetServiceBuilder(b ServiceBuilder) {
	serviceBuilder = b
}

// SetConfigValidator sets the validator the settings wizards ping new
// provider settings with. Without one, settings are saved unchecked.
func SetConfigValidator(v driven.AIConfigValidator) {
	configValidator = v
}

// SetServices injects ready services, bypassing the builder.
func SetServices(s *Services) {
	activeServices = s
}

// Execute runs the root command and releases any services it started.
func Execute(ctx context.Context) error {
	defer releaseServices()
	return rootCmd.ExecuteContext(ctx)
}

// DefaultConfigDir returns ~/.sercha-rag, or .sercha-rag in the working
// directory when the home directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(home, ConfigDirName)
}

func resolveConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return DefaultConfigDir()
}

func loadSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if settingsFactory == nil {
		return nil, ErrSettingsNotConfigured
	}
	s, err := settingsFactory(resolveConfigDir())
	if err != nil {
		return nil, err
	}
	settingsService = s
	return s, nil
}

// loadServices returns the injected services or builds them from settings
// on first use, so commands that need no providers never contact them.
func loadServices(cmd *cobra.Command) (*Services, error) {
	if activeServices != nil {
		return activeServices, nil
	}
	if serviceBuilder == nil {
		return nil, ErrServicesNotConfigured
	}

	ss, err := loadSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := ss.Get()
	if err != nil {
		return nil, err
	}

	built, closer, err := serviceBuilder(cmd.Context(), settings, resolveConfigDir())
	if err != nil {
		return nil, err
	}
	for _, w := range built.Warnings {
		logger.Warn("%s", w)
	}
	activeServices, closeServices = built, closer
	return built, nil
}

func releaseServices() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	closeServices = nil
	activeServices = nil
}
