// Command sercha-rag indexes local documents and answers queries with
// hybrid retrieval.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/app"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time.
var version = "dev"

func main() {
	// Provider keys may live in a .env file next to the documents.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetSettingsFactory(openSettings)
	cli.SetServiceBuilder(buildServices)
	cli.SetConfigValidator(ai.NewConfigValidator())

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func openSettings(configDir string) (driving.SettingsService, error) {
	store, err := file.NewSettingsStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

func buildServices(ctx context.Context, settings *domain.Settings, configDir string) (*cli.Services, func() error, error) {
	a, err := app.Build(ctx, settings, app.Options{ConfigDir: configDir, Version: version})
	if err != nil {
		return nil, nil, err
	}

	return &cli.Services{
		Ingest:    a.Ingest,
		Retrieval: a.Retrieval,
		Answer:    a.Answer,
		Index:     a.Index,
		Registry:  a.Registry,
		Retrieve:  settings.Retrieval,
		Warnings:  a.Warnings,
	}, a.Close, nil
}
