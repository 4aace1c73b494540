// Package cli provides the docchat command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

var (
	version = "dev"

	verbose   bool
	configDir string
)

// settingsService is built on first use unless a test sets it.
var settingsService driving.SettingsService

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with a folder of documents",
	Long: `docchat ingests the documents in a data folder (PDF, DOCX, Markdown,
plain text and CSV), embeds them into a local vector index and answers
questions about them in a multi-turn conversation.

Run 'docchat ingest' once, then 'docchat chat' or 'docchat ask'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "",
		"config directory (default $DOCCHAT_HOME or ~/.docchat)")
}

// SetVersion sets the version reported by 'docchat version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeRuntime(); closeErr != nil {
		logger.Warn("Failed to release resources: %v", closeErr)
	}
	return err
}

// settings returns the settings service, opening the config store on first use.
func settings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator(ai.WithSampleEmbedding()))
	return settingsService, nil
}

// explain adds the next step to errors a user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrIndexNotFound):
		return fmt.Errorf("%w: run 'docchat ingest' first", err)
	case errors.Is(err, domain.ErrIngestLocked):
		return fmt.Errorf("%w: another docchat ingest or watch is running; retry once it exits", err)
	default:
		return err
	}
}
