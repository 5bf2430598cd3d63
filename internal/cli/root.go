// Package cli implements the invoice-matcher command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-matcher/internal/application/service"
	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/logging"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:           "invoice-matcher",
		Short:         "Match customer payments to invoices in an ageing spreadsheet",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "Path to the YAML config file (falls back to environment variables)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(matchCmd(flags))
	rootCmd.AddCommand(runsCmd(flags))

	return rootCmd
}

// loadConfig reads the config file or environment and validates it.
func loadConfig(flags *GlobalFlags) (*config.Config, error) {
	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)
	if flags.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger creates a scoped logger writing to w.
func newLogger(w io.Writer, cfg *config.Config, system string) *slog.Logger {
	return logging.NewLoggerTo(w, cfg.Observability.Logging).With("system", system)
}

// openHistory opens run history, or returns nil when no database is configured.
func openHistory(cfg *config.Config) (*storage.Storage, error) {
	if cfg.Storage.DatabasePath == "" {
		return nil, nil
	}
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, nil
}

// newService wires the matcher, run history and logger into the service.
// store may be nil.
func newService(cfg *config.Config, store *storage.Storage, logger *slog.Logger) (*service.ReconcileService, error) {
	mcfg, err := cfg.Matching.MatcherConfig()
	if err != nil {
		return nil, err
	}

	var history storage.Repository
	if store != nil {
		history = store
	}

	return service.NewReconcileService(matcher.NewMatcher(mcfg), history, logger, service.Options{
		MaxPaymentsPerCustomer: cfg.Matching.MaxPaymentsPerCustomer,
	}), nil
}
