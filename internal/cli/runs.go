package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
)

// ErrHistoryDisabled is returned by the runs command without a database path
var ErrHistoryDisabled = errors.New("run history is disabled, set storage.database_path or DB_PATH")

// RunsFlags holds the CLI flags for the runs command.
type RunsFlags struct {
	Limit  int
	Status string
}

func runsCmd(global *GlobalFlags) *cobra.Command {
	flags := &RunsFlags{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			return RunListRuns(cmd.Context(), cfg, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&flags.Limit, "limit", "n", 20, "Maximum runs to show")
	cmd.Flags().StringVarP(&flags.Status, "status", "s", "", "Filter by status (running, completed, failed)")

	return cmd
}

// RunListRuns prints recent runs, newest first.
func RunListRuns(ctx context.Context, cfg *config.Config, flags *RunsFlags, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return ErrHistoryDisabled
	}
	defer func() { _ = store.Close() }()

	result, err := store.ListRuns(ctx, storage.RunFilters{
		Status: storage.RunStatus(flags.Status),
		Limit:  flags.Limit,
	})
	if err != nil {
		return err
	}

	PrintRuns(out, result)
	return nil
}
