package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-matcher/internal/export"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/config"
)

// MatchFlags holds the CLI flags for the match command.
type MatchFlags struct {
	Output  string // Defaults to the download name next to the input
	NoStore bool
}

func matchCmd(global *GlobalFlags) *cobra.Command {
	flags := &MatchFlags{}

	cmd := &cobra.Command{
		Use:   "match <input.xlsx|input.xls>",
		Short: "Match a spreadsheet offline and write the result workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if flags.NoStore {
				cfg.Storage.DatabasePath = ""
			}
			return RunMatch(cmd.Context(), cfg, args[0], flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output workbook path (default: "+export.FileName+" next to the input)")
	cmd.Flags().BoolVar(&flags.NoStore, "no-store", false, "Do not record this run in the run history")

	return cmd
}

// RunMatch processes input through the same service the HTTP upload uses.
// Logs go to logOut, the summary to out.
func RunMatch(ctx context.Context, cfg *config.Config, input string, flags *MatchFlags, out, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	svc, err := newService(cfg, store, newLogger(logOut, cfg, "match"))
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	outcome, err := svc.Process(ctx, filepath.Base(input), f)
	if err != nil {
		return err
	}

	output := flags.Output
	if output == "" {
		output = filepath.Join(filepath.Dir(input), export.FileName)
	}
	if err := os.WriteFile(output, outcome.Workbook, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	PrintMatchSummary(out, outcome, output)
	return nil
}
