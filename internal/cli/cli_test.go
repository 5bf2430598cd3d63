package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/invoice-matcher/internal/export"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/config"
)

func writeLedger(t *testing.T, dir string, rows ...[]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	all := append([][]interface{}{{"TRX_NUMBER", "CUSTOMER_NAME", "CLASS", "INV_AMOUNT"}}, rows...)
	for i, row := range all {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}

	path := filepath.Join(dir, "ageing.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testConfig(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	t.Setenv("DB_PATH", dbPath)
	cfg := config.LoadFromEnv()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunMatch_WritesWorkbookAndRecordsRun(t *testing.T) {
	dir := t.TempDir()
	input := writeLedger(t, dir,
		[]interface{}{"INV1", "ACME", "INV", 1000},
		[]interface{}{"P1", "ACME", "PMT", 1000.5},
		[]interface{}{"INV2", "ACME", "INV", 70},
	)
	cfg := testConfig(t, filepath.Join(dir, "runs.db"))

	var out, logs bytes.Buffer
	err := RunMatch(context.Background(), cfg, input, &MatchFlags{}, &out, &logs)
	require.NoError(t, err)

	output := filepath.Join(dir, export.FileName)
	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV1", rows[1][0])
	assert.Equal(t, "P1", rows[1][3])

	assert.Contains(t, out.String(), "Matched=1 Unmatched=1")
	assert.Contains(t, out.String(), "  - INV2")
	assert.Contains(t, out.String(), "Run: ")
	assert.Contains(t, logs.String(), "processing complete")

	var listing bytes.Buffer
	require.NoError(t, RunListRuns(context.Background(), cfg, &RunsFlags{Limit: 5}, &listing))
	assert.Contains(t, listing.String(), "ageing.xlsx")
	assert.Contains(t, listing.String(), "completed")
	assert.Contains(t, listing.String(), "Showing 1 of 1 runs")
}

func TestRunMatch_CustomOutputWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	input := writeLedger(t, dir, []interface{}{"INV1", "ACME", "INV", 10})
	cfg := testConfig(t, "")
	output := filepath.Join(dir, "result.xlsx")

	var out, logs bytes.Buffer
	err := RunMatch(context.Background(), cfg, input, &MatchFlags{Output: output}, &out, &logs)
	require.NoError(t, err)

	_, err = os.Stat(output)
	assert.NoError(t, err)
	assert.NotContains(t, out.String(), "Run: ")

	err = RunListRuns(context.Background(), cfg, &RunsFlags{}, &out)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestRunMatch_InputErrors(t *testing.T) {
	cfg := testConfig(t, "")

	t.Run("missing file", func(t *testing.T) {
		err := RunMatch(context.Background(), cfg, filepath.Join(t.TempDir(), "nope.xlsx"), &MatchFlags{}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "failed to open input")
	})

	t.Run("header only", func(t *testing.T) {
		input := writeLedger(t, t.TempDir())
		err := RunMatch(context.Background(), cfg, input, &MatchFlags{}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestRootCommand(t *testing.T) {
	t.Setenv("DB_PATH", "")

	t.Run("lists subcommands", func(t *testing.T) {
		cmd := NewRootCommand("1.2.3")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--help"})

		require.NoError(t, cmd.Execute())
		for _, name := range []string{"serve", "match", "runs"} {
			assert.Contains(t, out.String(), name)
		}
	})

	t.Run("match requires an input", func(t *testing.T) {
		cmd := NewRootCommand("dev")
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"match"})

		assert.Error(t, cmd.Execute())
	})

	t.Run("match via the command tree", func(t *testing.T) {
		dir := t.TempDir()
		input := writeLedger(t, dir, []interface{}{"INV1", "ACME", "INV", 10}, []interface{}{"P1", "ACME", "PMT", 8.8})

		cmd := NewRootCommand("dev")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", filepath.Join(dir, "absent.yaml"), "match", input, "-o", filepath.Join(dir, "out.xlsx")})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Discounted=1")
	})
}
