package ingest

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// buildWorkbook writes rows to the first sheet of a new xlsx file.
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestRead_XLSX(t *testing.T) {
	t.Run("maps columns by header name", func(t *testing.T) {
		wb := buildWorkbook(t, [][]interface{}{
			{"TRX_NUMBER", "EXTRA", "CUSTOMER_NAME", "CLASS", "INV_AMOUNT"},
			{"INV1", "x", "ACME", "INV", 1000},
			{"PMT1", "y", "ACME", "PMT", 500.5},
		})

		records, err := Read(wb, "ledger.xlsx")

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "INV1", records[0].TrxNumber)
		assert.Equal(t, "ACME", records[0].Customer)
		assert.Equal(t, "INV", records[0].Class)
		assert.Equal(t, "1000", records[0].Amount)
		assert.Equal(t, 2, records[0].Row)
		assert.Equal(t, "500.5", records[1].Amount)
		assert.Equal(t, 3, records[1].Row)
	})

	t.Run("extension match is case-insensitive", func(t *testing.T) {
		wb := buildWorkbook(t, [][]interface{}{
			{"CLASS", "INV_AMOUNT", "CUSTOMER_NAME", "TRX_NUMBER"},
			{"INV", 1, "A", "I1"},
		})

		records, err := Read(wb, "LEDGER.XLSX")

		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("skips blank rows", func(t *testing.T) {
		wb := buildWorkbook(t, [][]interface{}{
			{"CLASS", "INV_AMOUNT", "CUSTOMER_NAME", "TRX_NUMBER"},
			{"INV", 1, "A", "I1"},
			{},
			{"PMT", 1, "A", "P1"},
		})

		records, err := Read(wb, "ledger.xlsx")

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 4, records[1].Row)
	})
}

// testdata/ledger.xls is a BIFF8 workbook: string cells are LABEL records,
// amounts are NUMBER records, row 3 carries an explicit BLANK cell, row 2
// skips the DUE_DATE column and row 5 is absent.
func TestRead_XLS(t *testing.T) {
	data, err := os.ReadFile("testdata/ledger.xls")
	require.NoError(t, err)

	records, err := Read(bytes.NewReader(data), "ledger.xls")

	require.NoError(t, err)
	assert.Equal(t, []matcher.Record{
		{Row: 2, Class: "INV", Customer: "ACME", TrxNumber: "INV-100", Amount: "1000"},
		{Row: 3, Class: "PMT", Customer: "ACME", TrxNumber: "PMT-1", Amount: "600"},
		{Row: 4, Class: "PMT", Customer: "ACME", TrxNumber: "PMT-2", Amount: "400.5"},
		{Row: 6, Class: "INV", Customer: "GLOBEX", TrxNumber: "INV-200", Amount: "250.75"},
		{Row: 7, Class: "PMT", Customer: "GLOBEX", TrxNumber: "PMT-3", Amount: "220.66"},
	}, records)

	t.Run("upper-case extension", func(t *testing.T) {
		records, err := Read(bytes.NewReader(data), "LEDGER.XLS")

		require.NoError(t, err)
		assert.Len(t, records, 5)
	})
}

func TestRead_SchemaError(t *testing.T) {
	wb := buildWorkbook(t, [][]interface{}{
		{"CLASS", "AMOUNT", "CUSTOMER_NAME"},
		{"INV", 1, "A"},
	})

	_, err := Read(wb, "ledger.xlsx")

	require.Error(t, err)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"INV_AMOUNT", "TRX_NUMBER"}, schemaErr.Missing)
	assert.Equal(t, []string{"CLASS", "AMOUNT", "CUSTOMER_NAME"}, schemaErr.Found)
	assert.Contains(t, err.Error(), "INV_AMOUNT, TRX_NUMBER")
}

func TestRead_EmptyInput(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		wb := buildWorkbook(t, [][]interface{}{
			{"CLASS", "INV_AMOUNT", "CUSTOMER_NAME", "TRX_NUMBER"},
		})

		_, err := Read(wb, "ledger.xlsx")

		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("empty sheet", func(t *testing.T) {
		wb := buildWorkbook(t, nil)

		_, err := Read(wb, "ledger.xlsx")

		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestRead_UnsupportedFormat(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("a,b,c")), "ledger.csv")

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRead_CorruptWorkbook(t *testing.T) {
	t.Run("xlsx", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte("not a zip")), "ledger.xlsx")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmptyInput)
		var schemaErr *SchemaError
		assert.False(t, errors.As(err, &schemaErr))
	})

	t.Run("xls", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte("not a compound file")), "ledger.xls")

		require.Error(t, err)
	})
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"a.xlsx":     true,
		"a.XLS":      true,
		"a.b.xls":    true,
		"a.csv":      false,
		"xlsx":       false,
		"":           false,
		"report.ods": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsSupported(name), name)
	}
}
