// Package ingest turns an uploaded ledger spreadsheet into matcher records.
//
// Both .xlsx (Office Open XML) and legacy .xls (BIFF) workbooks are accepted.
// Only the first sheet is read; its first row is the header.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// Required column names.
const (
	ColumnClass     = "CLASS"
	ColumnAmount    = "INV_AMOUNT"
	ColumnCustomer  = "CUSTOMER_NAME"
	ColumnTrxNumber = "TRX_NUMBER"
)

// RequiredColumns lists the columns every upload must carry, in report order.
var RequiredColumns = []string{ColumnClass, ColumnAmount, ColumnCustomer, ColumnTrxNumber}

var (
	// ErrEmptyInput means the workbook is well-formed but holds no data rows.
	ErrEmptyInput = errors.New("the spreadsheet is empty or the sheet contains no data")

	// ErrUnsupportedFormat means the file extension is neither .xlsx nor .xls.
	ErrUnsupportedFormat = errors.New("unsupported file format, upload a .xlsx or .xls file")
)

// SchemaError reports required columns missing from the header row.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s; columns found: [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// IsSupported reports whether filename has an accepted spreadsheet extension.
func IsSupported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// Read parses the first sheet of the workbook in r. The extension of filename
// selects the decoder.
func Read(r io.Reader, filename string) ([]matcher.Record, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	return parseRows(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	// Raw values keep number formats (thousands separators, currency) out of amounts.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, ErrEmptyInput
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read first sheet: %w", err)
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// parseRows validates the header and maps data rows to records.
func parseRows(rows [][]string) ([]matcher.Record, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrEmptyInput
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; !dup && name != "" {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Found: header}
	}

	records := make([]matcher.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, matcher.Record{
			Row:       i + 2,
			Class:     cell(row, index[ColumnClass]),
			Customer:  cell(row, index[ColumnCustomer]),
			TrxNumber: cell(row, index[ColumnTrxNumber]),
			Amount:    cell(row, index[ColumnAmount]),
		})
	}

	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	return records, nil
}

// cell returns row[i], or "" when the row is shorter than the header.
func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
