// Package export writes match results back out as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

const (
	// SheetName is the name of the results sheet.
	SheetName = "Pagos_Asociados"

	// FileName is the suggested download name for the results workbook.
	FileName = "Ageing_Pagos_Asociados.xlsx"

	// ContentType is the MIME type of an xlsx workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header is the results table header, one column per MatchRecord field.
var Header = []string{"Factura_TRX", "Cliente", "ValorFactura", "Pago_TRX", "ValorPago", "Porcentaje"}

// WriteWorkbook writes matches to w as an xlsx workbook with a single sheet.
// The header row is always written, so an empty result is still a valid table.
func WriteWorkbook(w io.Writer, matches []matcher.MatchRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name results sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open results sheet: %w", err)
	}

	header := lo.Map(Header, func(h string, _ int) interface{} { return h })
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, m := range matches {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cellRef, row(m)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush results sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func row(m matcher.MatchRecord) []interface{} {
	return []interface{}{
		m.InvoiceTrxID,
		m.Customer,
		m.InvoiceAmount.InexactFloat64(),
		m.PaymentTrxID,
		m.PaymentAmount.InexactFloat64(),
		string(m.Coverage),
	}
}
