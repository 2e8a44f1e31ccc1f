package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "发票"

var exportHeaders = []string{
	"发票号码", "开票日期", "购买方", "购买方税号", "销售方", "销售方税号",
	"金额", "税额", "价税合计", "发票类型", "状态", "备注",
}

// ExportJSON writes every invoice as an indented JSON array
func (s *Service) ExportJSON(w io.Writer) error {
	invoices, err := s.ListInvoices()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(invoices); err != nil {
		return fmt.Errorf("encoding invoices: %w", err)
	}
	return nil
}

var exportWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "B", 14},
	{"C", "F", 28},
	{"G", "I", 14},
	{"L", "L", 40},
}

// ExportXLSX returns a workbook with one row per invoice and a totals row
func (s *Service) ExportXLSX() ([]byte, error) {
	invoices, err := s.ListInvoices()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	boldMoney, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("writing headers: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("styling headers: %w", err)
	}

	row := 2
	for _, inv := range invoices {
		values := []any{
			inv.InvoiceNumber, inv.InvoiceDate, inv.BuyerName, inv.BuyerTaxID,
			inv.SellerName, inv.SellerTaxID,
			inv.Amount.InexactFloat64(), inv.TaxAmount.InexactFloat64(), inv.TotalAmount.InexactFloat64(),
			inv.InvoiceType, inv.Status, inv.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", row, err)
		}
		row++
	}

	stats := summarize(invoices)
	amountSum := decimal.Zero
	for _, inv := range invoices {
		amountSum = amountSum.Add(inv.Amount)
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	totals := []any{
		"合计", stats.TotalCount, "", "", "", "",
		amountSum.InexactFloat64(), stats.TotalTax.InexactFloat64(), stats.TotalAmount.InexactFloat64(),
	}
	if err := f.SetSheetRow(exportSheet, totalCell, &totals); err != nil {
		return nil, fmt.Errorf("writing totals: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, row, row, bold); err != nil {
		return nil, fmt.Errorf("styling totals: %w", err)
	}

	if row > 2 {
		if err := f.SetCellStyle(exportSheet, "G2", fmt.Sprintf("I%d", row-1), money); err != nil {
			return nil, fmt.Errorf("styling amounts: %w", err)
		}
	}
	if err := f.SetCellStyle(exportSheet, fmt.Sprintf("G%d", row), fmt.Sprintf("I%d", row), boldMoney); err != nil {
		return nil, fmt.Errorf("styling total amounts: %w", err)
	}
	for _, w := range exportWidths {
		if err := f.SetColWidth(exportSheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("setting column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	slog.Info("Exported invoices", "format", "xlsx", "rows", len(invoices))
	return buf.Bytes(), nil
}
