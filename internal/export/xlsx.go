// Package export renders invoice records as a spreadsheet for download.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

const sheetName = "Invoices"

var columns = []string{
	"ID",
	"Message ID",
	"Supplier",
	"Amount",
	"Currency",
	"Account Balance",
	"Invoice Number",
	"IBAN",
	"BIC",
	"REG",
	"Account Number",
	"Last Payment Date",
	"Items",
	"Status",
	"Paid At",
	"Manually Edited",
	"Created At",
}

// InvoicesWorkbook builds an xlsx workbook with one row per invoice.
func InvoicesWorkbook(invoices []domain.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("export: renaming sheet: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("export: header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, fmt.Errorf("export: header cell: %w", err)
		}
	}

	for i, inv := range invoices {
		values := []interface{}{
			inv.ID,
			inv.MessageID,
			strValue(inv.Supplier),
			numValue(inv.Amount),
			strValue(inv.Currency),
			numValue(inv.AccountBalance),
			strValue(inv.InvoiceNumber),
			strValue(inv.AccountIBAN),
			strValue(inv.AccountBIC),
			strValue(inv.AccountREG),
			strValue(inv.AccountNumber),
			strValue(inv.LastPaymentDate),
			strings.Join(inv.Items, "; "),
			string(inv.Status),
			timeValue(inv.PaidAt),
			strings.Join(inv.EditedFields, "; "),
			inv.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("export: row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("export: row cell: %w", err)
			}
		}
	}

	return f, nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func numValue(n *float64) interface{} {
	if n == nil {
		return ""
	}
	return *n
}

func timeValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
