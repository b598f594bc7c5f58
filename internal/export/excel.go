// Package export renders expense reports as xlsx workbooks.
package export

import (
	"fmt"

	"github.com/expensio/expense-workflow/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Expenses"

var headerRow = []string{
	"Expense ID", "Submitter", "Amount", "Currency", "Converted",
	"Category", "Merchant", "Expense Date", "Status", "Approver", "Submitted At",
}

// ExcelWriter builds expense report workbooks
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates a new xlsx report writer
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

// UserResolver maps user ids to display names for the report
type UserResolver func(userID string) string

// WriteReport renders the expenses into an xlsx workbook and returns its
// bytes. The resolver turns submitter and approver ids into names; an
// empty result leaves the raw id in place.
func (w *ExcelWriter) WriteReport(expenses []*models.Expense, resolve UserResolver) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range headerRow {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, expense := range expenses {
		row := i + 2
		values := []interface{}{
			expense.ID,
			w.displayName(resolve, expense.UserID),
			expense.Amount.String(),
			expense.Currency,
			expense.ConvertedAmount.String(),
			expense.Category,
			expense.Merchant,
			expense.ExpenseDate,
			expense.Status.String(),
			w.displayName(resolve, expense.ApproverID),
			expense.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "K", 16); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	w.logger.Info("Expense report written", zap.Int("rows", len(expenses)))
	return buf.Bytes(), nil
}

// displayName resolves an id to a name, keeping the id when the
// resolver has nothing better. Unassigned approvers render empty.
func (w *ExcelWriter) displayName(resolve UserResolver, userID string) string {
	if userID == "" {
		return ""
	}
	if resolve == nil {
		return userID
	}
	if name := resolve(userID); name != "" {
		return name
	}
	return userID
}
