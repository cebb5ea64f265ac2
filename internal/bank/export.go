package bank

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/faria/mony-api/internal/db"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Expenses"

var exportHeader = []string{"ID", "Date Paid", "Location", "Account", "Paytype", "Order", "Shipment", "Amount", "Memo", "Tags"}

func optionalCell(v *uint) any {
	if v == nil {
		return ""
	}
	return *v
}

// buildExpenseWorkbook lays out one row per expense under a header row.
func buildExpenseWorkbook(items []Expense) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, e := range items {
		names := lo.Map(e.Tags, func(t Tag, _ int) string { return t.Name })
		row := []any{
			e.ID,
			e.DatePaid.Format(time.DateOnly),
			e.LocationID,
			e.AccountID,
			e.PaytypeID,
			optionalCell(e.OrderID),
			optionalCell(e.ShipmentNo),
			e.Amount.InexactFloat64(),
			e.Memo,
			strings.Join(names, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	f.SetColWidth(exportSheet, "B", "B", 12)
	f.SetColWidth(exportSheet, "I", "I", 40)
	f.SetColWidth(exportSheet, "J", "J", 30)
	return f, nil
}

// ExportExpenses streams the filtered expense list as an XLSX workbook.
func ExportExpenses(w http.ResponseWriter, r *http.Request) {
	items := []Expense{}
	q, ok := applyFilters(db.DB.WithContext(r.Context()).Model(&Expense{}).Preload("Tags"), r.URL.Query(), expenseFilters)
	if ok {
		if err := q.Order("date_paid, id").Find(&items).Error; err != nil {
			writeError(w, fmt.Errorf("export expenses: %w", err))
			return
		}
	}

	f, err := buildExpenseWorkbook(items)
	if err != nil {
		writeError(w, fmt.Errorf("build workbook: %w", err))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(w); err != nil {
		log.Printf("[bank] write expense export: %v", err)
	}
}
