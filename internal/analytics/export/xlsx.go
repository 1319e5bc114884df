package export

import (
	"io"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dtauto/dtauto/internal/analytics"
)

const financialsSheet = "Financials"

var moneyPrinter = message.NewPrinter(language.English)

// WriteFinancialsXLSX renders the financial summary as a spreadsheet with a
// header row, one row per sale and a totals row.
func WriteFinancialsXLSX(w io.Writer, summary analytics.FinancialSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(financialsSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	header := []any{"Sale Date", "Vehicle", "Sale Price", "Landed Cost", "Profit", "Phase", "Dominick", "Tony", "Reinvested"}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	rowNo := 2
	for _, row := range summary.Rows {
		values := []any{
			row.SaleDate.Format("2006-01-02"),
			row.Vehicle,
			money(row.SalePrice),
			money(row.LandedCost),
			money(row.Profit),
			phaseLabel(row.ReinvestmentPhase),
			money(row.DominickShare),
			money(row.TonyShare),
			money(row.Reinvested),
		}
		if err := setRow(f, rowNo, values); err != nil {
			return err
		}
		rowNo++
	}
	totals := []any{
		"",
		"Totals",
		money(summary.TotalSales),
		money(summary.TotalLandedCost),
		money(summary.TotalProfit),
		"",
		money(summary.TotalDominick),
		money(summary.TotalTony),
		money(summary.TotalReinvested),
	}
	if err := setRow(f, rowNo, totals); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(financialsSheet, cell, &values)
}

// money renders a grouped currency string, e.g. "12,500.00".
func money(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
