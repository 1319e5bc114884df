package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/dtauto/dtauto/internal/analytics"
)

// WriteFinancialsCSV serialises the financial summary to CSV. One row per
// sale in chronological order, then a totals row.
func WriteFinancialsCSV(w io.Writer, summary analytics.FinancialSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Sale Date", "Vehicle", "Sale Price", "Landed Cost", "Profit", "Phase", "Dominick", "Tony", "Reinvested"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range summary.Rows {
		record := []string{
			row.SaleDate.Format("2006-01-02"),
			row.Vehicle,
			formatFloat(row.SalePrice),
			formatFloat(row.LandedCost),
			formatFloat(row.Profit),
			phaseLabel(row.ReinvestmentPhase),
			formatFloat(row.DominickShare),
			formatFloat(row.TonyShare),
			formatFloat(row.Reinvested),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	totals := []string{
		"",
		"Totals",
		formatFloat(summary.TotalSales),
		formatFloat(summary.TotalLandedCost),
		formatFloat(summary.TotalProfit),
		"",
		formatFloat(summary.TotalDominick),
		formatFloat(summary.TotalTony),
		formatFloat(summary.TotalReinvested),
	}
	if err := writer.Write(totals); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteLeaderboardCSV emits per-partner standings.
func WriteLeaderboardCSV(w io.Writer, standings []analytics.PartnerStanding) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Partner", "Earned", "Paid", "Pending"}); err != nil {
		return err
	}
	for _, s := range standings {
		if err := writer.Write([]string{
			s.Partner,
			formatFloat(s.Earned),
			formatFloat(s.Paid),
			formatFloat(s.Pending),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func phaseLabel(phase bool) string {
	if phase {
		return "reinvestment"
	}
	return "steady"
}
