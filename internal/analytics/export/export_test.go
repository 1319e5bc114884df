package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dtauto/dtauto/internal/analytics"
)

func sampleSummary() analytics.FinancialSummary {
	return analytics.FinancialSummary{
		Rows: []analytics.SaleRow{
			{
				VehicleID:         1,
				Vehicle:           "2018 Toyota Tacoma",
				SaleDate:          time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
				SalePrice:         13000,
				LandedCost:        11000,
				Profit:            2000,
				ReinvestmentPhase: true,
				DominickShare:     400,
				TonyShare:         400,
				Reinvested:        1200,
			},
		},
		TotalSales:      13000,
		TotalLandedCost: 11000,
		TotalProfit:     2000,
		TotalDominick:   400,
		TotalTony:       400,
		TotalReinvested: 1200,
	}
}

func TestWriteFinancialsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFinancialsCSV(&buf, sampleSummary()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// Header, one sale, totals.
	require.Len(t, records, 3)
	require.Equal(t, "Sale Date", records[0][0])
	require.Equal(t, "2026-01-15", records[1][0])
	require.Equal(t, "2018 Toyota Tacoma", records[1][1])
	require.Equal(t, "13000.00", records[1][2])
	require.Equal(t, "reinvestment", records[1][5])
	require.Equal(t, "Totals", records[2][1])
	require.Equal(t, "2000.00", records[2][4])
}

func TestWriteLeaderboardCSV(t *testing.T) {
	var buf bytes.Buffer
	standings := []analytics.PartnerStanding{
		{Partner: "dominick", Earned: 400, Paid: 400, Pending: 0},
		{Partner: "tony", Earned: 400, Paid: 0, Pending: 400},
	}
	require.NoError(t, WriteLeaderboardCSV(&buf, standings))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"tony", "400.00", "0.00", "400.00"}, records[2])
}

func TestWriteFinancialsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFinancialsXLSX(&buf, sampleSummary()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Financials")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Vehicle", rows[0][1])
	require.Equal(t, "2018 Toyota Tacoma", rows[1][1])
	require.Equal(t, "13,000.00", rows[1][2])
	require.Equal(t, "Totals", rows[2][1])
}
