package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeSplit(t *testing.T) {
	cases := []struct {
		name       string
		gross      float64
		cumulative float64
		want       Split
	}{
		{
			name:       "reinvestment phase",
			gross:      1000,
			cumulative: 0,
			want:       Split{DominickShare: 200, TonyShare: 200, ReinvestmentAmount: 600, ReinvestmentPhase: true},
		},
		{
			name:       "just under the goal stays in phase",
			gross:      1000,
			cumulative: ReinvestmentGoal - 0.01,
			want:       Split{DominickShare: 200, TonyShare: 200, ReinvestmentAmount: 600, ReinvestmentPhase: true},
		},
		{
			name:       "at the goal",
			gross:      1000,
			cumulative: ReinvestmentGoal,
			want:       Split{DominickShare: 500, TonyShare: 500},
		},
		{
			name:       "past the goal",
			gross:      2500,
			cumulative: 200000,
			want:       Split{DominickShare: 1250, TonyShare: 1250},
		},
		{
			name:       "loss in reinvestment phase is not clamped",
			gross:      -1000,
			cumulative: 0,
			want:       Split{DominickShare: -200, TonyShare: -200, ReinvestmentAmount: -600, ReinvestmentPhase: true},
		},
		{
			name:       "loss past the goal",
			gross:      -800,
			cumulative: ReinvestmentGoal,
			want:       Split{DominickShare: -400, TonyShare: -400},
		},
		{
			name:       "zero profit",
			gross:      0,
			cumulative: 0,
			want:       Split{ReinvestmentPhase: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeSplit(tc.gross, tc.cumulative)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComputeSplitRounds(t *testing.T) {
	got := ComputeSplit(1000.333, 0)
	require.Equal(t, 200.07, got.DominickShare)
	require.Equal(t, 200.07, got.TonyShare)
	require.Equal(t, 600.2, got.ReinvestmentAmount)
}
