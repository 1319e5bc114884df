package ledger

// ComputeSplit divides grossProfit between the partners under the phase
// implied by cumulativeReinvestment. Below the goal 60% is reinvested and
// each partner takes 20%; at or past the goal each partner takes 50% and
// nothing is reinvested.
//
// The arithmetic is linear and applies to losses identically: shares and the
// reinvestment amount may be negative and are never clamped.
func ComputeSplit(grossProfit, cumulativeReinvestment float64) Split {
	if cumulativeReinvestment < ReinvestmentGoal {
		return Split{
			DominickShare:      round2(grossProfit * phaseSplitEach),
			TonyShare:          round2(grossProfit * phaseSplitEach),
			ReinvestmentAmount: round2(grossProfit * reinvestmentRate),
			ReinvestmentPhase:  true,
		}
	}
	return Split{
		DominickShare: round2(grossProfit * steadySplitEach),
		TonyShare:     round2(grossProfit * steadySplitEach),
	}
}
