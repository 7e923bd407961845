package tier

// band is one row of the loyalty lock table.
type band struct {
	MinAmount float64
	MinMonths int
	Bonus     float64
}

const monthsPerYear = 12

// loyaltyBands is ordered from the highest threshold down; first match wins.
var loyaltyBands = [...]band{
	{MinAmount: 10_000, MinMonths: 36, Bonus: 0.011},
	{MinAmount: 5_000, MinMonths: 12, Bonus: 0.01},
	{MinAmount: 1_000, MinMonths: 6, Bonus: 0.005},
}

// LoyaltyBonus returns the bonus for a lock. A band applies only when both the
// amount and the duration reach its minimums; boundaries are inclusive.
func LoyaltyBonus(amount float64, months int) float64 {
	for _, b := range loyaltyBands {
		if amount >= b.MinAmount && months >= b.MinMonths {
			return b.Bonus
		}
	}
	return 0
}

// LoyaltyMultiplier returns the reward multiplier for a number of loyalty
// years. Years are matched against the duration column of the band table;
// non-positive counts have no multiplier.
func LoyaltyMultiplier(years int) float64 {
	if years <= 0 {
		return 0
	}
	months := years * monthsPerYear
	for _, b := range loyaltyBands {
		if months >= b.MinMonths {
			return b.Bonus
		}
	}
	return 0
}
