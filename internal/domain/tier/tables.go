package tier

// Requirement gates promotion to a level.
type Requirement struct {
	Level            Level   `json:"level"`
	MinOrders        int     `json:"min_orders"`
	MinVolume        float64 `json:"min_volume"`
	MaxComplaintRate float64 `json:"max_complaint_rate"`
}

// Benefit is what a level grants.
type Benefit struct {
	Level          Level     `json:"level"`
	CommissionRate float64   `json:"commission_rate"`
	Features       []Feature `json:"features"`
}

// Stats are the activity figures compared against requirements.
type Stats struct {
	Orders        int     `json:"orders"`
	Volume        float64 `json:"volume"`
	ComplaintRate float64 `json:"complaint_rate"`
}

// requirements and commissions are indexed by level-1; no gaps.
var requirements = [...]Requirement{
	{Level: LevelFree, MinOrders: 0, MinVolume: 0, MaxComplaintRate: 1.0},
	{Level: LevelBasic, MinOrders: 10, MinVolume: 1_000, MaxComplaintRate: 0.10},
	{Level: LevelNormal, MinOrders: 50, MinVolume: 10_000, MaxComplaintRate: 0.05},
	{Level: LevelHigh, MinOrders: 200, MinVolume: 50_000, MaxComplaintRate: 0.03},
	{Level: LevelVIP, MinOrders: 1_000, MinVolume: 250_000, MaxComplaintRate: 0.01},
}

var commissions = [...]float64{0.10, 0.08, 0.06, 0.05, 0.04}

// RequirementFor returns the requirement of an integer level. Out-of-range
// levels fall back to level 1.
func RequirementFor(level int) Requirement {
	return requirements[tableIndex(level)]
}

// BenefitFor returns the benefit of an integer level. Out-of-range levels
// fall back to level 1.
func BenefitFor(level int) Benefit {
	i := tableIndex(level)
	l := Level(i + 1)
	return Benefit{
		Level:          l,
		CommissionRate: commissions[i],
		Features:       FeaturesFor(l),
	}
}

func tableIndex(level int) int {
	if level < 1 || level > len(requirements) {
		return 0
	}
	return level - 1
}

// Met reports whether s satisfies r.
func (r Requirement) Met(s Stats) bool {
	return s.Orders >= r.MinOrders &&
		s.Volume >= r.MinVolume &&
		s.ComplaintRate <= r.MaxComplaintRate
}

// EligibleLevel returns the highest level whose requirement s meets. Level 1
// has no real requirement, so the result is never LevelUnknown.
func EligibleLevel(s Stats) Level {
	for i := len(requirements) - 1; i > 0; i-- {
		if requirements[i].Met(s) {
			return requirements[i].Level
		}
	}
	return LevelFree
}
