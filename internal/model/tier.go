package model

// Tier is one of the fixed occupancy levels a manager can report.
type Tier struct {
	Number int
	Occupancy
}

// Tiers are the fixed occupancy levels, in menu order.
var Tiers = []Tier{
	{1, Occupancy{FreeEstimate: 0, HasSpots: false, Description: "lot full", RangeLabel: "0 spots"}},
	{2, Occupancy{FreeEstimate: 3, HasSpots: true, Description: "few spots available", RangeLabel: "1-5 spots"}},
	{3, Occupancy{FreeEstimate: 10, HasSpots: true, Description: "some spots available", RangeLabel: "6-15 spots"}},
	{4, Occupancy{FreeEstimate: 23, HasSpots: true, Description: "many spots available", RangeLabel: "16-30 spots"}},
	{5, Occupancy{FreeEstimate: 35, HasSpots: true, Description: "lot nearly empty", RangeLabel: "30+ spots"}},
}

// TierByNumber looks up a tier by its 1-based number.
func TierByNumber(n int) (Tier, bool) {
	if n < 1 || n > len(Tiers) {
		return Tier{}, false
	}
	return Tiers[n-1], true
}
