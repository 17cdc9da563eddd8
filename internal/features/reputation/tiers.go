package reputation

// Reputation tiers, lowest to highest.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
	TierDiamond  = "diamond"
)

type tierThreshold struct {
	name string
	min  int64
}

// Thresholds are monotonically increasing so TierFor is non-decreasing
// in total reputation.
var tierThresholds = []tierThreshold{
	{TierBronze, 0},
	{TierSilver, 50},
	{TierGold, 100},
	{TierPlatinum, 250},
	{TierDiamond, 500},
}

// TierFor returns the highest tier whose threshold is at most total.
// Pure function, no side effects.
func TierFor(total int64) string {
	tier := TierBronze
	for _, t := range tierThresholds {
		if total >= t.min {
			tier = t.name
		}
	}
	return tier
}
