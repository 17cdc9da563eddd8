package reputation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierFor_Thresholds(t *testing.T) {
	cases := []struct {
		total int64
		tier  string
	}{
		{0, TierBronze},
		{49, TierBronze},
		{50, TierSilver},
		{99, TierSilver},
		{100, TierGold},
		{249, TierGold},
		{250, TierPlatinum},
		{499, TierPlatinum},
		{500, TierDiamond},
		{100000, TierDiamond},
	}

	for _, tc := range cases {
		require.Equal(t, tc.tier, TierFor(tc.total), "total=%d", tc.total)
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	rank := map[string]int{
		TierBronze:   0,
		TierSilver:   1,
		TierGold:     2,
		TierPlatinum: 3,
		TierDiamond:  4,
	}

	prev := TierFor(0)
	for total := int64(1); total <= 600; total++ {
		cur := TierFor(total)
		require.GreaterOrEqual(t, rank[cur], rank[prev], "tier regressed at total=%d", total)
		prev = cur
	}
}
