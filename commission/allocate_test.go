package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covera/brokerage-engine/commission"
)

// =============================================================================
// SPLIT ARITHMETIC
// =============================================================================

func TestAllocate_NoSubAgent_FullAmountToAgent(t *testing.T) {
	split, err := commission.Allocate(dec("2250"), false, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, split.AgentAmount.Equal(dec("2250")))
	assert.True(t, split.SubAgentAmount.IsZero())
}

func TestAllocate_EvenSplit(t *testing.T) {
	split, err := commission.Allocate(dec("1000"), true, dec("50"))
	require.NoError(t, err)

	assert.True(t, split.AgentAmount.Equal(dec("500")))
	assert.True(t, split.SubAgentAmount.Equal(dec("500")))
}

func TestAllocate_RoundingRemainderGoesToAgent(t *testing.T) {
	// GIVEN: A split that doesn't land on a whole cent
	// WHEN: Allocating 100 at 33.33%
	// THEN: The sub-agent share is rounded and the agent takes the
	//       remainder, so the shares reconstruct the total exactly

	split, err := commission.Allocate(dec("100"), true, dec("33.33"))
	require.NoError(t, err)

	assert.True(t, split.SubAgentAmount.Equal(dec("33.33")), "sub share %s", split.SubAgentAmount)
	assert.True(t, split.AgentAmount.Equal(dec("66.67")), "agent share %s", split.AgentAmount)
	assert.True(t, split.AgentAmount.Add(split.SubAgentAmount).Equal(dec("100")))
}

func TestAllocate_SharesAlwaysSumToTotal(t *testing.T) {
	// GIVEN: A grid of awkward totals and percentages
	// WHEN: Allocating each pair
	// THEN: agent + sub always reconstructs the rounded total

	totals := []string{"0", "0.01", "1", "99.99", "100", "123.45", "2250", "10000.33", "999999.99"}
	pcts := []string{"0", "0.5", "10", "12.5", "33.33", "50", "66.67", "99.99", "100"}

	for _, total := range totals {
		for _, pct := range pcts {
			split, err := commission.Allocate(dec(total), true, dec(pct))
			require.NoError(t, err, "total=%s pct=%s", total, pct)

			sum := split.AgentAmount.Add(split.SubAgentAmount)
			assert.True(t, sum.Equal(commission.Round2(dec(total))),
				"total=%s pct=%s: %s + %s = %s", total, pct, split.AgentAmount, split.SubAgentAmount, sum)
			assert.False(t, split.SubAgentAmount.IsNegative())
			assert.False(t, split.AgentAmount.IsNegative())
		}
	}
}

func TestAllocate_BoundaryPercentages(t *testing.T) {
	// 0% leaves everything with the agent
	split, err := commission.Allocate(dec("500"), true, dec("0"))
	require.NoError(t, err)
	assert.True(t, split.AgentAmount.Equal(dec("500")))
	assert.True(t, split.SubAgentAmount.IsZero())

	// 100% hands everything to the sub-agent
	split, err = commission.Allocate(dec("500"), true, dec("100"))
	require.NoError(t, err)
	assert.True(t, split.AgentAmount.IsZero())
	assert.True(t, split.SubAgentAmount.Equal(dec("500")))
}

func TestAllocate_PercentageOutOfRange(t *testing.T) {
	_, err := commission.Allocate(dec("500"), true, dec("-0.01"))
	assert.ErrorIs(t, err, commission.ErrInvalidPercentage)

	_, err = commission.Allocate(dec("500"), true, dec("100.01"))
	assert.ErrorIs(t, err, commission.ErrInvalidPercentage)

	// Without a sub-agent the percentage is ignored entirely.
	_, err = commission.Allocate(dec("500"), false, dec("250"))
	assert.NoError(t, err)
}

// =============================================================================
// AMOUNT COMPUTATION
// =============================================================================

func TestAmountFor(t *testing.T) {
	// 15000 at 15% is 2250
	assert.True(t, commission.AmountFor(dec("15000"), dec("15")).Equal(dec("2250")))

	// Fractional results round to cents
	assert.True(t, commission.AmountFor(dec("999.99"), dec("12.5")).Equal(dec("125")))
	assert.True(t, commission.AmountFor(dec("100"), dec("0")).IsZero())
}
