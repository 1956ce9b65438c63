/*
allocate.go - Agent/sub-agent commission split arithmetic

PURPOSE:
  Splits a total commission between the writing agent and an optional
  sub-agent. The sub-agent share is computed first and rounded; the
  agent takes the exact remainder, so the two shares always sum to the
  total regardless of rounding.

SEE ALSO:
  - types.go: Round2 and money conventions
  - ledger.go: Embeds the split into Commission entries
*/
package commission

import "github.com/shopspring/decimal"

// Split is the outcome of allocating a total commission.
type Split struct {
	AgentAmount    decimal.Decimal
	SubAgentAmount decimal.Decimal
}

// Allocate divides total between agent and sub-agent.
//
// With no sub-agent the agent receives the full total. Otherwise the
// sub-agent receives round2(total * pct / 100) and the agent receives
// the remainder. Percentages of exactly 0 or 100 are valid.
func Allocate(total decimal.Decimal, hasSubAgent bool, subAgentPct decimal.Decimal) (Split, error) {
	if !hasSubAgent {
		return Split{AgentAmount: Round2(total), SubAgentAmount: decimal.Zero}, nil
	}
	if subAgentPct.IsNegative() || subAgentPct.GreaterThan(decimal.NewFromInt(100)) {
		return Split{}, ErrInvalidPercentage
	}
	total = Round2(total)
	sub := Round2(total.Mul(subAgentPct).Div(decimal.NewFromInt(100)))
	return Split{AgentAmount: total.Sub(sub), SubAgentAmount: sub}, nil
}
