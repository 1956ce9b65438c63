/*
summary.go - Read-side aggregation over commission entries

PURPOSE:
  Computes per-agent commission totals broken down by payment status.
  A pure fold over ledger entries so the same code serves both stores.

SEE ALSO:
  - ledger.go: The write side these summaries read from
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// Summary aggregates an agent's commission entries. Cancelled entries
// are counted but contribute nothing to Total.
type Summary struct {
	AgentID        AgentID
	Total          decimal.Decimal
	Paid           decimal.Decimal
	Pending        decimal.Decimal
	Cancelled      decimal.Decimal
	EntryCount     int
	CancelledCount int
}

// Summarize folds entries into a Summary. Amounts use the agent's own
// share, not the policy total, so sub-agent splits are excluded.
func Summarize(agentID AgentID, entries []Commission) Summary {
	s := Summary{
		AgentID:   agentID,
		Total:     decimal.Zero,
		Paid:      decimal.Zero,
		Pending:   decimal.Zero,
		Cancelled: decimal.Zero,
	}
	for _, c := range entries {
		s.EntryCount++
		switch c.Status {
		case PaymentPaid:
			s.Paid = s.Paid.Add(c.AgentAmount)
			s.Total = s.Total.Add(c.AgentAmount)
		case PaymentPending:
			s.Pending = s.Pending.Add(c.AgentAmount)
			s.Total = s.Total.Add(c.AgentAmount)
		case PaymentCancelled:
			s.Cancelled = s.Cancelled.Add(c.AgentAmount)
			s.CancelledCount++
		}
	}
	return s
}

// SummaryForAgent loads an agent's entries and summarizes them.
func SummaryForAgent(ctx context.Context, store Store, agentID AgentID) (Summary, error) {
	entries, err := store.ListCommissionsByAgent(ctx, agentID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(agentID, entries), nil
}
