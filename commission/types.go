/*
Package commission provides the core commission calculation engine.

PURPOSE:
  This package contains the carrier-agnostic types and algorithms for
  computing broker commissions: tiered rate resolution, agent/sub-agent
  splits, and an idempotent commission ledger driven by policy lifecycle
  events (issue, renewal, cancellation).

KEY CONCEPTS IN THIS FILE (types.go):
  - Commission: An immutable ledger entry recording an earned commission
  - CommissionType: Which lifecycle event produced the entry
  - PaymentStatus: Where the entry sits in the payout workflow
  - Company/Agent/Policy IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Commission entries are never recomputed, only transitioned
  2. Precision: Uses decimal.Decimal for all money math, rounded to 2 places
  3. Type Safety: Strong typing for IDs prevents mixing company/agent IDs
  4. Idempotency: Every entry is keyed by (policy, type, event)

USAGE:
  rate, tier, _ := resolver.Resolve(ctx, companyID, "motor", premium, asOf)
  total := commission.AmountFor(premium, tier.Rate)
  split, _ := commission.Allocate(total, true, subAgentPct)

SEE ALSO:
  - rule.go: Tiered rate configuration and resolution
  - allocate.go: Agent/sub-agent split arithmetic
  - ledger.go: Idempotent commission recording and transitions
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID string
type AgentID string
type SubAgentID string
type ClientID string
type PolicyID string
type CommissionID string
type RuleID string

// EventID identifies the lifecycle event that triggered a commission.
// Two records with the same (PolicyID, Type, EventID) are the same
// commission; the ledger refuses to create a second one.
type EventID string

// =============================================================================
// MONEY HELPERS - All amounts carry 2 decimal places
// =============================================================================

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds a money amount to 2 decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AmountFor computes the commission amount earned on a premium at a
// percentage rate: round2(premium * rate / 100).
func AmountFor(premium, rate decimal.Decimal) decimal.Decimal {
	return Round2(premium.Mul(rate).Div(decimal.NewFromInt(100)))
}

// =============================================================================
// COMMISSION - Ledger entry for an earned commission
// =============================================================================

type CommissionType string

const (
	TypeNewBusiness CommissionType = "new_business" // First-time policy issuance
	TypeRenewal     CommissionType = "renewal"      // Completed renewal cycle
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"   // Earned, not yet paid out
	PaymentPaid      PaymentStatus = "paid"      // Paid out; terminal
	PaymentCancelled PaymentStatus = "cancelled" // Voided before payout; terminal
)

type Commission struct {
	ID       CommissionID
	PolicyID PolicyID
	AgentID  AgentID

	// SubAgentID is empty when the full amount goes to the agent.
	SubAgentID SubAgentID

	Type    CommissionType
	EventID EventID

	// Rate is the resolved tier percentage applied to the premium.
	Rate           decimal.Decimal
	Premium        decimal.Decimal
	TotalAmount    decimal.Decimal
	AgentAmount    decimal.Decimal
	SubAgentAmount decimal.Decimal

	Status   PaymentStatus
	PaidAt   *time.Time
	CreatedAt time.Time
}

// Terminal reports whether the entry can no longer transition.
func (c Commission) Terminal() bool {
	return c.Status == PaymentPaid || c.Status == PaymentCancelled
}
