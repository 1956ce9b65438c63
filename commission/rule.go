/*
rule.go - Tiered commission rate configuration and resolution

PURPOSE:
  A commission rule maps premium bands to percentage rates for one
  (company, policy type) pair over a validity window. This file defines
  the rule structure, the invariants a tier table must satisfy, and the
  Resolver that picks the applicable rate for a premium.

TIER SEMANTICS:
  Bands are half-open: [MinPremium, MaxPremium). A premium equal to a
  band's upper bound belongs to the NEXT band. The final band is
  open-ended (MaxPremium == nil) so every non-negative premium resolves.

VALIDITY WINDOWS:
  At most one rule may be effective for a (company, policy type) at any
  instant. Saving a rule whose window overlaps an existing one is
  rejected; supersession closes the old rule's window first.

SEE ALSO:
  - errors.go: ErrRuleNotFound, ErrTierNotFound, ErrInvalidTiers
  - store.go: RuleStore persistence interface
*/
package commission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER - One premium band with its rate
// =============================================================================

type Tier struct {
	// MinPremium is inclusive.
	MinPremium decimal.Decimal

	// MaxPremium is exclusive. Nil means the band is open-ended.
	MaxPremium *decimal.Decimal

	// Rate is a percentage in [0, 100].
	Rate decimal.Decimal
}

// Covers reports whether the premium falls inside this band.
func (t Tier) Covers(premium decimal.Decimal) bool {
	if premium.LessThan(t.MinPremium) {
		return false
	}
	if t.MaxPremium != nil && premium.GreaterThanOrEqual(*t.MaxPremium) {
		return false
	}
	return true
}

// =============================================================================
// RULE - Tier table scoped to company, policy type, and a validity window
// =============================================================================

type Rule struct {
	ID         RuleID
	CompanyID  CompanyID
	PolicyType string

	// Tiers must satisfy ValidateTiers and be sorted by MinPremium.
	Tiers []Tier

	EffectiveFrom time.Time

	// EffectiveTo is exclusive. Nil means the rule is still open.
	EffectiveTo *time.Time

	CreatedAt time.Time
}

// EffectiveAt reports whether the rule's validity window contains t.
func (r Rule) EffectiveAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !t.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Overlaps reports whether two validity windows share any instant.
func (r Rule) Overlaps(other Rule) bool {
	aEnd := r.EffectiveTo
	bEnd := other.EffectiveTo
	if aEnd != nil && !other.EffectiveFrom.Before(*aEnd) {
		return false
	}
	if bEnd != nil && !r.EffectiveFrom.Before(*bEnd) {
		return false
	}
	return true
}

// TierFor returns the band covering the premium.
func (r Rule) TierFor(premium decimal.Decimal) (Tier, error) {
	for _, tier := range r.Tiers {
		if tier.Covers(premium) {
			return tier, nil
		}
	}
	return Tier{}, &TierNotFoundError{RuleID: r.ID, Premium: premium}
}

// ValidateTiers checks the structural invariants of a tier table:
//   - at least one tier
//   - first tier starts at zero
//   - contiguous: each tier's min equals the previous tier's max
//   - only the final tier is open-ended, and it must be
//   - every band is non-empty (min < max)
//   - every rate is within [0, 100]
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return &TierConfigError{Index: 0, Reason: "tier table is empty"}
	}
	if !tiers[0].MinPremium.IsZero() {
		return &TierConfigError{Index: 0, Reason: "first tier must start at zero"}
	}
	for i, tier := range tiers {
		if tier.Rate.IsNegative() || tier.Rate.GreaterThan(decimal.NewFromInt(100)) {
			return &TierConfigError{Index: i, Reason: "rate must be within [0, 100]"}
		}
		last := i == len(tiers)-1
		if last {
			if tier.MaxPremium != nil {
				return &TierConfigError{Index: i, Reason: "final tier must be open-ended"}
			}
			continue
		}
		if tier.MaxPremium == nil {
			return &TierConfigError{Index: i, Reason: "only the final tier may be open-ended"}
		}
		if !tier.MaxPremium.GreaterThan(tier.MinPremium) {
			return &TierConfigError{Index: i, Reason: "band upper bound must exceed lower bound"}
		}
		if !tiers[i+1].MinPremium.Equal(*tier.MaxPremium) {
			return &TierConfigError{Index: i + 1, Reason: "bands must be contiguous"}
		}
	}
	return nil
}

// =============================================================================
// RESOLVER - Rule lookup plus tier matching
// =============================================================================

// RuleSource is the read side the resolver needs. *store.Memory and
// *sqlite.Store both satisfy it.
type RuleSource interface {
	// FindActiveRule returns the rule effective at asOf, or nil when none is.
	FindActiveRule(ctx context.Context, companyID CompanyID, policyType string, asOf time.Time) (*Rule, error)
}

type Resolver struct {
	rules RuleSource
}

func NewResolver(rules RuleSource) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve finds the effective rule and the tier covering the premium.
// A negative premium never resolves; zero resolves through the first band.
func (r *Resolver) Resolve(ctx context.Context, companyID CompanyID, policyType string, premium decimal.Decimal, asOf time.Time) (*Rule, Tier, error) {
	if premium.IsNegative() {
		return nil, Tier{}, ErrInvalidPremium
	}
	rule, err := r.rules.FindActiveRule(ctx, companyID, policyType, asOf)
	if err != nil {
		return nil, Tier{}, err
	}
	if rule == nil {
		return nil, Tier{}, &RuleNotFoundError{CompanyID: companyID, PolicyType: policyType, AsOf: asOf}
	}
	tier, err := rule.TierFor(premium)
	if err != nil {
		return nil, Tier{}, err
	}
	return rule, tier, nil
}
