/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (policy lifecycle, API handlers, bulk import) branch on these
  with errors.Is().

ERROR CATEGORIES:
  1. Resolution errors - No applicable rule or tier
  2. Configuration errors - Malformed tier tables or allocation input
  3. Ledger errors - Idempotency and transition violations

SEE ALSO:
  - rule.go: Returns resolution and configuration errors
  - allocate.go: Returns ErrInvalidPercentage
  - ledger.go: Returns ledger errors
*/
package commission

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when no commission rule is effective for
	// a (company, policy type) pair at the requested time.
	ErrRuleNotFound = errors.New("commission rule not found")

	// ErrTierNotFound is returned when a rule exists but none of its tiers
	// covers the premium. With a well-formed tier table this indicates a
	// configuration gap, not bad caller input.
	ErrTierNotFound = errors.New("commission tier not found")

	// ErrInvalidPercentage is returned when a split or tier percentage is
	// outside [0, 100].
	ErrInvalidPercentage = errors.New("percentage out of range")

	// ErrInvalidPremium is returned when a premium is negative.
	ErrInvalidPremium = errors.New("premium must be non-negative")

	// ErrInvalidTiers is returned when a tier table is malformed: gaps,
	// overlaps, not starting at zero, or a bounded final tier where an
	// open-ended one is required.
	ErrInvalidTiers = errors.New("invalid tier configuration")

	// ErrDuplicateCommissionEvent is returned by stores when a commission
	// with the same (policy, type, event) key already exists. The ledger
	// treats this as idempotent success, not a failure.
	ErrDuplicateCommissionEvent = errors.New("duplicate commission event")

	// ErrCommissionNotFound is returned when a referenced commission
	// doesn't exist.
	ErrCommissionNotFound = errors.New("commission not found")

	// ErrCommissionTerminal is returned when transitioning a commission
	// that is already paid or cancelled.
	ErrCommissionTerminal = errors.New("commission already in terminal status")

	// ErrOverlappingRule is returned when saving a rule whose validity
	// window overlaps an existing rule for the same (company, policy type).
	ErrOverlappingRule = errors.New("overlapping rule validity window")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleNotFoundError identifies which lookup failed.
type RuleNotFoundError struct {
	CompanyID  CompanyID
	PolicyType string
	AsOf       time.Time
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no commission rule for company %s, policy type %q effective at %s",
		e.CompanyID, e.PolicyType, e.AsOf.Format("2006-01-02"))
}

func (e *RuleNotFoundError) Unwrap() error {
	return ErrRuleNotFound
}

// TierNotFoundError identifies the premium that fell outside every tier.
type TierNotFoundError struct {
	RuleID  RuleID
	Premium decimal.Decimal
}

func (e *TierNotFoundError) Error() string {
	return fmt.Sprintf("rule %s has no tier covering premium %v", e.RuleID, e.Premium)
}

func (e *TierNotFoundError) Unwrap() error {
	return ErrTierNotFound
}

// TierConfigError pinpoints the malformed tier in a table.
type TierConfigError struct {
	Index  int
	Reason string
}

func (e *TierConfigError) Error() string {
	return fmt.Sprintf("tier %d: %s", e.Index, e.Reason)
}

func (e *TierConfigError) Unwrap() error {
	return ErrInvalidTiers
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing rule, tier,
// or commission.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrTierNotFound) ||
		errors.Is(err, ErrCommissionNotFound)
}

// IsConfigError returns true if the error is due to operator-supplied
// configuration rather than caller input.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidTiers) ||
		errors.Is(err, ErrTierNotFound) ||
		errors.Is(err, ErrOverlappingRule)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidPremium) ||
		errors.Is(err, ErrCommissionTerminal)
}
