/*
store.go - Persistence interfaces for the commission engine

PURPOSE:
  Defines what the engine needs from storage. Implementations:
  - store/memory: In-memory store for tests and development
  - store/sqlite: SQLite store for production

DESIGN:
  The engine depends on these narrow interfaces, never on a concrete
  store. Both stores enforce the (policy, type, event) uniqueness key
  and surface violations as ErrDuplicateCommissionEvent.

SEE ALSO:
  - ledger.go: Uses Store
  - rule.go: Uses RuleSource (the read half of RuleStore)
*/
package commission

import (
	"context"
	"time"
)

// Store persists commission ledger entries.
type Store interface {
	// CreateCommission appends a new entry. Returns
	// ErrDuplicateCommissionEvent when an entry with the same
	// (PolicyID, Type, EventID) key already exists.
	CreateCommission(ctx context.Context, c Commission) error

	// GetCommission returns an entry by ID, or ErrCommissionNotFound.
	GetCommission(ctx context.Context, id CommissionID) (*Commission, error)

	// GetCommissionByEvent returns the entry for an idempotency key,
	// or ErrCommissionNotFound.
	GetCommissionByEvent(ctx context.Context, policyID PolicyID, cType CommissionType, eventID EventID) (*Commission, error)

	// ListCommissionsByPolicy returns entries ordered by creation time.
	ListCommissionsByPolicy(ctx context.Context, policyID PolicyID) ([]Commission, error)

	// ListCommissionsByAgent returns entries ordered by creation time.
	ListCommissionsByAgent(ctx context.Context, agentID AgentID) ([]Commission, error)

	// MarkCommissionPaid transitions pending -> paid. Returns
	// ErrCommissionTerminal when the entry is already paid or cancelled.
	MarkCommissionPaid(ctx context.Context, id CommissionID, paidAt time.Time) error

	// CancelPendingCommissions transitions every pending entry for the
	// policy to cancelled and reports how many changed. Paid entries
	// are untouched.
	CancelPendingCommissions(ctx context.Context, policyID PolicyID) (int, error)
}

// RuleStore persists commission rules and their validity windows.
type RuleStore interface {
	RuleSource

	// SaveRule stores a new rule. Returns ErrOverlappingRule when its
	// window overlaps an existing rule for the same scope.
	SaveRule(ctx context.Context, r Rule) error

	// CloseRule sets an open rule's EffectiveTo, ending its window.
	CloseRule(ctx context.Context, id RuleID, at time.Time) error

	// ListRules returns every rule for a scope, newest window first.
	ListRules(ctx context.Context, companyID CompanyID, policyType string) ([]Rule, error)
}
