/*
ledger.go - Idempotent commission recording and payment transitions

PURPOSE:
  The ledger is the single write path for commission entries. It
  enforces event idempotency (recording the same lifecycle event twice
  yields the original entry, not a duplicate) and the payment state
  machine: pending -> paid, pending -> cancelled, with paid and
  cancelled terminal.

IDEMPOTENCY CONTRACT:
  Record() returns (entry, created=false, nil) when the event was
  already recorded. Callers retrying after a timeout see success either
  way and never double-book a commission.

SEE ALSO:
  - store.go: Store interface backing the ledger
  - summary.go: Read-side aggregation over ledger entries
*/
package commission

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends a commission entry for a lifecycle event. When an
// entry with the same (policy, type, event) key already exists, the
// existing entry is returned with created=false and no error.
func (l *Ledger) Record(ctx context.Context, c Commission) (Commission, bool, error) {
	if c.PolicyID == "" || c.EventID == "" {
		return Commission{}, false, fmt.Errorf("record commission: policy and event IDs are required")
	}
	if c.Status == "" {
		c.Status = PaymentPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	err := l.store.CreateCommission(ctx, c)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, ErrDuplicateCommissionEvent) {
		return Commission{}, false, fmt.Errorf("record commission: %w", err)
	}

	existing, getErr := l.store.GetCommissionByEvent(ctx, c.PolicyID, c.Type, c.EventID)
	if getErr != nil {
		return Commission{}, false, fmt.Errorf("record commission: load existing entry: %w", getErr)
	}
	return *existing, false, nil
}

// FindByEvent returns the entry recorded for a lifecycle event, or
// ErrCommissionNotFound.
func (l *Ledger) FindByEvent(ctx context.Context, policyID PolicyID, cType CommissionType, eventID EventID) (*Commission, error) {
	return l.store.GetCommissionByEvent(ctx, policyID, cType, eventID)
}

// MarkPaid transitions a pending entry to paid.
func (l *Ledger) MarkPaid(ctx context.Context, id CommissionID, paidAt time.Time) (*Commission, error) {
	if err := l.store.MarkCommissionPaid(ctx, id, paidAt); err != nil {
		return nil, err
	}
	return l.store.GetCommission(ctx, id)
}

// CancelPending voids every pending entry for a policy and reports how
// many were cancelled. Paid entries stay paid.
func (l *Ledger) CancelPending(ctx context.Context, policyID PolicyID) (int, error) {
	n, err := l.store.CancelPendingCommissions(ctx, policyID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending commissions for %s: %w", policyID, err)
	}
	return n, nil
}
