/*
lifecycle.go - Policy lifecycle transitions and commission orchestration

PURPOSE:
  The Lifecycle service is the single entry point for events that move
  a policy through its life: issuance, renewal completion, lapse, and
  cancellation. Each event validates the transition, resolves the
  applicable commission rule, and records the resulting entry through
  the idempotent ledger.

RETRY SAFETY:
  Issue and CompleteRenewal derive a stable event ID when the caller
  supplies none, so a retried call lands on the same ledger key and the
  original commission is returned instead of a duplicate.

SEE ALSO:
  - commission/ledger.go: Idempotent recording
  - commission/rule.go: Rate resolution
  - store.go: Persistence interfaces
*/
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
)

type Lifecycle struct {
	policies  Store
	directory Directory
	resolver  *commission.Resolver
	ledger    *commission.Ledger
}

func NewLifecycle(policies Store, directory Directory, resolver *commission.Resolver, ledger *commission.Ledger) *Lifecycle {
	return &Lifecycle{
		policies:  policies,
		directory: directory,
		resolver:  resolver,
		ledger:    ledger,
	}
}

// =============================================================================
// ISSUE - active policy + new_business commission + first renewal cycle
// =============================================================================

type IssueInput struct {
	Number     string
	CompanyID  commission.CompanyID
	AgentID    commission.AgentID
	SubAgentID commission.SubAgentID // Empty when the agent wrote it alone
	ClientID   commission.ClientID
	Type       string
	Premium    decimal.Decimal
	SumAssured decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time

	// EventID defaults to "issue:" + Number.
	EventID commission.EventID
}

type IssueResult struct {
	Policy            Policy
	Commission        commission.Commission
	CommissionCreated bool
	Renewal           Renewal
}

func (lc *Lifecycle) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	if in.Number == "" {
		return nil, fmt.Errorf("issue policy: %w", ErrMissingPolicyNumber)
	}
	if !in.Premium.IsPositive() {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, commission.ErrInvalidPremium)
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, ErrInvalidPolicyDates)
	}

	if _, err := lc.directory.GetCompany(ctx, in.CompanyID); err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}
	agent, err := lc.directory.GetAgent(ctx, in.AgentID)
	if err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}

	hasSubAgent := in.SubAgentID != ""
	var subAgentPct decimal.Decimal
	if hasSubAgent {
		sub, err := lc.directory.GetSubAgent(ctx, in.SubAgentID)
		if err != nil {
			return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
		}
		if sub.AgentID != agent.ID {
			return nil, fmt.Errorf("issue policy %s: sub-agent %s does not work under agent %s: %w",
				in.Number, sub.ID, agent.ID, ErrSubAgentNotFound)
		}
		subAgentPct = sub.SplitPercent
	}

	taken, err := lc.policies.PolicyNumberExists(ctx, in.Number)
	if err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}
	if taken {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, ErrDuplicatePolicyNumber)
	}

	_, tier, err := lc.resolver.Resolve(ctx, in.CompanyID, in.Type, in.Premium, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}
	total := commission.AmountFor(in.Premium, tier.Rate)
	split, err := commission.Allocate(total, hasSubAgent, subAgentPct)
	if err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}

	now := time.Now().UTC()
	pol := Policy{
		ID:         commission.PolicyID(uuid.NewString()),
		Number:     in.Number,
		CompanyID:  in.CompanyID,
		AgentID:    in.AgentID,
		SubAgentID: in.SubAgentID,
		ClientID:   in.ClientID,
		Type:       in.Type,
		Premium:    in.Premium,
		SumAssured: in.SumAssured,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Status:     StatusActive,
		CreatedAt:  now,
	}
	if err := lc.policies.CreatePolicy(ctx, pol); err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}

	eventID := in.EventID
	if eventID == "" {
		eventID = commission.EventID("issue:" + in.Number)
	}
	entry, created, err := lc.ledger.Record(ctx, commission.Commission{
		ID:             commission.CommissionID(uuid.NewString()),
		PolicyID:       pol.ID,
		AgentID:        pol.AgentID,
		SubAgentID:     pol.SubAgentID,
		Type:           commission.TypeNewBusiness,
		EventID:        eventID,
		Rate:           tier.Rate,
		Premium:        in.Premium,
		TotalAmount:    total,
		AgentAmount:    split.AgentAmount,
		SubAgentAmount: split.SubAgentAmount,
		Status:         commission.PaymentPending,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("issue policy %s: %w", in.Number, err)
	}

	renewal := Renewal{
		ID:        uuid.NewString(),
		PolicyID:  pol.ID,
		DueDate:   pol.EndDate,
		Status:    RenewalPending,
		CreatedAt: now,
	}
	if err := lc.policies.CreateRenewal(ctx, renewal); err != nil {
		return nil, fmt.Errorf("issue policy %s: schedule renewal: %w", in.Number, err)
	}

	return &IssueResult{Policy: pol, Commission: entry, CommissionCreated: created, Renewal: renewal}, nil
}

// =============================================================================
// RENEW - completed cycle + renewal commission + next cycle
// =============================================================================

type RenewInput struct {
	Premium    decimal.Decimal
	NewEndDate time.Time

	// EventID defaults to "renewal:" + the renewal's ID.
	EventID commission.EventID
}

type RenewResult struct {
	Policy            Policy
	Renewal           Renewal
	NextRenewal       Renewal
	Commission        commission.Commission
	CommissionCreated bool
}

// CompleteRenewal collects a renewal: records the renewal commission,
// marks the cycle completed, extends the policy, and opens the next
// cycle. Re-submitting a completed renewal with the same event returns
// the original outcome.
func (lc *Lifecycle) CompleteRenewal(ctx context.Context, renewalID string, in RenewInput) (*RenewResult, error) {
	renewal, err := lc.policies.GetRenewal(ctx, renewalID)
	if err != nil {
		return nil, err
	}
	pol, err := lc.policies.GetPolicy(ctx, renewal.PolicyID)
	if err != nil {
		return nil, err
	}

	eventID := in.EventID
	if eventID == "" {
		eventID = commission.EventID("renewal:" + renewalID)
	}

	if renewal.Status != RenewalPending {
		// A retry of an already-applied renewal is not an error when
		// the same event produced the existing commission.
		return lc.replayCompletedRenewal(ctx, *renewal, *pol, eventID)
	}
	if pol.Status != StatusActive {
		return nil, &InvalidTransitionError{PolicyID: string(pol.ID), From: pol.Status, Action: "renew"}
	}
	if !in.Premium.IsPositive() {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, commission.ErrInvalidPremium)
	}
	if !in.NewEndDate.After(renewal.DueDate) {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, ErrInvalidPolicyDates)
	}

	_, tier, err := lc.resolver.Resolve(ctx, pol.CompanyID, pol.Type, in.Premium, renewal.DueDate)
	if err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}
	total := commission.AmountFor(in.Premium, tier.Rate)

	hasSubAgent := pol.SubAgentID != ""
	var subAgentPct decimal.Decimal
	if hasSubAgent {
		sub, err := lc.directory.GetSubAgent(ctx, pol.SubAgentID)
		if err != nil {
			return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
		}
		subAgentPct = sub.SplitPercent
	}
	split, err := commission.Allocate(total, hasSubAgent, subAgentPct)
	if err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}

	now := time.Now().UTC()
	entry, created, err := lc.ledger.Record(ctx, commission.Commission{
		ID:             commission.CommissionID(uuid.NewString()),
		PolicyID:       pol.ID,
		AgentID:        pol.AgentID,
		SubAgentID:     pol.SubAgentID,
		Type:           commission.TypeRenewal,
		EventID:        eventID,
		Rate:           tier.Rate,
		Premium:        in.Premium,
		TotalAmount:    total,
		AgentAmount:    split.AgentAmount,
		SubAgentAmount: split.SubAgentAmount,
		Status:         commission.PaymentPending,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}

	if err := lc.policies.UpdateRenewalStatus(ctx, renewal.ID, RenewalCompleted, &now); err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}
	renewal.Status = RenewalCompleted
	renewal.CompletedAt = &now

	if err := lc.policies.ExtendPolicy(ctx, pol.ID, in.Premium, in.NewEndDate); err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}
	pol.Premium = in.Premium
	pol.EndDate = in.NewEndDate

	next, err := lc.openNextCycle(ctx, pol.ID, in.NewEndDate, now)
	if err != nil {
		return nil, fmt.Errorf("renew policy %s: %w", pol.Number, err)
	}

	return &RenewResult{
		Policy:            *pol,
		Renewal:           *renewal,
		NextRenewal:       *next,
		Commission:        entry,
		CommissionCreated: created,
	}, nil
}

// replayCompletedRenewal serves retries: when the cycle already
// completed and the ledger holds an entry for the same event, the
// original outcome is reconstructed. Any other terminal status is a
// real conflict.
func (lc *Lifecycle) replayCompletedRenewal(ctx context.Context, renewal Renewal, pol Policy, eventID commission.EventID) (*RenewResult, error) {
	if renewal.Status != RenewalCompleted {
		return nil, fmt.Errorf("renewal %s: %w", renewal.ID, ErrRenewalNotPending)
	}
	existing, err := lc.ledger.FindByEvent(ctx, pol.ID, commission.TypeRenewal, eventID)
	if err != nil {
		if errors.Is(err, commission.ErrCommissionNotFound) {
			return nil, fmt.Errorf("renewal %s: %w", renewal.ID, ErrRenewalNotPending)
		}
		return nil, err
	}
	next, err := lc.policies.GetPendingRenewal(ctx, pol.ID)
	if err != nil {
		if !errors.Is(err, ErrRenewalNotFound) {
			return nil, err
		}
		next = &Renewal{}
	}
	return &RenewResult{
		Policy:            pol,
		Renewal:           renewal,
		NextRenewal:       *next,
		Commission:        *existing,
		CommissionCreated: false,
	}, nil
}

// openNextCycle creates the next pending renewal unless a half-applied
// retry already did.
func (lc *Lifecycle) openNextCycle(ctx context.Context, policyID commission.PolicyID, dueDate time.Time, now time.Time) (*Renewal, error) {
	if existing, err := lc.policies.GetPendingRenewal(ctx, policyID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrRenewalNotFound) {
		return nil, err
	}
	next := Renewal{
		ID:        uuid.NewString(),
		PolicyID:  policyID,
		DueDate:   dueDate,
		Status:    RenewalPending,
		CreatedAt: now,
	}
	if err := lc.policies.CreateRenewal(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// =============================================================================
// LAPSE - missed renewal past its grace period
// =============================================================================

// LapseRenewal marks a missed cycle lapsed and the policy with it.
// The caller decides when the grace period has expired.
func (lc *Lifecycle) LapseRenewal(ctx context.Context, renewalID string) error {
	renewal, err := lc.policies.GetRenewal(ctx, renewalID)
	if err != nil {
		return err
	}
	if renewal.Status != RenewalPending {
		return fmt.Errorf("renewal %s: %w", renewalID, ErrRenewalNotPending)
	}
	pol, err := lc.policies.GetPolicy(ctx, renewal.PolicyID)
	if err != nil {
		return err
	}
	if pol.Status != StatusActive {
		return &InvalidTransitionError{PolicyID: string(pol.ID), From: pol.Status, Action: "lapse"}
	}
	if err := lc.policies.UpdateRenewalStatus(ctx, renewalID, RenewalLapsed, nil); err != nil {
		return err
	}
	return lc.policies.UpdatePolicyStatus(ctx, pol.ID, StatusLapsed)
}

// =============================================================================
// CANCEL - terminal; voids pending commissions, keeps paid ones
// =============================================================================

type CancelResult struct {
	Policy               Policy
	CancelledCommissions int
}

// Cancel moves a policy to cancelled, closes any open renewal cycle,
// and voids every pending commission. Paid commissions are untouched.
// A cancelled policy cannot be cancelled again.
func (lc *Lifecycle) Cancel(ctx context.Context, policyID commission.PolicyID) (*CancelResult, error) {
	pol, err := lc.policies.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if pol.Status == StatusCancelled {
		return nil, &InvalidTransitionError{PolicyID: string(pol.ID), From: pol.Status, Action: "cancel"}
	}

	if err := lc.policies.UpdatePolicyStatus(ctx, pol.ID, StatusCancelled); err != nil {
		return nil, err
	}
	pol.Status = StatusCancelled

	if open, err := lc.policies.GetPendingRenewal(ctx, pol.ID); err == nil {
		if err := lc.policies.UpdateRenewalStatus(ctx, open.ID, RenewalLapsed, nil); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, ErrRenewalNotFound) {
		return nil, err
	}

	n, err := lc.ledger.CancelPending(ctx, pol.ID)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Policy: *pol, CancelledCommissions: n}, nil
}
