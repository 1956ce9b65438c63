package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
	"github.com/covera/brokerage-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store     *memory.Store
	lifecycle *policy.Lifecycle
	ledger    *commission.Ledger
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newFixture seeds company ICICI, agent AG-1 with sub-agent sub-1 at a
// 30% split, client cl-1, and a flat 15% motor rule from 2024.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.CreateCompany(ctx, policy.Company{
		ID: "co-icici", Code: "ICICI", Name: "ICICI Lombard", CreatedAt: date(2024, 1, 1),
	}))
	require.NoError(t, store.CreateAgent(ctx, policy.Agent{
		ID: "agent-1", Code: "AG-1", Name: "Asha Rao", CreatedAt: date(2024, 1, 1),
	}))
	require.NoError(t, store.CreateSubAgent(ctx, policy.SubAgent{
		ID: "sub-1", AgentID: "agent-1", Name: "Vikram Shetty", SplitPercent: dec("30"), CreatedAt: date(2024, 1, 1),
	}))
	require.NoError(t, store.CreateClient(ctx, policy.Client{
		ID: "cl-1", Name: "Meera Nair", Email: "meera@example.com", Phone: "+911234567890", CreatedAt: date(2024, 1, 1),
	}))
	require.NoError(t, store.SaveRule(ctx, commission.Rule{
		ID:            "rule-motor",
		CompanyID:     "co-icici",
		PolicyType:    "motor",
		Tiers:         []commission.Tier{{MinPremium: dec("0"), Rate: dec("15")}},
		EffectiveFrom: date(2024, 1, 1),
	}))

	ledger := commission.NewLedger(store)
	lifecycle := policy.NewLifecycle(store, store, commission.NewResolver(store), ledger)
	return &fixture{store: store, lifecycle: lifecycle, ledger: ledger}
}

func motorIssue(number string) policy.IssueInput {
	return policy.IssueInput{
		Number:    number,
		CompanyID: "co-icici",
		AgentID:   "agent-1",
		ClientID:  "cl-1",
		Type:      "motor",
		Premium:   dec("15000"),
		StartDate: date(2025, 3, 1),
		EndDate:   date(2026, 3, 1),
	}
}

// =============================================================================
// ISSUE
// =============================================================================

func TestIssue_MotorPolicyEndToEnd(t *testing.T) {
	// GIVEN: ICICI, motor, flat 15% rule, no sub-agent
	// WHEN: Issuing with premium 15000
	// THEN: Commission total 2250, all of it the agent's, a pending
	//       renewal is scheduled at the end date

	f := newFixture(t)
	ctx := context.Background()

	result, err := f.lifecycle.Issue(ctx, motorIssue("POL-001"))
	require.NoError(t, err)

	assert.Equal(t, policy.StatusActive, result.Policy.Status)
	assert.True(t, result.CommissionCreated)
	assert.Equal(t, commission.TypeNewBusiness, result.Commission.Type)
	assert.True(t, result.Commission.TotalAmount.Equal(dec("2250")), "total %s", result.Commission.TotalAmount)
	assert.True(t, result.Commission.AgentAmount.Equal(dec("2250")))
	assert.True(t, result.Commission.SubAgentAmount.IsZero())
	assert.Equal(t, commission.PaymentPending, result.Commission.Status)

	assert.Equal(t, policy.RenewalPending, result.Renewal.Status)
	assert.True(t, result.Renewal.DueDate.Equal(date(2026, 3, 1)))
}

func TestIssue_WithSubAgentSplit(t *testing.T) {
	// 30% of 2250 is 675 to the sub-agent, 1575 remains with the agent.
	f := newFixture(t)

	in := motorIssue("POL-002")
	in.SubAgentID = "sub-1"
	result, err := f.lifecycle.Issue(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.Commission.SubAgentAmount.Equal(dec("675")))
	assert.True(t, result.Commission.AgentAmount.Equal(dec("1575")))
	assert.True(t, result.Commission.AgentAmount.Add(result.Commission.SubAgentAmount).Equal(result.Commission.TotalAmount))
}

func TestIssue_SubAgentMustBelongToAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateAgent(ctx, policy.Agent{ID: "agent-2", Code: "AG-2", Name: "Other"}))

	in := motorIssue("POL-003")
	in.AgentID = "agent-2"
	in.SubAgentID = "sub-1" // works under agent-1
	_, err := f.lifecycle.Issue(ctx, in)
	assert.ErrorIs(t, err, policy.ErrSubAgentNotFound)
}

func TestIssue_DuplicatePolicyNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lifecycle.Issue(ctx, motorIssue("POL-004"))
	require.NoError(t, err)

	_, err = f.lifecycle.Issue(ctx, motorIssue("POL-004"))
	assert.ErrorIs(t, err, policy.ErrDuplicatePolicyNumber)
}

func TestIssue_NoRuleConfigured(t *testing.T) {
	f := newFixture(t)

	in := motorIssue("POL-005")
	in.Type = "health"
	_, err := f.lifecycle.Issue(context.Background(), in)
	assert.ErrorIs(t, err, commission.ErrRuleNotFound)
}

func TestIssue_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := motorIssue("POL-006")
	in.Premium = dec("0")
	_, err := f.lifecycle.Issue(ctx, in)
	assert.ErrorIs(t, err, commission.ErrInvalidPremium)

	in = motorIssue("POL-007")
	in.EndDate = in.StartDate
	_, err = f.lifecycle.Issue(ctx, in)
	assert.ErrorIs(t, err, policy.ErrInvalidPolicyDates)

	// An empty number is bad input, not a missing resource.
	in = motorIssue("")
	_, err = f.lifecycle.Issue(ctx, in)
	assert.ErrorIs(t, err, policy.ErrMissingPolicyNumber)
	assert.False(t, policy.IsNotFound(err))
}

func TestIssue_RetrySameEventDoesNotDoubleBook(t *testing.T) {
	// GIVEN: A policy issued with an explicit event ID
	// WHEN: A second policy write fails on the duplicate number but the
	//       commission event is replayed directly through the ledger
	// THEN: The ledger still holds exactly one new_business entry

	f := newFixture(t)
	ctx := context.Background()

	in := motorIssue("POL-008")
	in.EventID = "issue:POL-008"
	result, err := f.lifecycle.Issue(ctx, in)
	require.NoError(t, err)

	replayed, created, err := f.ledger.Record(ctx, commission.Commission{
		ID:       "different-id",
		PolicyID: result.Policy.ID,
		AgentID:  "agent-1",
		Type:     commission.TypeNewBusiness,
		EventID:  "issue:POL-008",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, result.Commission.ID, replayed.ID)
}

// =============================================================================
// RENEWAL
// =============================================================================

func TestCompleteRenewal_OpensNextCycle(t *testing.T) {
	// GIVEN: An active policy with a pending renewal
	// WHEN: Completing the renewal with a higher premium
	// THEN: A renewal commission is booked against the new premium, the
	//       policy extends, and the next cycle is pending

	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-010"))
	require.NoError(t, err)

	result, err := f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, policy.RenewInput{
		Premium:    dec("16000"),
		NewEndDate: date(2027, 3, 1),
	})
	require.NoError(t, err)

	assert.True(t, result.CommissionCreated)
	assert.Equal(t, commission.TypeRenewal, result.Commission.Type)
	assert.True(t, result.Commission.TotalAmount.Equal(dec("2400")), "total %s", result.Commission.TotalAmount)

	assert.Equal(t, policy.RenewalCompleted, result.Renewal.Status)
	require.NotNil(t, result.Renewal.CompletedAt)

	assert.True(t, result.Policy.Premium.Equal(dec("16000")))
	assert.True(t, result.Policy.EndDate.Equal(date(2027, 3, 1)))

	assert.Equal(t, policy.RenewalPending, result.NextRenewal.Status)
	assert.True(t, result.NextRenewal.DueDate.Equal(date(2027, 3, 1)))
}

func TestCompleteRenewal_RetryYieldsSingleCommission(t *testing.T) {
	// GIVEN: A renewal completed once
	// WHEN: The same completion is submitted again
	// THEN: The original commission comes back, created=false, and the
	//       policy holds exactly one renewal entry

	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-011"))
	require.NoError(t, err)

	in := policy.RenewInput{Premium: dec("16000"), NewEndDate: date(2027, 3, 1)}
	first, err := f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, in)
	require.NoError(t, err)
	require.True(t, first.CommissionCreated)

	second, err := f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, in)
	require.NoError(t, err)

	assert.False(t, second.CommissionCreated)
	assert.Equal(t, first.Commission.ID, second.Commission.ID)
	assert.Equal(t, first.NextRenewal.ID, second.NextRenewal.ID)

	entries, err := f.store.ListCommissionsByPolicy(ctx, issued.Policy.ID)
	require.NoError(t, err)
	renewals := 0
	for _, e := range entries {
		if e.Type == commission.TypeRenewal {
			renewals++
		}
	}
	assert.Equal(t, 1, renewals)
}

func TestCompleteRenewal_DifferentEventOnCompletedCycleConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-012"))
	require.NoError(t, err)

	_, err = f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, policy.RenewInput{
		Premium: dec("16000"), NewEndDate: date(2027, 3, 1), EventID: "ev-a",
	})
	require.NoError(t, err)

	_, err = f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, policy.RenewInput{
		Premium: dec("17000"), NewEndDate: date(2027, 6, 1), EventID: "ev-b",
	})
	assert.ErrorIs(t, err, policy.ErrRenewalNotPending)
}

func TestLapseRenewal(t *testing.T) {
	// GIVEN: An active policy with a pending renewal past its grace
	// WHEN: Lapsing the renewal
	// THEN: Renewal and policy both move to lapsed, no commission added

	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-013"))
	require.NoError(t, err)

	before, err := f.store.ListCommissionsByPolicy(ctx, issued.Policy.ID)
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.LapseRenewal(ctx, issued.Renewal.ID))

	renewal, err := f.store.GetRenewal(ctx, issued.Renewal.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RenewalLapsed, renewal.Status)

	pol, err := f.store.GetPolicy(ctx, issued.Policy.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.StatusLapsed, pol.Status)

	after, err := f.store.ListCommissionsByPolicy(ctx, issued.Policy.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	// A lapsed renewal cannot lapse twice.
	err = f.lifecycle.LapseRenewal(ctx, issued.Renewal.ID)
	assert.ErrorIs(t, err, policy.ErrRenewalNotPending)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_VoidsPendingKeepsPaid(t *testing.T) {
	// GIVEN: A policy with one paid and one pending commission
	// WHEN: Cancelling the policy
	// THEN: The pending entry is cancelled, the paid one untouched, and
	//       the open renewal cycle is closed

	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-020"))
	require.NoError(t, err)

	renewed, err := f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, policy.RenewInput{
		Premium: dec("16000"), NewEndDate: date(2027, 3, 1),
	})
	require.NoError(t, err)

	_, err = f.ledger.MarkPaid(ctx, issued.Commission.ID, time.Now().UTC())
	require.NoError(t, err)

	result, err := f.lifecycle.Cancel(ctx, issued.Policy.ID)
	require.NoError(t, err)

	assert.Equal(t, policy.StatusCancelled, result.Policy.Status)
	assert.Equal(t, 1, result.CancelledCommissions)

	paid, err := f.store.GetCommission(ctx, issued.Commission.ID)
	require.NoError(t, err)
	assert.Equal(t, commission.PaymentPaid, paid.Status)

	voided, err := f.store.GetCommission(ctx, renewed.Commission.ID)
	require.NoError(t, err)
	assert.Equal(t, commission.PaymentCancelled, voided.Status)

	open, err := f.store.GetRenewal(ctx, renewed.NextRenewal.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RenewalLapsed, open.Status)
}

func TestCancel_CancelledPolicyIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-021"))
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, issued.Policy.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, issued.Policy.ID)
	assert.ErrorIs(t, err, policy.ErrPolicyCancelled)

	var transition *policy.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestCancel_RenewalOnCancelledPolicyRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.lifecycle.Issue(ctx, motorIssue("POL-022"))
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, issued.Policy.ID)
	require.NoError(t, err)

	// Cancel already closed the pending cycle, so the renewal is no
	// longer pending.
	_, err = f.lifecycle.CompleteRenewal(ctx, issued.Renewal.ID, policy.RenewInput{
		Premium: dec("16000"), NewEndDate: date(2027, 3, 1),
	})
	assert.ErrorIs(t, err, policy.ErrRenewalNotPending)
}
