/*
Package policy implements the insurance policy lifecycle on top of the
commission engine.

PURPOSE:
  Defines the directory entities (companies, agents, sub-agents,
  clients), the policy and renewal records, and the Lifecycle service
  that drives status transitions and produces commission entries.

STATUS MODEL:
  Policy:  active -> lapsed (missed renewal past grace)
           active -> cancelled (explicit cancellation; terminal)
  Renewal: pending -> completed (renewal premium collected)
           pending -> lapsed (grace period expired or policy cancelled)

SEE ALSO:
  - lifecycle.go: Transition logic and commission orchestration
  - store.go: Persistence interfaces
*/
package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
)

// =============================================================================
// DIRECTORY ENTITIES
// =============================================================================

// Company is an insurance carrier whose products brokers sell.
type Company struct {
	ID        commission.CompanyID
	Code      string // Short unique code used in bulk import files
	Name      string
	CreatedAt time.Time
}

// Agent is a licensed broker who writes policies.
type Agent struct {
	ID        commission.AgentID
	Code      string // Short unique code used in bulk import files
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// SubAgent works under an agent and takes a fixed share of each
// commission the pair writes together.
type SubAgent struct {
	ID           commission.SubAgentID
	AgentID      commission.AgentID
	Name         string
	Email        string
	Phone        string
	SplitPercent decimal.Decimal // Share of commission in [0, 100]
	CreatedAt    time.Time
}

// Client is the policyholder.
type Client struct {
	ID        commission.ClientID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// =============================================================================
// POLICY
// =============================================================================

type Status string

const (
	StatusActive    Status = "active"
	StatusLapsed    Status = "lapsed"
	StatusCancelled Status = "cancelled" // Terminal
)

type Policy struct {
	ID     commission.PolicyID
	Number string // Carrier policy number, unique system-wide

	CompanyID  commission.CompanyID
	AgentID    commission.AgentID
	SubAgentID commission.SubAgentID // Empty when the agent wrote it alone
	ClientID   commission.ClientID

	Type       string // e.g. "motor", "health", "life"
	Premium    decimal.Decimal
	SumAssured decimal.Decimal

	StartDate time.Time
	EndDate   time.Time

	Status    Status
	CreatedAt time.Time
}

// =============================================================================
// RENEWAL
// =============================================================================

type RenewalStatus string

const (
	RenewalPending   RenewalStatus = "pending"
	RenewalCompleted RenewalStatus = "completed"
	RenewalLapsed    RenewalStatus = "lapsed"
)

// Renewal tracks one renewal cycle. A pending renewal is created when
// a policy is issued or renewed, dated at the policy's end date.
type Renewal struct {
	ID       string
	PolicyID commission.PolicyID

	// DueDate is the policy end date this cycle renews.
	DueDate time.Time

	Status      RenewalStatus
	CompletedAt *time.Time

	// ReminderSentAt records the last reminder notification, so the
	// scheduler does not re-send on every tick.
	ReminderSentAt *time.Time

	CreatedAt time.Time
}
