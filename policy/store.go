/*
store.go - Persistence interfaces for policies, renewals, and the directory

PURPOSE:
  What the lifecycle and bulk import need from storage. Implemented by
  store/memory (tests, development) and store/sqlite (production).

SEE ALSO:
  - lifecycle.go: Uses Store
  - bulkimport: Uses Directory for code resolution
*/
package policy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
)

// Store persists policies and renewal cycles.
type Store interface {
	// CreatePolicy stores a new policy. Returns ErrDuplicatePolicyNumber
	// when the number is taken.
	CreatePolicy(ctx context.Context, p Policy) error

	// GetPolicy returns a policy by ID, or ErrPolicyNotFound.
	GetPolicy(ctx context.Context, id commission.PolicyID) (*Policy, error)

	// GetPolicyByNumber returns a policy by number, or ErrPolicyNotFound.
	GetPolicyByNumber(ctx context.Context, number string) (*Policy, error)

	// PolicyNumberExists reports whether a number is already taken.
	PolicyNumberExists(ctx context.Context, number string) (bool, error)

	// ListPolicies returns every policy, newest first.
	ListPolicies(ctx context.Context) ([]Policy, error)

	// ListPoliciesByAgent returns an agent's policies, newest first.
	ListPoliciesByAgent(ctx context.Context, agentID commission.AgentID) ([]Policy, error)

	// UpdatePolicyStatus moves a policy to a new status.
	UpdatePolicyStatus(ctx context.Context, id commission.PolicyID, status Status) error

	// ExtendPolicy applies a completed renewal: new premium and end date.
	ExtendPolicy(ctx context.Context, id commission.PolicyID, premium decimal.Decimal, endDate time.Time) error

	// CreateRenewal stores a new renewal cycle.
	CreateRenewal(ctx context.Context, r Renewal) error

	// GetRenewal returns a renewal by ID, or ErrRenewalNotFound.
	GetRenewal(ctx context.Context, id string) (*Renewal, error)

	// GetPendingRenewal returns the policy's pending cycle, or
	// ErrRenewalNotFound when none is open.
	GetPendingRenewal(ctx context.Context, policyID commission.PolicyID) (*Renewal, error)

	// UpdateRenewalStatus moves a renewal to a new status, recording
	// completion time for completed cycles.
	UpdateRenewalStatus(ctx context.Context, id string, status RenewalStatus, completedAt *time.Time) error

	// ListDueRenewals returns pending renewals with DueDate <= by,
	// soonest first.
	ListDueRenewals(ctx context.Context, by time.Time) ([]Renewal, error)

	// MarkRenewalReminded records that a reminder went out.
	MarkRenewalReminded(ctx context.Context, id string, at time.Time) error
}

// Directory resolves and manages the parties on a policy.
type Directory interface {
	CreateCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, id commission.CompanyID) (*Company, error)
	GetCompanyByCode(ctx context.Context, code string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	CreateAgent(ctx context.Context, a Agent) error
	GetAgent(ctx context.Context, id commission.AgentID) (*Agent, error)
	GetAgentByCode(ctx context.Context, code string) (*Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)

	CreateSubAgent(ctx context.Context, s SubAgent) error
	GetSubAgent(ctx context.Context, id commission.SubAgentID) (*SubAgent, error)
	ListSubAgentsByAgent(ctx context.Context, agentID commission.AgentID) ([]SubAgent, error)

	CreateClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id commission.ClientID) (*Client, error)
	FindClientByEmail(ctx context.Context, email string) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
}
