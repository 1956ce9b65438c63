// Package memory provides an in-memory store for testing and development.
// It implements the commission and policy persistence interfaces with
// the same uniqueness guarantees as the SQLite store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
)

type Store struct {
	mu sync.RWMutex

	companies map[commission.CompanyID]policy.Company
	agents    map[commission.AgentID]policy.Agent
	subAgents map[commission.SubAgentID]policy.SubAgent
	clients   map[commission.ClientID]policy.Client

	policies map[commission.PolicyID]policy.Policy
	renewals map[string]policy.Renewal
	rules    map[commission.RuleID]commission.Rule

	commissions map[commission.CommissionID]commission.Commission
	eventKeys   map[eventKey]commission.CommissionID
}

type eventKey struct {
	PolicyID commission.PolicyID
	Type     commission.CommissionType
	EventID  commission.EventID
}

func New() *Store {
	return &Store{
		companies:   make(map[commission.CompanyID]policy.Company),
		agents:      make(map[commission.AgentID]policy.Agent),
		subAgents:   make(map[commission.SubAgentID]policy.SubAgent),
		clients:     make(map[commission.ClientID]policy.Client),
		policies:    make(map[commission.PolicyID]policy.Policy),
		renewals:    make(map[string]policy.Renewal),
		rules:       make(map[commission.RuleID]commission.Rule),
		commissions: make(map[commission.CommissionID]commission.Commission),
		eventKeys:   make(map[eventKey]commission.CommissionID),
	}
}

// =============================================================================
// COMMISSION STORE
// =============================================================================

func (s *Store) CreateCommission(_ context.Context, c commission.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := eventKey{PolicyID: c.PolicyID, Type: c.Type, EventID: c.EventID}
	if _, exists := s.eventKeys[k]; exists {
		return commission.ErrDuplicateCommissionEvent
	}
	s.commissions[c.ID] = c
	s.eventKeys[k] = c.ID
	return nil
}

func (s *Store) GetCommission(_ context.Context, id commission.CommissionID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commissions[id]
	if !ok {
		return nil, commission.ErrCommissionNotFound
	}
	return &c, nil
}

func (s *Store) GetCommissionByEvent(_ context.Context, policyID commission.PolicyID, cType commission.CommissionType, eventID commission.EventID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.eventKeys[eventKey{PolicyID: policyID, Type: cType, EventID: eventID}]
	if !ok {
		return nil, commission.ErrCommissionNotFound
	}
	c := s.commissions[id]
	return &c, nil
}

func (s *Store) ListCommissionsByPolicy(_ context.Context, policyID commission.PolicyID) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []commission.Commission
	for _, c := range s.commissions {
		if c.PolicyID == policyID {
			result = append(result, c)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (s *Store) ListCommissionsByAgent(_ context.Context, agentID commission.AgentID) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []commission.Commission
	for _, c := range s.commissions {
		if c.AgentID == agentID {
			result = append(result, c)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (s *Store) ListCommissions(_ context.Context) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]commission.Commission, 0, len(s.commissions))
	for _, c := range s.commissions {
		result = append(result, c)
	}
	sortByCreation(result)
	return result, nil
}

func (s *Store) MarkCommissionPaid(_ context.Context, id commission.CommissionID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok {
		return commission.ErrCommissionNotFound
	}
	if c.Terminal() {
		return commission.ErrCommissionTerminal
	}
	c.Status = commission.PaymentPaid
	c.PaidAt = &paidAt
	s.commissions[id] = c
	return nil
}

func (s *Store) CancelPendingCommissions(_ context.Context, policyID commission.PolicyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.commissions {
		if c.PolicyID == policyID && c.Status == commission.PaymentPending {
			c.Status = commission.PaymentCancelled
			s.commissions[id] = c
			n++
		}
	}
	return n, nil
}

func sortByCreation(cs []commission.Commission) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].CreatedAt.Before(cs[j].CreatedAt)
	})
}

// =============================================================================
// RULE STORE
// =============================================================================

func (s *Store) FindActiveRule(_ context.Context, companyID commission.CompanyID, policyType string, asOf time.Time) (*commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.CompanyID == companyID && r.PolicyType == policyType && r.EffectiveAt(asOf) {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

func (s *Store) SaveRule(_ context.Context, rule commission.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules {
		if existing.CompanyID == rule.CompanyID && existing.PolicyType == rule.PolicyType && existing.Overlaps(rule) {
			return commission.ErrOverlappingRule
		}
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *Store) CloseRule(_ context.Context, id commission.RuleID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return commission.ErrRuleNotFound
	}
	r.EffectiveTo = &at
	s.rules[id] = r
	return nil
}

func (s *Store) ListRules(_ context.Context, companyID commission.CompanyID, policyType string) ([]commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []commission.Rule
	for _, r := range s.rules {
		if r.CompanyID == companyID && r.PolicyType == policyType {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EffectiveFrom.After(result[j].EffectiveFrom)
	})
	return result, nil
}

// =============================================================================
// POLICY STORE
// =============================================================================

func (s *Store) CreatePolicy(_ context.Context, p policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.policies {
		if existing.Number == p.Number {
			return policy.ErrDuplicatePolicyNumber
		}
	}
	s.policies[p.ID] = p
	return nil
}

func (s *Store) GetPolicy(_ context.Context, id commission.PolicyID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, policy.ErrPolicyNotFound
	}
	return &p, nil
}

func (s *Store) GetPolicyByNumber(_ context.Context, number string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if p.Number == number {
			pol := p
			return &pol, nil
		}
	}
	return nil, policy.ErrPolicyNotFound
}

func (s *Store) PolicyNumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if p.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListPolicies(_ context.Context) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		result = append(result, p)
	}
	sortPoliciesNewestFirst(result)
	return result, nil
}

func (s *Store) ListPoliciesByAgent(_ context.Context, agentID commission.AgentID) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []policy.Policy
	for _, p := range s.policies {
		if p.AgentID == agentID {
			result = append(result, p)
		}
	}
	sortPoliciesNewestFirst(result)
	return result, nil
}

func (s *Store) UpdatePolicyStatus(_ context.Context, id commission.PolicyID, status policy.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return policy.ErrPolicyNotFound
	}
	p.Status = status
	s.policies[id] = p
	return nil
}

func (s *Store) ExtendPolicy(_ context.Context, id commission.PolicyID, premium decimal.Decimal, endDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return policy.ErrPolicyNotFound
	}
	p.Premium = premium
	p.EndDate = endDate
	s.policies[id] = p
	return nil
}

func sortPoliciesNewestFirst(ps []policy.Policy) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].Number > ps[j].Number
		}
		return ps[i].CreatedAt.After(ps[j].CreatedAt)
	})
}

// =============================================================================
// RENEWALS
// =============================================================================

func (s *Store) CreateRenewal(_ context.Context, r policy.Renewal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewals[r.ID] = r
	return nil
}

func (s *Store) GetRenewal(_ context.Context, id string) (*policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.renewals[id]
	if !ok {
		return nil, policy.ErrRenewalNotFound
	}
	return &r, nil
}

func (s *Store) GetPendingRenewal(_ context.Context, policyID commission.PolicyID) (*policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.renewals {
		if r.PolicyID == policyID && r.Status == policy.RenewalPending {
			renewal := r
			return &renewal, nil
		}
	}
	return nil, policy.ErrRenewalNotFound
}

func (s *Store) UpdateRenewalStatus(_ context.Context, id string, status policy.RenewalStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renewals[id]
	if !ok {
		return policy.ErrRenewalNotFound
	}
	r.Status = status
	r.CompletedAt = completedAt
	s.renewals[id] = r
	return nil
}

func (s *Store) ListDueRenewals(_ context.Context, by time.Time) ([]policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []policy.Renewal
	for _, r := range s.renewals {
		if r.Status == policy.RenewalPending && !r.DueDate.After(by) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result, nil
}

func (s *Store) MarkRenewalReminded(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renewals[id]
	if !ok {
		return policy.ErrRenewalNotFound
	}
	r.ReminderSentAt = &at
	s.renewals[id] = r
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Store) CreateCompany(_ context.Context, c policy.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.companies {
		if strings.EqualFold(existing.Code, c.Code) {
			return policy.ErrDuplicateCode
		}
	}
	s.companies[c.ID] = c
	return nil
}

func (s *Store) GetCompany(_ context.Context, id commission.CompanyID) (*policy.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, policy.ErrCompanyNotFound
	}
	return &c, nil
}

func (s *Store) GetCompanyByCode(_ context.Context, code string) (*policy.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.companies {
		if strings.EqualFold(c.Code, code) {
			company := c
			return &company, nil
		}
	}
	return nil, policy.ErrCompanyNotFound
}

func (s *Store) ListCompanies(_ context.Context) ([]policy.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Company, 0, len(s.companies))
	for _, c := range s.companies {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) CreateAgent(_ context.Context, a policy.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.agents {
		if strings.EqualFold(existing.Code, a.Code) {
			return policy.ErrDuplicateCode
		}
	}
	s.agents[a.ID] = a
	return nil
}

func (s *Store) GetAgent(_ context.Context, id commission.AgentID) (*policy.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, policy.ErrAgentNotFound
	}
	return &a, nil
}

func (s *Store) GetAgentByCode(_ context.Context, code string) (*policy.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.agents {
		if strings.EqualFold(a.Code, code) {
			agent := a
			return &agent, nil
		}
	}
	return nil, policy.ErrAgentNotFound
}

func (s *Store) ListAgents(_ context.Context) ([]policy.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) CreateSubAgent(_ context.Context, sub policy.SubAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[sub.AgentID]; !ok {
		return policy.ErrAgentNotFound
	}
	s.subAgents[sub.ID] = sub
	return nil
}

func (s *Store) GetSubAgent(_ context.Context, id commission.SubAgentID) (*policy.SubAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subAgents[id]
	if !ok {
		return nil, policy.ErrSubAgentNotFound
	}
	return &sub, nil
}

func (s *Store) ListSubAgentsByAgent(_ context.Context, agentID commission.AgentID) ([]policy.SubAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []policy.SubAgent
	for _, sub := range s.subAgents {
		if sub.AgentID == agentID {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) CreateClient(_ context.Context, c policy.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
	return nil
}

func (s *Store) GetClient(_ context.Context, id commission.ClientID) (*policy.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, policy.ErrClientNotFound
	}
	return &c, nil
}

func (s *Store) FindClientByEmail(_ context.Context, email string) (*policy.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if strings.EqualFold(c.Email, email) {
			client := c
			return &client, nil
		}
	}
	return nil, policy.ErrClientNotFound
}

func (s *Store) ListClients(_ context.Context) ([]policy.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]policy.Client, 0, len(s.clients))
	for _, c := range s.clients {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
