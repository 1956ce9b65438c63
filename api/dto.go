/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CONVENTIONS:
  Money fields are JSON strings ("2250.00"), never floats, so clients
  round-trip exact amounts. Dates are ISO 8601 (YYYY-MM-DD); timestamps
  are RFC 3339.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/covera/brokerage-engine/bulkimport"
	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
)

const dateLayout = "2006-01-02"

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

type CompanyDTO struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateCompanyRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type AgentDTO struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateAgentRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SubAgentDTO struct {
	ID           string `json:"id"`
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	SplitPercent string `json:"split_percent"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type CreateSubAgentRequest struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	SplitPercent string `json:"split_percent"`
}

type ClientDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// =============================================================================
// COMMISSION RULE TYPES
// =============================================================================

type TierDTO struct {
	MinPremium string  `json:"min_premium"`
	MaxPremium *string `json:"max_premium"` // null = open-ended
	Rate       string  `json:"rate"`
}

type RuleDTO struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	PolicyType    string    `json:"policy_type"`
	Tiers         []TierDTO `json:"tiers"`
	EffectiveFrom string    `json:"effective_from"`
	EffectiveTo   *string   `json:"effective_to,omitempty"`
	CreatedAt     string    `json:"created_at,omitempty"`
}

type CreateRuleRequest struct {
	CompanyID     string    `json:"company_id"`
	PolicyType    string    `json:"policy_type"`
	Tiers         []TierDTO `json:"tiers"`
	EffectiveFrom string    `json:"effective_from"`
	EffectiveTo   *string   `json:"effective_to,omitempty"`

	// Supersede closes the currently open rule for the same scope at
	// this rule's effective_from instead of rejecting the overlap.
	Supersede bool `json:"supersede,omitempty"`
}

// =============================================================================
// POLICY TYPES
// =============================================================================

type PolicyDTO struct {
	ID           string `json:"id"`
	PolicyNumber string `json:"policy_number"`
	CompanyID    string `json:"company_id"`
	AgentID      string `json:"agent_id"`
	SubAgentID   string `json:"sub_agent_id,omitempty"`
	ClientID     string `json:"client_id"`
	PolicyType   string `json:"policy_type"`
	Premium      string `json:"premium"`
	SumAssured   string `json:"sum_assured"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type IssuePolicyRequest struct {
	PolicyNumber string `json:"policy_number"`
	CompanyID    string `json:"company_id"`
	AgentID      string `json:"agent_id"`
	SubAgentID   string `json:"sub_agent_id,omitempty"`
	ClientID     string `json:"client_id"`
	PolicyType   string `json:"policy_type"`
	Premium      string `json:"premium"`
	SumAssured   string `json:"sum_assured"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	EventID      string `json:"event_id,omitempty"`
}

type IssuePolicyResponse struct {
	Policy     PolicyDTO     `json:"policy"`
	Commission CommissionDTO `json:"commission"`
	Renewal    RenewalDTO    `json:"renewal"`
}

type CancelPolicyResponse struct {
	Policy               PolicyDTO `json:"policy"`
	CancelledCommissions int       `json:"cancelled_commissions"`
}

// =============================================================================
// RENEWAL TYPES
// =============================================================================

type RenewalDTO struct {
	ID             string  `json:"id"`
	PolicyID       string  `json:"policy_id"`
	DueDate        string  `json:"due_date"`
	Status         string  `json:"status"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	ReminderSentAt *string `json:"reminder_sent_at,omitempty"`
}

type CompleteRenewalRequest struct {
	Premium    string `json:"premium"`
	NewEndDate string `json:"new_end_date"`
	EventID    string `json:"event_id,omitempty"`
}

type CompleteRenewalResponse struct {
	Policy      PolicyDTO     `json:"policy"`
	Renewal     RenewalDTO    `json:"renewal"`
	NextRenewal RenewalDTO    `json:"next_renewal"`
	Commission  CommissionDTO `json:"commission"`
}

// =============================================================================
// COMMISSION TYPES
// =============================================================================

type CommissionDTO struct {
	ID             string  `json:"id"`
	PolicyID       string  `json:"policy_id"`
	AgentID        string  `json:"agent_id"`
	SubAgentID     string  `json:"sub_agent_id,omitempty"`
	Type           string  `json:"type"`
	EventID        string  `json:"event_id"`
	Rate           string  `json:"rate"`
	Premium        string  `json:"premium"`
	TotalAmount    string  `json:"total_amount"`
	AgentAmount    string  `json:"agent_amount"`
	SubAgentAmount string  `json:"sub_agent_amount"`
	Status         string  `json:"status"`
	PaidAt         *string `json:"paid_at,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

type SummaryDTO struct {
	AgentID        string `json:"agent_id"`
	Total          string `json:"total"`
	Paid           string `json:"paid"`
	Pending        string `json:"pending"`
	Cancelled      string `json:"cancelled"`
	EntryCount     int    `json:"entry_count"`
	CancelledCount int    `json:"cancelled_count"`
}

// =============================================================================
// BULK IMPORT TYPES
// =============================================================================

type ImportResultDTO struct {
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
	Errors     []bulkimport.RowError `json:"errors"`
	Policies   []PolicyDTO           `json:"policies"`
}

// =============================================================================
// NOTIFICATION TYPES
// =============================================================================

type NotificationResultDTO struct {
	Channel  string `json:"channel"`
	Provider string `json:"provider,omitempty"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCompanyDTO(c policy.Company) CompanyDTO {
	return CompanyDTO{
		ID:        string(c.ID),
		Code:      c.Code,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toAgentDTO(a policy.Agent) AgentDTO {
	return AgentDTO{
		ID:        string(a.ID),
		Code:      a.Code,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func toSubAgentDTO(s policy.SubAgent) SubAgentDTO {
	return SubAgentDTO{
		ID:           string(s.ID),
		AgentID:      string(s.AgentID),
		Name:         s.Name,
		Email:        s.Email,
		Phone:        s.Phone,
		SplitPercent: s.SplitPercent.StringFixed(2),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

func toClientDTO(c policy.Client) ClientDTO {
	return ClientDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toRuleDTO(r commission.Rule) RuleDTO {
	tiers := make([]TierDTO, len(r.Tiers))
	for i, t := range r.Tiers {
		tiers[i] = TierDTO{
			MinPremium: t.MinPremium.String(),
			Rate:       t.Rate.String(),
		}
		if t.MaxPremium != nil {
			max := t.MaxPremium.String()
			tiers[i].MaxPremium = &max
		}
	}
	dto := RuleDTO{
		ID:            string(r.ID),
		CompanyID:     string(r.CompanyID),
		PolicyType:    r.PolicyType,
		Tiers:         tiers,
		EffectiveFrom: r.EffectiveFrom.Format(dateLayout),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		to := r.EffectiveTo.Format(dateLayout)
		dto.EffectiveTo = &to
	}
	return dto
}

func toPolicyDTO(p policy.Policy) PolicyDTO {
	return PolicyDTO{
		ID:           string(p.ID),
		PolicyNumber: p.Number,
		CompanyID:    string(p.CompanyID),
		AgentID:      string(p.AgentID),
		SubAgentID:   string(p.SubAgentID),
		ClientID:     string(p.ClientID),
		PolicyType:   p.Type,
		Premium:      p.Premium.StringFixed(2),
		SumAssured:   p.SumAssured.StringFixed(2),
		StartDate:    p.StartDate.Format(dateLayout),
		EndDate:      p.EndDate.Format(dateLayout),
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func toPolicyDTOs(ps []policy.Policy) []PolicyDTO {
	dtos := make([]PolicyDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPolicyDTO(p)
	}
	return dtos
}

func toRenewalDTO(r policy.Renewal) RenewalDTO {
	dto := RenewalDTO{
		ID:       r.ID,
		PolicyID: string(r.PolicyID),
		DueDate:  r.DueDate.Format(dateLayout),
		Status:   string(r.Status),
	}
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	if r.ReminderSentAt != nil {
		s := r.ReminderSentAt.Format(time.RFC3339)
		dto.ReminderSentAt = &s
	}
	return dto
}

func toCommissionDTO(c commission.Commission) CommissionDTO {
	dto := CommissionDTO{
		ID:             string(c.ID),
		PolicyID:       string(c.PolicyID),
		AgentID:        string(c.AgentID),
		SubAgentID:     string(c.SubAgentID),
		Type:           string(c.Type),
		EventID:        string(c.EventID),
		Rate:           c.Rate.String(),
		Premium:        c.Premium.StringFixed(2),
		TotalAmount:    c.TotalAmount.StringFixed(2),
		AgentAmount:    c.AgentAmount.StringFixed(2),
		SubAgentAmount: c.SubAgentAmount.StringFixed(2),
		Status:         string(c.Status),
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
	if c.PaidAt != nil {
		s := c.PaidAt.Format(time.RFC3339)
		dto.PaidAt = &s
	}
	return dto
}

func toCommissionDTOs(cs []commission.Commission) []CommissionDTO {
	dtos := make([]CommissionDTO, len(cs))
	for i, c := range cs {
		dtos[i] = toCommissionDTO(c)
	}
	return dtos
}

func toSummaryDTO(s commission.Summary) SummaryDTO {
	return SummaryDTO{
		AgentID:        string(s.AgentID),
		Total:          s.Total.StringFixed(2),
		Paid:           s.Paid.StringFixed(2),
		Pending:        s.Pending.StringFixed(2),
		Cancelled:      s.Cancelled.StringFixed(2),
		EntryCount:     s.EntryCount,
		CancelledCount: s.CancelledCount,
	}
}

func toNotificationResultDTO(channel, provider string, status string, err error) NotificationResultDTO {
	dto := NotificationResultDTO{Channel: channel, Provider: provider, Status: status}
	if err != nil {
		dto.Detail = err.Error()
	}
	return dto
}
