/*
handlers.go - HTTP API handlers for the brokerage back office

PURPOSE:
  Exposes the commission engine and policy lifecycle via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Directory:
    GET    /api/companies               List carriers
    POST   /api/companies               Register carrier
    GET    /api/agents                  List agents
    POST   /api/agents                  Register agent (sends welcome email)
    GET    /api/agents/{id}             Agent details
    GET    /api/agents/{id}/policies    Agent's policy book
    GET    /api/agents/{id}/commissions Agent's commission entries
    GET    /api/agents/{id}/commissions/summary  Totals by payment status
    POST   /api/agents/{id}/sub-agents  Register sub-agent
    GET    /api/agents/{id}/sub-agents  List sub-agents
    GET    /api/clients                 List clients
    POST   /api/clients                 Register client

  Rules:
    GET    /api/rules                   List rules for a scope
    POST   /api/rules                   Create rule (optionally supersede)

  Policies:
    GET    /api/policies                List policies
    POST   /api/policies                Issue policy (commission + renewal cycle)
    GET    /api/policies/{id}           Policy details
    POST   /api/policies/{id}/cancel    Cancel (voids pending commissions)
    GET    /api/policies/{id}/commissions  Commission entries for the policy

  Renewals:
    GET    /api/renewals/due            Pending renewals due by a date
    POST   /api/renewals/{id}/complete  Collect a renewal
    POST   /api/renewals/{id}/lapse     Mark a missed renewal lapsed

  Commissions:
    GET    /api/commissions             Whole ledger (admin view)
    POST   /api/commissions/{id}/pay    Mark pending entry paid

  Import:
    POST   /api/import/policies         Bulk CSV import (body = CSV text)

  Admin:
    POST   /api/admin/renewals/run      Trigger the renewal check now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicates, terminal-state transitions)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background renewal processing
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/bulkimport"
	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/notify"
	"github.com/covera/brokerage-engine/policy"
	"github.com/covera/brokerage-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Ledger    *commission.Ledger
	Lifecycle *policy.Lifecycle
	Importer  *bulkimport.Importer
	Notifier  notify.Notifier

	scheduler *RenewalScheduler
}

// NewHandler wires the engine on top of the store.
func NewHandler(store *sqlite.Store, notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	ledger := commission.NewLedger(store)
	resolver := commission.NewResolver(store)
	lifecycle := policy.NewLifecycle(store, store, resolver, ledger)
	return &Handler{
		Store:     store,
		Ledger:    ledger,
		Lifecycle: lifecycle,
		Importer:  bulkimport.NewImporter(store, store, lifecycle),
		Notifier:  notifier,
	}
}

// SetScheduler lets the admin trigger endpoint reach the scheduler.
func (h *Handler) SetScheduler(s *RenewalScheduler) {
	h.scheduler = s
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.Store.GetCompany(r.Context(), commission.CompanyID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(*company))
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	company := policy.Company{
		ID:        commission.CompanyID(uuid.NewString()),
		Code:      req.Code,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateCompany(r.Context(), company); err != nil {
		writeDomainError(w, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(company))
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list agents", err)
		return
	}
	dtos := make([]AgentDTO, len(agents))
	for i, a := range agents {
		dtos[i] = toAgentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.Store.GetAgent(r.Context(), commission.AgentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(*agent))
}

func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	agent := policy.Agent{
		ID:        commission.AgentID(uuid.NewString()),
		Code:      req.Code,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateAgent(r.Context(), agent); err != nil {
		writeDomainError(w, "Failed to create agent", err)
		return
	}

	// Best-effort; the agent is created either way.
	welcome := h.Notifier.AgentWelcome(r.Context(), agent)

	writeJSON(w, http.StatusCreated, map[string]any{
		"agent":        toAgentDTO(agent),
		"notification": toNotificationResultDTO(welcome.Channel, welcome.Provider, string(welcome.Status), welcome.Err),
	})
}

func (h *Handler) ListAgentPolicies(w http.ResponseWriter, r *http.Request) {
	agentID := commission.AgentID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetAgent(r.Context(), agentID); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	policies, err := h.Store.ListPoliciesByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTOs(policies))
}

func (h *Handler) ListAgentCommissions(w http.ResponseWriter, r *http.Request) {
	agentID := commission.AgentID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetAgent(r.Context(), agentID); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	entries, err := h.Store.ListCommissionsByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTOs(entries))
}

func (h *Handler) GetAgentSummary(w http.ResponseWriter, r *http.Request) {
	agentID := commission.AgentID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetAgent(r.Context(), agentID); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	summary, err := commission.SummaryForAgent(r.Context(), h.Store, agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize commissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// SUB-AGENT HANDLERS
// =============================================================================

func (h *Handler) ListSubAgents(w http.ResponseWriter, r *http.Request) {
	agentID := commission.AgentID(chi.URLParam(r, "id"))
	subs, err := h.Store.ListSubAgentsByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sub-agents", err)
		return
	}
	dtos := make([]SubAgentDTO, len(subs))
	for i, s := range subs {
		dtos[i] = toSubAgentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSubAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateSubAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	agentID := commission.AgentID(chi.URLParam(r, "id"))
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	split, err := decimal.NewFromString(req.SplitPercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "split_percent is not a valid number", err)
		return
	}
	if split.IsNegative() || split.GreaterThan(decimal.NewFromInt(100)) {
		writeError(w, http.StatusBadRequest, "split_percent must be within [0, 100]", commission.ErrInvalidPercentage)
		return
	}

	sub := policy.SubAgent{
		ID:           commission.SubAgentID(uuid.NewString()),
		AgentID:      agentID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		SplitPercent: split,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.CreateSubAgent(r.Context(), sub); err != nil {
		writeDomainError(w, "Failed to create sub-agent", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubAgentDTO(sub))
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.Store.GetClient(r.Context(), commission.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*client))
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	client := policy.Client{
		ID:        commission.ClientID(uuid.NewString()),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateClient(r.Context(), client); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(client))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	companyID := commission.CompanyID(r.URL.Query().Get("company_id"))
	policyType := r.URL.Query().Get("policy_type")
	if companyID == "" || policyType == "" {
		writeError(w, http.StatusBadRequest, "company_id and policy_type query parameters are required", nil)
		return
	}
	rules, err := h.Store.ListRules(r.Context(), companyID, policyType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	companyID := commission.CompanyID(req.CompanyID)
	if _, err := h.Store.GetCompany(r.Context(), companyID); err != nil {
		writeDomainError(w, "Failed to resolve company", err)
		return
	}
	if req.PolicyType == "" {
		writeError(w, http.StatusBadRequest, "policy_type is required", nil)
		return
	}

	tiers, err := parseTiers(req.Tiers)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tiers", err)
		return
	}
	if err := commission.ValidateTiers(tiers); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier configuration", err)
		return
	}

	effectiveFrom, err := time.Parse(dateLayout, req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "effective_from must be YYYY-MM-DD", err)
		return
	}
	var effectiveTo *time.Time
	if req.EffectiveTo != nil {
		to, err := time.Parse(dateLayout, *req.EffectiveTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "effective_to must be YYYY-MM-DD", err)
			return
		}
		if !to.After(effectiveFrom) {
			writeError(w, http.StatusBadRequest, "effective_to must be after effective_from", nil)
			return
		}
		effectiveTo = &to
	}

	if req.Supersede {
		if open, err := h.Store.FindActiveRule(r.Context(), companyID, req.PolicyType, effectiveFrom); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to look up active rule", err)
			return
		} else if open != nil {
			if err := h.Store.CloseRule(r.Context(), open.ID, effectiveFrom); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to supersede rule", err)
				return
			}
		}
	}

	rule := commission.Rule{
		ID:            commission.RuleID(uuid.NewString()),
		CompanyID:     companyID,
		PolicyType:    req.PolicyType,
		Tiers:         tiers,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeDomainError(w, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

func parseTiers(dtos []TierDTO) ([]commission.Tier, error) {
	tiers := make([]commission.Tier, len(dtos))
	for i, t := range dtos {
		min, err := decimal.NewFromString(t.MinPremium)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(t.Rate)
		if err != nil {
			return nil, err
		}
		tiers[i] = commission.Tier{MinPremium: min, Rate: rate}
		if t.MaxPremium != nil {
			max, err := decimal.NewFromString(*t.MaxPremium)
			if err != nil {
				return nil, err
			}
			tiers[i].MaxPremium = &max
		}
	}
	return tiers, nil
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTOs(policies))
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	pol, err := h.Store.GetPolicy(r.Context(), commission.PolicyID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*pol))
}

func (h *Handler) IssuePolicy(w http.ResponseWriter, r *http.Request) {
	var req IssuePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PolicyNumber == "" {
		writeError(w, http.StatusBadRequest, "policy_number is required", nil)
		return
	}

	premium, err := decimal.NewFromString(req.Premium)
	if err != nil {
		writeError(w, http.StatusBadRequest, "premium is not a valid number", err)
		return
	}
	sumAssured := decimal.Zero
	if req.SumAssured != "" {
		sumAssured, err = decimal.NewFromString(req.SumAssured)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sum_assured is not a valid number", err)
			return
		}
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD", err)
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD", err)
		return
	}

	result, err := h.Lifecycle.Issue(r.Context(), policy.IssueInput{
		Number:     req.PolicyNumber,
		CompanyID:  commission.CompanyID(req.CompanyID),
		AgentID:    commission.AgentID(req.AgentID),
		SubAgentID: commission.SubAgentID(req.SubAgentID),
		ClientID:   commission.ClientID(req.ClientID),
		Type:       req.PolicyType,
		Premium:    premium,
		SumAssured: sumAssured,
		StartDate:  startDate,
		EndDate:    endDate,
		EventID:    commission.EventID(req.EventID),
	})
	if err != nil {
		writeDomainError(w, "Failed to issue policy", err)
		return
	}

	writeJSON(w, http.StatusCreated, IssuePolicyResponse{
		Policy:     toPolicyDTO(result.Policy),
		Commission: toCommissionDTO(result.Commission),
		Renewal:    toRenewalDTO(result.Renewal),
	})
}

func (h *Handler) CancelPolicy(w http.ResponseWriter, r *http.Request) {
	result, err := h.Lifecycle.Cancel(r.Context(), commission.PolicyID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to cancel policy", err)
		return
	}
	writeJSON(w, http.StatusOK, CancelPolicyResponse{
		Policy:               toPolicyDTO(result.Policy),
		CancelledCommissions: result.CancelledCommissions,
	})
}

func (h *Handler) ListPolicyCommissions(w http.ResponseWriter, r *http.Request) {
	policyID := commission.PolicyID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetPolicy(r.Context(), policyID); err != nil {
		writeDomainError(w, "Failed to get policy", err)
		return
	}
	entries, err := h.Store.ListCommissionsByPolicy(r.Context(), policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTOs(entries))
}

// =============================================================================
// RENEWAL HANDLERS
// =============================================================================

func (h *Handler) ListDueRenewals(w http.ResponseWriter, r *http.Request) {
	by := time.Now().UTC()
	if v := r.URL.Query().Get("by"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "by must be YYYY-MM-DD", err)
			return
		}
		by = parsed
	}
	renewals, err := h.Store.ListDueRenewals(r.Context(), by)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list due renewals", err)
		return
	}
	dtos := make([]RenewalDTO, len(renewals))
	for i, renewal := range renewals {
		dtos[i] = toRenewalDTO(renewal)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CompleteRenewal(w http.ResponseWriter, r *http.Request) {
	var req CompleteRenewalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	premium, err := decimal.NewFromString(req.Premium)
	if err != nil {
		writeError(w, http.StatusBadRequest, "premium is not a valid number", err)
		return
	}
	newEndDate, err := time.Parse(dateLayout, req.NewEndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "new_end_date must be YYYY-MM-DD", err)
		return
	}

	result, err := h.Lifecycle.CompleteRenewal(r.Context(), chi.URLParam(r, "id"), policy.RenewInput{
		Premium:    premium,
		NewEndDate: newEndDate,
		EventID:    commission.EventID(req.EventID),
	})
	if err != nil {
		writeDomainError(w, "Failed to complete renewal", err)
		return
	}

	// A replayed renewal returns 200, a fresh one 201.
	status := http.StatusCreated
	if !result.CommissionCreated {
		status = http.StatusOK
	}
	writeJSON(w, status, CompleteRenewalResponse{
		Policy:      toPolicyDTO(result.Policy),
		Renewal:     toRenewalDTO(result.Renewal),
		NextRenewal: toRenewalDTO(result.NextRenewal),
		Commission:  toCommissionDTO(result.Commission),
	})
}

func (h *Handler) LapseRenewal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Lifecycle.LapseRenewal(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to lapse renewal", err)
		return
	}
	renewal, err := h.Store.GetRenewal(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load renewal", err)
		return
	}
	writeJSON(w, http.StatusOK, toRenewalDTO(*renewal))
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.ListCommissions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTOs(entries))
}

func (h *Handler) PayCommission(w http.ResponseWriter, r *http.Request) {
	id := commission.CommissionID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.MarkPaid(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeDomainError(w, "Failed to mark commission paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(*entry))
}

// =============================================================================
// BULK IMPORT HANDLER
// =============================================================================

// ImportPolicies accepts the raw CSV as the request body.
func (h *Handler) ImportPolicies(w http.ResponseWriter, r *http.Request) {
	result, err := h.Importer.Import(r.Context(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Import failed", err)
		return
	}
	errs := result.Errors
	if errs == nil {
		errs = []bulkimport.RowError{}
	}
	writeJSON(w, http.StatusOK, ImportResultDTO{
		Successful: result.Successful,
		Failed:     result.Failed,
		Errors:     errs,
		Policies:   toPolicyDTOs(result.Policies),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

func (h *Handler) TriggerRenewalRun(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Renewal scheduler is not running", nil)
		return
	}
	report := h.scheduler.RunNow()
	writeJSON(w, http.StatusOK, map[string]any{
		"reminded": report.Reminded,
		"lapsed":   report.Lapsed,
		"failed":   report.Failed,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case policy.IsNotFound(err) || commission.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, policy.ErrDuplicatePolicyNumber),
		errors.Is(err, policy.ErrDuplicateCode),
		errors.Is(err, commission.ErrOverlappingRule),
		errors.Is(err, policy.ErrPolicyCancelled),
		errors.Is(err, policy.ErrPolicyNotActive),
		errors.Is(err, policy.ErrRenewalNotPending),
		errors.Is(err, commission.ErrCommissionTerminal):
		status = http.StatusConflict
	case errors.Is(err, commission.ErrInvalidPercentage),
		errors.Is(err, commission.ErrInvalidPremium),
		errors.Is(err, commission.ErrInvalidTiers),
		errors.Is(err, policy.ErrInvalidPolicyDates),
		errors.Is(err, policy.ErrMissingPolicyNumber):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}
