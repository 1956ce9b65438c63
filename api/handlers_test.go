/*
handlers_test.go - HTTP-level tests for the API

Tests for:
- Directory setup (companies, agents, sub-agents)
- Rule creation and validation failures
- Policy issue / cancel over HTTP, including commission output
- Renewal completion idempotency at the HTTP layer
- Bulk CSV import endpoint
- Agent commission summary
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covera/brokerage-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t      *testing.T
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := NewHandler(store, nil)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	return &testServer{t: t, server: srv}
}

// do sends a JSON request and decodes the JSON response into out.
func (ts *testServer) do(method, path string, body any, out any) int {
	ts.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// seedDirectory creates a company, an agent, a sub-agent at 30%, a
// client, and a flat 15% motor rule. Returns the created IDs.
func (ts *testServer) seedDirectory() (companyID, agentID, subAgentID, clientID string) {
	ts.t.Helper()

	var company CompanyDTO
	status := ts.do("POST", "/api/companies", CreateCompanyRequest{Code: "ICICI", Name: "ICICI Lombard"}, &company)
	require.Equal(ts.t, http.StatusCreated, status)

	var agentResp struct {
		Agent AgentDTO `json:"agent"`
	}
	status = ts.do("POST", "/api/agents", CreateAgentRequest{Code: "AG-1", Name: "Asha Rao", Email: "asha@example.com"}, &agentResp)
	require.Equal(ts.t, http.StatusCreated, status)

	var sub SubAgentDTO
	status = ts.do("POST", "/api/agents/"+agentResp.Agent.ID+"/sub-agents",
		CreateSubAgentRequest{Name: "Vikram Shetty", SplitPercent: "30"}, &sub)
	require.Equal(ts.t, http.StatusCreated, status)

	var client ClientDTO
	status = ts.do("POST", "/api/clients", CreateClientRequest{Name: "Meera Nair", Email: "meera@example.com"}, &client)
	require.Equal(ts.t, http.StatusCreated, status)

	var rule RuleDTO
	status = ts.do("POST", "/api/rules", CreateRuleRequest{
		CompanyID:     company.ID,
		PolicyType:    "motor",
		Tiers:         []TierDTO{{MinPremium: "0", Rate: "15"}},
		EffectiveFrom: "2024-01-01",
	}, &rule)
	require.Equal(ts.t, http.StatusCreated, status)

	return company.ID, agentResp.Agent.ID, sub.ID, client.ID
}

func issueRequest(companyID, agentID, clientID, number string) IssuePolicyRequest {
	return IssuePolicyRequest{
		PolicyNumber: number,
		CompanyID:    companyID,
		AgentID:      agentID,
		ClientID:     clientID,
		PolicyType:   "motor",
		Premium:      "15000",
		SumAssured:   "500000",
		StartDate:    "2025-03-01",
		EndDate:      "2026-03-01",
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestAPI_DuplicateCompanyCodeConflicts(t *testing.T) {
	ts := newTestServer(t)

	status := ts.do("POST", "/api/companies", CreateCompanyRequest{Code: "ICICI", Name: "ICICI Lombard"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var errResp ErrorResponse
	status = ts.do("POST", "/api/companies", CreateCompanyRequest{Code: "icici", Name: "Lowercase"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_SubAgentSplitValidation(t *testing.T) {
	ts := newTestServer(t)
	_, agentID, _, _ := ts.seedDirectory()

	status := ts.do("POST", "/api/agents/"+agentID+"/sub-agents",
		CreateSubAgentRequest{Name: "Bad Split", SplitPercent: "150"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// RULES
// =============================================================================

func TestAPI_MalformedTiersRejected(t *testing.T) {
	ts := newTestServer(t)
	companyID, _, _, _ := ts.seedDirectory()

	var errResp ErrorResponse
	status := ts.do("POST", "/api/rules", CreateRuleRequest{
		CompanyID:     companyID,
		PolicyType:    "health",
		Tiers:         []TierDTO{{MinPremium: "100", Rate: "10"}}, // doesn't start at zero
		EffectiveFrom: "2024-01-01",
	}, &errResp)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_OverlappingRuleConflicts(t *testing.T) {
	ts := newTestServer(t)
	companyID, _, _, _ := ts.seedDirectory()

	// The seed already installed an open-ended motor rule from 2024.
	status := ts.do("POST", "/api/rules", CreateRuleRequest{
		CompanyID:     companyID,
		PolicyType:    "motor",
		Tiers:         []TierDTO{{MinPremium: "0", Rate: "12"}},
		EffectiveFrom: "2025-01-01",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Superseding closes the old window instead.
	var rule RuleDTO
	status = ts.do("POST", "/api/rules", CreateRuleRequest{
		CompanyID:     companyID,
		PolicyType:    "motor",
		Tiers:         []TierDTO{{MinPremium: "0", Rate: "12"}},
		EffectiveFrom: "2025-01-01",
		Supersede:     true,
	}, &rule)
	assert.Equal(t, http.StatusCreated, status)
}

// =============================================================================
// POLICIES
// =============================================================================

func TestAPI_IssuePolicy(t *testing.T) {
	// GIVEN: A seeded directory with a 15% motor rule
	// WHEN: Issuing a 15000 premium policy over HTTP
	// THEN: 201 with the policy, a 2250 pending commission, and a
	//       scheduled renewal

	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	var resp IssuePolicyResponse
	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-001"), &resp)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, "POL-001", resp.Policy.PolicyNumber)
	assert.Equal(t, "active", resp.Policy.Status)
	assert.Equal(t, "2250.00", resp.Commission.TotalAmount)
	assert.Equal(t, "2250.00", resp.Commission.AgentAmount)
	assert.Equal(t, "pending", resp.Commission.Status)
	assert.Equal(t, "pending", resp.Renewal.Status)
	assert.Equal(t, "2026-03-01", resp.Renewal.DueDate)
}

func TestAPI_IssueWithSubAgent(t *testing.T) {
	ts := newTestServer(t)
	companyID, agentID, subAgentID, clientID := ts.seedDirectory()

	req := issueRequest(companyID, agentID, clientID, "POL-002")
	req.SubAgentID = subAgentID

	var resp IssuePolicyResponse
	status := ts.do("POST", "/api/policies", req, &resp)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, "675.00", resp.Commission.SubAgentAmount)
	assert.Equal(t, "1575.00", resp.Commission.AgentAmount)
}

func TestAPI_IssueValidationFailures(t *testing.T) {
	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	// Duplicate number
	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-003"), nil)
	require.Equal(t, http.StatusCreated, status)
	status = ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-003"), nil)
	assert.Equal(t, http.StatusConflict, status)

	// Unknown agent
	req := issueRequest(companyID, "nope", clientID, "POL-004")
	status = ts.do("POST", "/api/policies", req, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// No rule for the type
	req = issueRequest(companyID, agentID, clientID, "POL-005")
	req.PolicyType = "health"
	status = ts.do("POST", "/api/policies", req, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Bad premium
	req = issueRequest(companyID, agentID, clientID, "POL-006")
	req.Premium = "not-a-number"
	status = ts.do("POST", "/api/policies", req, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_CancelPolicy(t *testing.T) {
	// GIVEN: An issued policy with a pending commission
	// WHEN: Cancelling it
	// THEN: The commission is voided and a second cancel conflicts

	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	var issued IssuePolicyResponse
	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-010"), &issued)
	require.Equal(t, http.StatusCreated, status)

	var cancelled CancelPolicyResponse
	status = ts.do("POST", "/api/policies/"+issued.Policy.ID+"/cancel", nil, &cancelled)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "cancelled", cancelled.Policy.Status)
	assert.Equal(t, 1, cancelled.CancelledCommissions)

	status = ts.do("POST", "/api/policies/"+issued.Policy.ID+"/cancel", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// RENEWALS
// =============================================================================

func TestAPI_CompleteRenewal_RetryReturnsOriginal(t *testing.T) {
	// GIVEN: A completed renewal
	// WHEN: The same completion request is replayed
	// THEN: 200 (not 201) with the original commission

	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	var issued IssuePolicyResponse
	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-020"), &issued)
	require.Equal(t, http.StatusCreated, status)

	req := CompleteRenewalRequest{Premium: "16000", NewEndDate: "2027-03-01"}

	var first CompleteRenewalResponse
	status = ts.do("POST", "/api/renewals/"+issued.Renewal.ID+"/complete", req, &first)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "2400.00", first.Commission.TotalAmount)
	assert.Equal(t, "completed", first.Renewal.Status)
	assert.Equal(t, "pending", first.NextRenewal.Status)

	var second CompleteRenewalResponse
	status = ts.do("POST", "/api/renewals/"+issued.Renewal.ID+"/complete", req, &second)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first.Commission.ID, second.Commission.ID)
}

func TestAPI_DueRenewals(t *testing.T) {
	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-030"), nil)
	require.Equal(t, http.StatusCreated, status)

	var due []RenewalDTO
	status = ts.do("GET", "/api/renewals/due?by=2026-03-01", nil, &due)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, due, 1)

	status = ts.do("GET", "/api/renewals/due?by=2026-02-01", nil, &due)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, due)
}

// =============================================================================
// COMMISSIONS AND SUMMARY
// =============================================================================

func TestAPI_PayCommissionAndSummary(t *testing.T) {
	// GIVEN: Two issued policies for one agent, one commission paid
	// WHEN: Fetching the agent's summary
	// THEN: Paid and pending buckets split accordingly

	ts := newTestServer(t)
	companyID, agentID, _, clientID := ts.seedDirectory()

	var first, second IssuePolicyResponse
	status := ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-040"), &first)
	require.Equal(t, http.StatusCreated, status)
	status = ts.do("POST", "/api/policies", issueRequest(companyID, agentID, clientID, "POL-041"), &second)
	require.Equal(t, http.StatusCreated, status)

	var paid CommissionDTO
	status = ts.do("POST", "/api/commissions/"+first.Commission.ID+"/pay", nil, &paid)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", paid.Status)
	assert.NotNil(t, paid.PaidAt)

	// Paying again conflicts.
	status = ts.do("POST", "/api/commissions/"+first.Commission.ID+"/pay", nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	var summary SummaryDTO
	status = ts.do("GET", "/api/agents/"+agentID+"/commissions/summary", nil, &summary)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "2250.00", summary.Paid)
	assert.Equal(t, "2250.00", summary.Pending)
	assert.Equal(t, "4500.00", summary.Total)
	assert.Equal(t, 2, summary.EntryCount)
}

// =============================================================================
// BULK IMPORT
// =============================================================================

func TestAPI_BulkImport(t *testing.T) {
	// GIVEN: A CSV with three rows, row 2 naming an unknown company
	// WHEN: POSTing the raw CSV body
	// THEN: successful=2 failed=1 with a row-2 diagnostic

	ts := newTestServer(t)
	ts.seedDirectory()

	// Agents are matched by code in the file.
	csv := strings.Join([]string{
		"policy_number,company_code,broker_code,customer_name,customer_email,customer_phone,policy_type,premium_amount,sum_assured,start_date,end_date",
		"IMP-001,ICICI,AG-1,Arun K,arun@example.com,,motor,12000,,2025-03-01,2026-03-01",
		"IMP-002,NOPE,AG-1,Divya S,divya@example.com,,motor,9000,,2025-03-01,2026-03-01",
		"IMP-003,ICICI,AG-1,Rahul M,rahul@example.com,,motor,20000,,2025-03-01,2026-03-01",
	}, "\n")

	req, err := http.NewRequest("POST", ts.server.URL+"/api/import/policies", strings.NewReader(csv))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result ImportResultDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "company")
	assert.Len(t, result.Policies, 2)

	// The imported policies are visible through the list endpoint.
	var policies []PolicyDTO
	status := ts.do("GET", "/api/policies", nil, &policies)
	require.Equal(t, http.StatusOK, status)
	numbers := make([]string, 0, len(policies))
	for _, p := range policies {
		numbers = append(numbers, p.PolicyNumber)
	}
	assert.Contains(t, numbers, "IMP-001")
	assert.Contains(t, numbers, "IMP-003")
	assert.NotContains(t, numbers, "IMP-002")
}

// =============================================================================
// ERROR SHAPE
// =============================================================================

func TestAPI_NotFoundShape(t *testing.T) {
	ts := newTestServer(t)

	var errResp ErrorResponse
	status := ts.do("GET", fmt.Sprintf("/api/policies/%s", "missing-id"), nil, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, errResp.Error)
}
