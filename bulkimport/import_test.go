package bulkimport_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covera/brokerage-engine/bulkimport"
	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
	"github.com/covera/brokerage-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const csvHeader = "policy_number,company_code,broker_code,customer_name,customer_email,customer_phone,policy_type,premium_amount,sum_assured,start_date,end_date"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestImporter(t *testing.T) (*bulkimport.Importer, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.CreateCompany(ctx, policy.Company{ID: "co-1", Code: "ICICI", Name: "ICICI Lombard"}))
	require.NoError(t, store.CreateAgent(ctx, policy.Agent{ID: "agent-1", Code: "BRK-9", Name: "Asha Rao"}))
	require.NoError(t, store.SaveRule(ctx, commission.Rule{
		ID:            "rule-1",
		CompanyID:     "co-1",
		PolicyType:    "motor",
		Tiers:         []commission.Tier{{MinPremium: dec("0"), Rate: dec("15")}},
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}))

	ledger := commission.NewLedger(store)
	lifecycle := policy.NewLifecycle(store, store, commission.NewResolver(store), ledger)
	return bulkimport.NewImporter(store, store, lifecycle), store
}

func importCSV(t *testing.T, im *bulkimport.Importer, rows ...string) *bulkimport.Result {
	t.Helper()
	file := csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
	result, err := im.Import(context.Background(), strings.NewReader(file))
	require.NoError(t, err)
	return result
}

func motorRow(number string) string {
	return number + ",ICICI,BRK-9,Meera Nair,meera@example.com,+911234567890,motor,15000,500000,2025-03-01,2026-03-01"
}

// =============================================================================
// ROW INDEPENDENCE
// =============================================================================

func TestImport_BadCompanyRowDoesNotAbortBatch(t *testing.T) {
	// GIVEN: Three rows, row 2 naming an unknown company
	// WHEN: Importing
	// THEN: Rows 1 and 3 persist, row 2 is reported with its row number

	im, store := newTestImporter(t)

	result := importCSV(t, im,
		motorRow("POL-001"),
		"POL-002,NOPE,BRK-9,Arun K,arun@example.com,,motor,12000,,2025-03-01,2026-03-01",
		motorRow("POL-003"),
	)

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "company")

	for _, number := range []string{"POL-001", "POL-003"} {
		_, err := store.GetPolicyByNumber(context.Background(), number)
		assert.NoError(t, err, "row for %s should have persisted", number)
	}
	_, err := store.GetPolicyByNumber(context.Background(), "POL-002")
	assert.ErrorIs(t, err, policy.ErrPolicyNotFound)
}

func TestImport_ErrorsKeepInputOrder(t *testing.T) {
	im, _ := newTestImporter(t)

	result := importCSV(t, im,
		"POL-010,NOPE,BRK-9,A,a@example.com,,motor,1000,,2025-03-01,2026-03-01",
		motorRow("POL-011"),
		"POL-012,ICICI,NOPE,B,b@example.com,,motor,1000,,2025-03-01,2026-03-01",
	)

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.Equal(t, 3, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Message, "broker")
}

func TestImport_MalformedRowDoesNotAbortBatch(t *testing.T) {
	// GIVEN: Three rows, row 2 with a bare quote the CSV reader rejects
	// WHEN: Importing
	// THEN: Rows 1 and 3 persist, row 2 is reported as malformed

	im, store := newTestImporter(t)

	result := importCSV(t, im,
		motorRow("POL-020"),
		`POL-021,IC"ICI,BRK-9,Arun K,arun@example.com,,motor,12000,,2025-03-01,2026-03-01`,
		motorRow("POL-022"),
	)

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "malformed")

	for _, number := range []string{"POL-020", "POL-022"} {
		_, err := store.GetPolicyByNumber(context.Background(), number)
		assert.NoError(t, err, "row for %s should have persisted", number)
	}
}

// =============================================================================
// PER-ROW VALIDATION
// =============================================================================

func TestImport_MissingRequiredFields(t *testing.T) {
	im, _ := newTestImporter(t)

	result := importCSV(t, im,
		",ICICI,BRK-9,Meera Nair,meera@example.com,,motor,15000,,2025-03-01,2026-03-01",
	)

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "policy_number")
}

func TestImport_DuplicatePolicyNumber(t *testing.T) {
	// The second occurrence fails, the first stands.
	im, store := newTestImporter(t)

	result := importCSV(t, im,
		motorRow("POL-020"),
		motorRow("POL-020"),
	)

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "already exists")

	_, err := store.GetPolicyByNumber(context.Background(), "POL-020")
	assert.NoError(t, err)
}

func TestImport_DateValidation(t *testing.T) {
	im, _ := newTestImporter(t)

	result := importCSV(t, im,
		"POL-030,ICICI,BRK-9,A,a@example.com,,motor,1000,,01/03/2025,2026-03-01",
		"POL-031,ICICI,BRK-9,B,b@example.com,,motor,1000,,2026-03-01,2025-03-01",
	)

	assert.Equal(t, 0, result.Successful)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0].Message, "start_date")
	assert.Contains(t, result.Errors[1].Message, "after")
}

func TestImport_PremiumValidation(t *testing.T) {
	im, _ := newTestImporter(t)

	result := importCSV(t, im,
		"POL-040,ICICI,BRK-9,A,a@example.com,,motor,abc,,2025-03-01,2026-03-01",
		"POL-041,ICICI,BRK-9,B,b@example.com,,motor,-50,,2025-03-01,2026-03-01",
		"POL-042,ICICI,BRK-9,C,c@example.com,,motor,0,,2025-03-01,2026-03-01",
	)

	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 3, result.Failed)
}

func TestImport_MissingRuleIsARowError(t *testing.T) {
	// GIVEN: No rule configured for health
	// WHEN: Importing one health and one motor row
	// THEN: The health row fails with a rule message, the motor row lands

	im, _ := newTestImporter(t)

	result := importCSV(t, im,
		"POL-050,ICICI,BRK-9,A,a@example.com,,health,9000,,2025-03-01,2026-03-01",
		motorRow("POL-051"),
	)

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "commission rule")
}

// =============================================================================
// SIDE EFFECTS OF A SUCCESSFUL ROW
// =============================================================================

func TestImport_SuccessfulRowBooksCommission(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()

	result := importCSV(t, im, motorRow("POL-060"))
	require.Equal(t, 1, result.Successful)
	require.Len(t, result.Policies, 1)

	entries, err := store.ListCommissionsByPolicy(ctx, result.Policies[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].TotalAmount.Equal(dec("2250")))

	// The client from the row was registered.
	client, err := store.FindClientByEmail(ctx, "meera@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Meera Nair", client.Name)
}

func TestImport_ReusesClientByEmail(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()

	importCSV(t, im, motorRow("POL-070"))
	importCSV(t, im, motorRow("POL-071"))

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

// =============================================================================
// FILE-LEVEL PARSING
// =============================================================================

func TestParseCSV_HeaderRequired(t *testing.T) {
	_, err := bulkimport.ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = bulkimport.ParseCSV(strings.NewReader("policy_number,company_code\nPOL-1,ICICI\n"))
	assert.Error(t, err, "incomplete header should be rejected")
}

func TestParseCSV_HeaderOrderAndCaseInsensitive(t *testing.T) {
	shuffled := "END_DATE,start_date,sum_assured,premium_amount,policy_type,customer_phone,customer_email,customer_name,broker_code,company_code,Policy_Number"
	row := "2026-03-01,2025-03-01,,15000,motor,,meera@example.com,Meera Nair,BRK-9,ICICI,POL-080"

	rows, err := bulkimport.ParseCSV(strings.NewReader(shuffled + "\n" + row + "\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Num)
	assert.Equal(t, "POL-080", rows[0].Get("policy_number"))
	assert.Equal(t, "15000", rows[0].Get("premium_amount"))
}

func TestImport_EmptyFileAfterHeader(t *testing.T) {
	im, _ := newTestImporter(t)

	result, err := im.Import(context.Background(), strings.NewReader(csvHeader+"\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
}
