/*
importer.go - Per-row validation and policy issuance

VALIDATION ORDER (first failure wins, per row):
  0. Row parsed as CSV (reader.go records syntax errors per row)
  1. Required fields present
  2. company_code resolves to a known company
  3. broker_code resolves to a known agent
  4. policy_number not already in the system
  5. Dates parse as ISO 8601 and end_date is after start_date
  6. premium_amount is a positive decimal

  Rows are processed in file order, so a duplicate number within the
  file fails on its second occurrence, not its first.

SEE ALSO:
  - reader.go: File format and parsing
  - policy/lifecycle.go: What issuing a valid row entails
*/
package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
)

const dateLayout = "2006-01-02"

// RowError reports one failed row. Row is the 1-based data row number.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is the batch report. Successful + Failed equals the number of
// data rows in the file.
type Result struct {
	Successful int
	Failed     int
	Errors     []RowError
	Policies   []policy.Policy
}

type Importer struct {
	directory policy.Directory
	policies  policy.Store
	lifecycle *policy.Lifecycle
}

func NewImporter(directory policy.Directory, policies policy.Store, lifecycle *policy.Lifecycle) *Importer {
	return &Importer{directory: directory, policies: policies, lifecycle: lifecycle}
}

// Import parses the file and processes every data row. The returned
// error is non-nil only for file-level problems (unreadable input,
// malformed header); row failures land in Result.Errors.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, row := range rows {
		pol, rowErr := im.importRow(ctx, row)
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: row.Num, Message: rowErr.Error()})
			continue
		}
		result.Successful++
		result.Policies = append(result.Policies, *pol)
	}
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, row Row) (*policy.Policy, error) {
	if row.Err != nil {
		return nil, row.Err
	}
	if missing := missingFields(row); len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	company, err := im.directory.GetCompanyByCode(ctx, row.Get("company_code"))
	if err != nil {
		if errors.Is(err, policy.ErrCompanyNotFound) {
			return nil, fmt.Errorf("unknown company code %q", row.Get("company_code"))
		}
		return nil, err
	}

	agent, err := im.directory.GetAgentByCode(ctx, row.Get("broker_code"))
	if err != nil {
		if errors.Is(err, policy.ErrAgentNotFound) {
			return nil, fmt.Errorf("unknown broker code %q", row.Get("broker_code"))
		}
		return nil, err
	}

	number := row.Get("policy_number")
	taken, err := im.policies.PolicyNumberExists(ctx, number)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("policy number %q already exists", number)
	}

	startDate, err := time.Parse(dateLayout, row.Get("start_date"))
	if err != nil {
		return nil, fmt.Errorf("start_date %q is not a valid date (expected YYYY-MM-DD)", row.Get("start_date"))
	}
	endDate, err := time.Parse(dateLayout, row.Get("end_date"))
	if err != nil {
		return nil, fmt.Errorf("end_date %q is not a valid date (expected YYYY-MM-DD)", row.Get("end_date"))
	}
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("end_date %s must be after start_date %s", row.Get("end_date"), row.Get("start_date"))
	}

	premium, err := decimal.NewFromString(row.Get("premium_amount"))
	if err != nil {
		return nil, fmt.Errorf("premium_amount %q is not a valid amount", row.Get("premium_amount"))
	}
	if !premium.IsPositive() {
		return nil, fmt.Errorf("premium_amount must be positive, got %s", premium)
	}

	sumAssured := decimal.Zero
	if v := row.Get("sum_assured"); v != "" {
		sumAssured, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("sum_assured %q is not a valid amount", v)
		}
	}

	client, err := im.resolveClient(ctx, row)
	if err != nil {
		return nil, err
	}

	issued, err := im.lifecycle.Issue(ctx, policy.IssueInput{
		Number:     number,
		CompanyID:  company.ID,
		AgentID:    agent.ID,
		ClientID:   client.ID,
		Type:       row.Get("policy_type"),
		Premium:    premium,
		SumAssured: sumAssured,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		if errors.Is(err, commission.ErrRuleNotFound) {
			return nil, fmt.Errorf("no commission rule for company %q, policy type %q", row.Get("company_code"), row.Get("policy_type"))
		}
		return nil, err
	}
	return &issued.Policy, nil
}

// resolveClient reuses an existing client with the same email, else
// registers a new one from the row.
func (im *Importer) resolveClient(ctx context.Context, row Row) (*policy.Client, error) {
	email := row.Get("customer_email")
	if existing, err := im.directory.FindClientByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, policy.ErrClientNotFound) {
		return nil, err
	}
	client := policy.Client{
		ID:        commission.ClientID(uuid.NewString()),
		Name:      row.Get("customer_name"),
		Email:     email,
		Phone:     row.Get("customer_phone"),
		CreatedAt: time.Now().UTC(),
	}
	if err := im.directory.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return &client, nil
}

func missingFields(row Row) []string {
	var missing []string
	for _, col := range requiredColumns {
		if col == "customer_phone" || col == "sum_assured" {
			continue // optional
		}
		if row.Get(col) == "" {
			missing = append(missing, col)
		}
	}
	return missing
}
