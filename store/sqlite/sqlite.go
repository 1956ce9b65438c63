/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (commission.Store,
  commission.RuleStore, policy.Store, policy.Directory) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  companies:        Insurance carriers
  agents:           Brokers, with unique short codes
  sub_agents:       Sub-brokers with their commission split
  clients:          Policyholders
  policies:         Policy records with lifecycle status
  renewals:         Renewal cycles per policy
  commissions:      The commission ledger
  commission_rules: Tiered rate tables with validity windows

IDEMPOTENCY ENFORCEMENT:
  idx_commissions_event is a UNIQUE index over
  (policy_id, commission_type, event_id). A second insert for the same
  lifecycle event fails at the database and is surfaced as
  commission.ErrDuplicateCommissionEvent, which the ledger treats as
  idempotent success. This holds across processes, not just within one.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/brokerage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := commission.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/store.go: Interface definitions
  - policy/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/covera/brokerage-engine/commission"
	"github.com/covera/brokerage-engine/policy"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Carriers
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL COLLATE NOCASE UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Brokers
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL COLLATE NOCASE UNIQUE,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sub_agents (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		split_percent TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sub_agents_agent
		ON sub_agents(agent_id);

	-- Policyholders
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_email
		ON clients(email COLLATE NOCASE) WHERE email IS NOT NULL;

	-- Policies
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		policy_number TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL REFERENCES companies(id),
		agent_id TEXT NOT NULL REFERENCES agents(id),
		sub_agent_id TEXT REFERENCES sub_agents(id),
		client_id TEXT NOT NULL,
		policy_type TEXT NOT NULL,
		premium TEXT NOT NULL,
		sum_assured TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_agent
		ON policies(agent_id);
	CREATE INDEX IF NOT EXISTS idx_policies_status
		ON policies(status);

	-- Renewal cycles
	CREATE TABLE IF NOT EXISTS renewals (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_at TEXT,
		reminder_sent_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_renewals_policy_status
		ON renewals(policy_id, status);
	CREATE INDEX IF NOT EXISTS idx_renewals_due
		ON renewals(status, due_date);

	-- Commission ledger
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		agent_id TEXT NOT NULL,
		sub_agent_id TEXT,
		commission_type TEXT NOT NULL,
		event_id TEXT NOT NULL,
		rate TEXT NOT NULL,
		premium TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		agent_amount TEXT NOT NULL,
		sub_agent_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_at TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one commission per lifecycle event. A retried
	-- issue or renewal must not double-book.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_commissions_event
		ON commissions(policy_id, commission_type, event_id);

	CREATE INDEX IF NOT EXISTS idx_commissions_agent
		ON commissions(agent_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_commissions_policy_status
		ON commissions(policy_id, status);

	-- Tiered rate tables
	CREATE TABLE IF NOT EXISTS commission_rules (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id),
		policy_type TEXT NOT NULL,
		tiers_json TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_scope
		ON commission_rules(company_id, policy_type, effective_from);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COMMISSION LEDGER (commission.Store interface)
// =============================================================================

func (s *Store) CreateCommission(ctx context.Context, c commission.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO commissions
		(id, policy_id, agent_id, sub_agent_id, commission_type, event_id,
		 rate, premium, total_amount, agent_amount, sub_agent_amount,
		 status, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.PolicyID,
		c.AgentID,
		nullString(string(c.SubAgentID)),
		c.Type,
		c.EventID,
		c.Rate.String(),
		c.Premium.String(),
		c.TotalAmount.String(),
		c.AgentAmount.String(),
		c.SubAgentAmount.String(),
		c.Status,
		nullTime(c.PaidAt),
		c.CreatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return commission.ErrDuplicateCommissionEvent
		}
		return fmt.Errorf("failed to insert commission: %w", err)
	}
	return nil
}

const commissionColumns = `id, policy_id, agent_id, sub_agent_id, commission_type, event_id,
	rate, premium, total_amount, agent_amount, sub_agent_amount, status, paid_at, created_at`

func (s *Store) GetCommission(ctx context.Context, id commission.CommissionID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+commissionColumns+` FROM commissions WHERE id = ?`, id)
	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrCommissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) GetCommissionByEvent(ctx context.Context, policyID commission.PolicyID, cType commission.CommissionType, eventID commission.EventID) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+commissionColumns+` FROM commissions
		 WHERE policy_id = ? AND commission_type = ? AND event_id = ?`,
		policyID, cType, eventID)
	c, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, commission.ErrCommissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCommissionsByPolicy(ctx context.Context, policyID commission.PolicyID) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCommissions(ctx,
		`SELECT `+commissionColumns+` FROM commissions
		 WHERE policy_id = ? ORDER BY created_at ASC, id ASC`, policyID)
}

func (s *Store) ListCommissionsByAgent(ctx context.Context, agentID commission.AgentID) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCommissions(ctx,
		`SELECT `+commissionColumns+` FROM commissions
		 WHERE agent_id = ? ORDER BY created_at ASC, id ASC`, agentID)
}

// ListCommissions returns the whole ledger, newest first (admin view).
func (s *Store) ListCommissions(ctx context.Context) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCommissions(ctx,
		`SELECT `+commissionColumns+` FROM commissions ORDER BY created_at DESC, id DESC`)
}

func (s *Store) MarkCommissionPaid(ctx context.Context, id commission.CommissionID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE commissions SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
		commission.PaymentPaid, paidAt.UTC().Format(time.RFC3339), id, commission.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to mark commission paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already terminal; look to tell which.
		var status string
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM commissions WHERE id = ?`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return commission.ErrCommissionNotFound
		}
		if err != nil {
			return err
		}
		return commission.ErrCommissionTerminal
	}
	return nil
}

func (s *Store) CancelPendingCommissions(ctx context.Context, policyID commission.PolicyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE commissions SET status = ? WHERE policy_id = ? AND status = ?`,
		commission.PaymentCancelled, policyID, commission.PaymentPending)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending commissions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) queryCommissions(ctx context.Context, query string, args ...any) ([]commission.Commission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commissions: %w", err)
	}
	defer rows.Close()

	var result []commission.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommission(row rowScanner) (*commission.Commission, error) {
	var (
		c          commission.Commission
		subAgentID sql.NullString
		rate       string
		premium    string
		total      string
		agentAmt   string
		subAmt     string
		paidAt     sql.NullString
		createdAt  string
	)

	err := row.Scan(
		&c.ID, &c.PolicyID, &c.AgentID, &subAgentID, &c.Type, &c.EventID,
		&rate, &premium, &total, &agentAmt, &subAmt, &c.Status, &paidAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.SubAgentID = commission.SubAgentID(subAgentID.String)
	c.Rate = commission.MustParseDecimal(rate)
	c.Premium = commission.MustParseDecimal(premium)
	c.TotalAmount = commission.MustParseDecimal(total)
	c.AgentAmount = commission.MustParseDecimal(agentAmt)
	c.SubAgentAmount = commission.MustParseDecimal(subAmt)
	c.PaidAt = parseNullTime(paidAt)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

// =============================================================================
// COMMISSION RULES (commission.RuleStore interface)
// =============================================================================

func (s *Store) SaveRule(ctx context.Context, r commission.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Overlap is checked read-then-write under the store mutex. A
	// database exclusion constraint would be the PostgreSQL answer.
	existing, err := s.listRulesLocked(ctx, r.CompanyID, r.PolicyType)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != r.ID && other.Overlaps(r) {
			return commission.ErrOverlappingRule
		}
	}

	tiersJSON, err := json.Marshal(r.Tiers)
	if err != nil {
		return fmt.Errorf("failed to encode tiers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commission_rules
		(id, company_id, policy_type, tiers_json, effective_from, effective_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.CompanyID, r.PolicyType, string(tiersJSON),
		r.EffectiveFrom.UTC().Format(time.RFC3339),
		nullTime(r.EffectiveTo),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

func (s *Store) CloseRule(ctx context.Context, id commission.RuleID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE commission_rules SET effective_to = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to close rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return commission.ErrRuleNotFound
	}
	return nil
}

func (s *Store) FindActiveRule(ctx context.Context, companyID commission.CompanyID, policyType string, asOf time.Time) (*commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// RFC 3339 UTC strings order lexicographically, so string
	// comparison in SQL matches time comparison.
	asOfStr := asOf.UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, policy_type, tiers_json, effective_from, effective_to, created_at
		FROM commission_rules
		WHERE company_id = ? AND policy_type = ?
		  AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to > ?)
		LIMIT 1
	`, companyID, policyType, asOfStr, asOfStr)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Store) ListRules(ctx context.Context, companyID commission.CompanyID, policyType string) ([]commission.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRulesLocked(ctx, companyID, policyType)
}

func (s *Store) listRulesLocked(ctx context.Context, companyID commission.CompanyID, policyType string) ([]commission.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, policy_type, tiers_json, effective_from, effective_to, created_at
		FROM commission_rules
		WHERE company_id = ? AND policy_type = ?
		ORDER BY effective_from DESC
	`, companyID, policyType)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var result []commission.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func scanRule(row rowScanner) (*commission.Rule, error) {
	var (
		r             commission.Rule
		tiersJSON     string
		effectiveFrom string
		effectiveTo   sql.NullString
		createdAt     string
	)
	err := row.Scan(&r.ID, &r.CompanyID, &r.PolicyType, &tiersJSON, &effectiveFrom, &effectiveTo, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tiersJSON), &r.Tiers); err != nil {
		return nil, fmt.Errorf("failed to decode tiers for rule %s: %w", r.ID, err)
	}
	r.EffectiveFrom, _ = time.Parse(time.RFC3339, effectiveFrom)
	r.EffectiveTo = parseNullTime(effectiveTo)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// POLICIES (policy.Store interface)
// =============================================================================

func (s *Store) CreatePolicy(ctx context.Context, p policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO policies
		(id, policy_number, company_id, agent_id, sub_agent_id, client_id,
		 policy_type, premium, sum_assured, start_date, end_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Number, p.CompanyID, p.AgentID,
		nullString(string(p.SubAgentID)),
		p.ClientID, p.Type,
		p.Premium.String(), p.SumAssured.String(),
		p.StartDate.UTC().Format(time.RFC3339),
		p.EndDate.UTC().Format(time.RFC3339),
		p.Status,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return policy.ErrDuplicatePolicyNumber
		}
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

const policyColumns = `id, policy_number, company_id, agent_id, sub_agent_id, client_id,
	policy_type, premium, sum_assured, start_date, end_date, status, created_at`

func (s *Store) GetPolicy(ctx context.Context, id commission.PolicyID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = ?`, id)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) GetPolicyByNumber(ctx context.Context, number string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE policy_number = ?`, number)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) PolicyNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM policies WHERE policy_number = ?`, number).Scan(&count)
	return count > 0, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM policies ORDER BY created_at DESC, policy_number DESC`)
}

func (s *Store) ListPoliciesByAgent(ctx context.Context, agentID commission.AgentID) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE agent_id = ? ORDER BY created_at DESC, policy_number DESC`,
		agentID)
}

func (s *Store) UpdatePolicyStatus(ctx context.Context, id commission.PolicyID, status policy.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE policies SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}
	return ensureRowFound(res, policy.ErrPolicyNotFound)
}

func (s *Store) ExtendPolicy(ctx context.Context, id commission.PolicyID, premium decimal.Decimal, endDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE policies SET premium = ?, end_date = ? WHERE id = ?`,
		premium.String(), endDate.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to extend policy: %w", err)
	}
	return ensureRowFound(res, policy.ErrPolicyNotFound)
}

func (s *Store) queryPolicies(ctx context.Context, query string, args ...any) ([]policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var result []policy.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanPolicy(row rowScanner) (*policy.Policy, error) {
	var (
		p          policy.Policy
		subAgentID sql.NullString
		premium    string
		sumAssured string
		startDate  string
		endDate    string
		createdAt  string
	)
	err := row.Scan(
		&p.ID, &p.Number, &p.CompanyID, &p.AgentID, &subAgentID, &p.ClientID,
		&p.Type, &premium, &sumAssured, &startDate, &endDate, &p.Status, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.SubAgentID = commission.SubAgentID(subAgentID.String)
	p.Premium = commission.MustParseDecimal(premium)
	p.SumAssured = commission.MustParseDecimal(sumAssured)
	p.StartDate, _ = time.Parse(time.RFC3339, startDate)
	p.EndDate, _ = time.Parse(time.RFC3339, endDate)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// RENEWALS
// =============================================================================

func (s *Store) CreateRenewal(ctx context.Context, r policy.Renewal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO renewals (id, policy_id, due_date, status, completed_at, reminder_sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.PolicyID,
		r.DueDate.UTC().Format(time.RFC3339),
		r.Status,
		nullTime(r.CompletedAt),
		nullTime(r.ReminderSentAt),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert renewal: %w", err)
	}
	return nil
}

const renewalColumns = `id, policy_id, due_date, status, completed_at, reminder_sent_at, created_at`

func (s *Store) GetRenewal(ctx context.Context, id string) (*policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+renewalColumns+` FROM renewals WHERE id = ?`, id)
	r, err := scanRenewal(row)
	if err == sql.ErrNoRows {
		return nil, policy.ErrRenewalNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) GetPendingRenewal(ctx context.Context, policyID commission.PolicyID) (*policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+renewalColumns+` FROM renewals
		 WHERE policy_id = ? AND status = ? ORDER BY due_date ASC LIMIT 1`,
		policyID, policy.RenewalPending)
	r, err := scanRenewal(row)
	if err == sql.ErrNoRows {
		return nil, policy.ErrRenewalNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateRenewalStatus(ctx context.Context, id string, status policy.RenewalStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE renewals SET status = ?, completed_at = ? WHERE id = ?`,
		status, nullTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update renewal: %w", err)
	}
	return ensureRowFound(res, policy.ErrRenewalNotFound)
}

func (s *Store) ListDueRenewals(ctx context.Context, by time.Time) ([]policy.Renewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+renewalColumns+` FROM renewals
		 WHERE status = ? AND due_date <= ?
		 ORDER BY due_date ASC`,
		policy.RenewalPending, by.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query due renewals: %w", err)
	}
	defer rows.Close()

	var result []policy.Renewal
	for rows.Next() {
		r, err := scanRenewal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (s *Store) MarkRenewalReminded(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE renewals SET reminder_sent_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to mark renewal reminded: %w", err)
	}
	return ensureRowFound(res, policy.ErrRenewalNotFound)
}

func scanRenewal(row rowScanner) (*policy.Renewal, error) {
	var (
		r          policy.Renewal
		dueDate    string
		completed  sql.NullString
		reminded   sql.NullString
		createdAt  string
	)
	err := row.Scan(&r.ID, &r.PolicyID, &dueDate, &r.Status, &completed, &reminded, &createdAt)
	if err != nil {
		return nil, err
	}
	r.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	r.CompletedAt = parseNullTime(completed)
	r.ReminderSentAt = parseNullTime(reminded)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// DIRECTORY (policy.Directory interface)
// =============================================================================

func (s *Store) CreateCompany(ctx context.Context, c policy.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, code, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Code, c.Name, c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return policy.ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id commission.CompanyID) (*policy.Company, error) {
	return s.getCompany(ctx, `SELECT id, code, name, created_at FROM companies WHERE id = ?`, id)
}

func (s *Store) GetCompanyByCode(ctx context.Context, code string) (*policy.Company, error) {
	return s.getCompany(ctx, `SELECT id, code, name, created_at FROM companies WHERE code = ? COLLATE NOCASE`, code)
}

func (s *Store) getCompany(ctx context.Context, query string, arg any) (*policy.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c policy.Company
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, policy.ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]policy.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, created_at FROM companies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []policy.Company
	for rows.Next() {
		var c policy.Company
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) CreateAgent(ctx context.Context, a policy.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (id, code, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Name, nullString(a.Email), nullString(a.Phone),
		a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return policy.ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, id commission.AgentID) (*policy.Agent, error) {
	return s.getAgent(ctx, `SELECT id, code, name, email, phone, created_at FROM agents WHERE id = ?`, id)
}

func (s *Store) GetAgentByCode(ctx context.Context, code string) (*policy.Agent, error) {
	return s.getAgent(ctx, `SELECT id, code, name, email, phone, created_at FROM agents WHERE code = ? COLLATE NOCASE`, code)
}

func (s *Store) getAgent(ctx context.Context, query string, arg any) (*policy.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a policy.Agent
	var email, phone sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Code, &a.Name, &email, &phone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, policy.ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Email = email.String
	a.Phone = phone.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]policy.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, email, phone, created_at FROM agents ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []policy.Agent
	for rows.Next() {
		var a policy.Agent
		var email, phone sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &email, &phone, &createdAt); err != nil {
			return nil, err
		}
		a.Email = email.String
		a.Phone = phone.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) CreateSubAgent(ctx context.Context, sub policy.SubAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE id = ?`, sub.AgentID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return policy.ErrAgentNotFound
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sub_agents (id, agent_id, name, email, phone, split_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID, sub.AgentID, sub.Name, nullString(sub.Email), nullString(sub.Phone),
		sub.SplitPercent.String(), sub.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert sub-agent: %w", err)
	}
	return nil
}

func (s *Store) GetSubAgent(ctx context.Context, id commission.SubAgentID) (*policy.SubAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sub          policy.SubAgent
		email, phone sql.NullString
		split        string
		createdAt    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, name, email, phone, split_percent, created_at FROM sub_agents WHERE id = ?`,
		id).Scan(&sub.ID, &sub.AgentID, &sub.Name, &email, &phone, &split, &createdAt)
	if err == sql.ErrNoRows {
		return nil, policy.ErrSubAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	sub.Email = email.String
	sub.Phone = phone.String
	sub.SplitPercent = commission.MustParseDecimal(split)
	sub.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sub, nil
}

func (s *Store) ListSubAgentsByAgent(ctx context.Context, agentID commission.AgentID) ([]policy.SubAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, name, email, phone, split_percent, created_at
		 FROM sub_agents WHERE agent_id = ? ORDER BY name`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []policy.SubAgent
	for rows.Next() {
		var (
			sub          policy.SubAgent
			email, phone sql.NullString
			split        string
			createdAt    string
		)
		if err := rows.Scan(&sub.ID, &sub.AgentID, &sub.Name, &email, &phone, &split, &createdAt); err != nil {
			return nil, err
		}
		sub.Email = email.String
		sub.Phone = phone.String
		sub.SplitPercent = commission.MustParseDecimal(split)
		sub.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *Store) CreateClient(ctx context.Context, c policy.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullString(c.Email), nullString(c.Phone),
		c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id commission.ClientID) (*policy.Client, error) {
	return s.getClient(ctx, `SELECT id, name, email, phone, created_at FROM clients WHERE id = ?`, id)
}

func (s *Store) FindClientByEmail(ctx context.Context, email string) (*policy.Client, error) {
	return s.getClient(ctx, `SELECT id, name, email, phone, created_at FROM clients WHERE email = ? COLLATE NOCASE LIMIT 1`, email)
}

func (s *Store) getClient(ctx context.Context, query string, arg any) (*policy.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c policy.Client
	var email, phone sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &email, &phone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, policy.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]policy.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []policy.Client
	for rows.Next() {
		var c policy.Client
		var email, phone sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &email, &phone, &createdAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		c.Phone = phone.String
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, c)
	}
	return result, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"commissions", "renewals", "policies", "commission_rules",
		"sub_agents", "clients", "agents", "companies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func ensureRowFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
