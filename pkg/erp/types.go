// Package erp implements a thin Odoo XML-RPC client and the ERP.* RPC
// namespace on top of it. Odoo's field-mapping/version-adapter logic
// (the original's OdooModelManager, which translates between Odoo
// server versions' differing field names) is explicitly out of scope:
// this package always talks to the fields named in the calls below and
// leaves any version adaptation to a future VersionAdapter
// implementation, represented here only as an interface seam.
package erp

// Account is a single account.account row from the chart of accounts.
type Account struct {
	ID          int     `json:"id"`
	Code        string  `json:"code,omitempty"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	AccountType string  `json:"account_type"`
	CompanyID   int     `json:"company_id"`
}

// AccountUpdate is one entry of the ERP.update_accounts batch payload.
type AccountUpdate struct {
	AccountID int            `json:"account_id"`
	Fields    map[string]any `json:"fields"`
}

// AccountUpdateResult reports the outcome of one AccountUpdate entry.
// The batch never aborts on a single failure; every entry gets its own
// result, mirroring the original's per-row try/continue behavior.
type AccountUpdateResult struct {
	Success   bool   `json:"success"`
	AccountID int    `json:"account_id,omitempty"`
	Message   string `json:"message"`
}

// COAStructureUpdate describes a chart-of-accounts structural change:
// Odoo's field-mapping/version-adapter tables decide what this is
// allowed to touch, which is out of scope here (see VersionAdapter).
// This package only forwards the payload to execute_kw.
type COAStructureUpdate struct {
	Model   string         `json:"model"`
	RecordIDs []int        `json:"record_ids"`
	Fields  map[string]any `json:"fields"`
}

// PLMetrics is the profit & loss summary ERP.get_pl_metrics returns.
type PLMetrics struct {
	TotalIncome   float64           `json:"total_income"`
	TotalExpenses float64           `json:"total_expenses"`
	NetProfit     float64           `json:"net_profit"`
	Breakdown     PLMetricsBreakdown `json:"breakdown"`
}

// PLMetricsBreakdown mirrors the original's fixed five-bucket breakdown.
type PLMetricsBreakdown struct {
	Income         float64 `json:"income"`
	OtherIncome    float64 `json:"other_income"`
	Expenses       float64 `json:"expenses"`
	Depreciation   float64 `json:"depreciation"`
	CostOfRevenue  float64 `json:"cost_of_revenue"`
}

// plAccountTypes is the fixed set of account_type values the P&L
// calculation groups over, transcribed from fetch_financial_records'
// domain construction.
var plAccountTypes = []string{
	"income", "income_other",
	"expense", "expense_depreciation", "expense_direct_cost",
}

// BankStatementMoveLine is one account.bank.statement.line row, with the
// DataFrame-era grouping/filtering the original applied in pandas now
// expressed as plain field comparisons (see filterMoveLines).
type BankStatementMoveLine struct {
	ID            int     `json:"id"`
	MoveID        int     `json:"move_id,omitempty"`
	JournalID     int     `json:"journal_id"`
	PartnerID     int     `json:"partner_id,omitempty"`
	PartnerName   string  `json:"partner_name,omitempty"`
	AccountNumber string  `json:"account_number,omitempty"`
	PaymentRef    string  `json:"payment_ref,omitempty"`
	CurrencyID    int     `json:"currency_id,omitempty"`
	Amount        float64 `json:"amount"`
	RunningBalance float64 `json:"running_balance,omitempty"`
	AmountCurrency float64 `json:"amount_currency,omitempty"`
	AmountResidual float64 `json:"amount_residual,omitempty"`
	IsReconciled  bool    `json:"is_reconciled"`
	DisplayName   string  `json:"display_name,omitempty"`
	Name          string  `json:"name,omitempty"`
	Ref           string  `json:"ref,omitempty"`
	Date          string  `json:"date,omitempty"`
	State         string  `json:"state,omitempty"`
	MoveType      string  `json:"move_type,omitempty"`
	CompanyID     int     `json:"company_id,omitempty"`
}

// bankStatementFields is the fixed field list the original requests
// from search_read, transcribed verbatim.
var bankStatementFields = []string{
	"move_id", "journal_id", "payment_ids", "partner_id", "account_number", "partner_name",
	"transaction_type", "payment_ref", "currency_id", "amount", "running_balance",
	"amount_currency", "amount_residual", "is_reconciled", "statement_complete",
	"statement_valid", "display_name", "name", "ref", "date", "state", "move_type",
	"company_id",
}

// TestConnectionResult is ERP.test_connection's response shape.
type TestConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Credentials is everything a Client needs to reach one Odoo database.
// Resolved upstream by the identity/mandate resolver (spec.md §4.B) from
// a per-mandate configuration document; never defaulted here.
type Credentials struct {
	URL         string
	Database    string
	Username    string
	APIKey      string
	CompanyName string
}

// VersionAdapter would translate Odoo's differing field names/selection
// values across server versions (the original's OdooModelManager). No
// implementation exists in this package — it is a documented gap, not a
// silent behavior change: every method here assumes a single, current
// Odoo field layout.
type VersionAdapter interface {
	AdaptFields(model string, fields map[string]any) map[string]any
}
