package erp

import (
	"context"
	"fmt"
	"strings"

	"github.com/kolo/xmlrpc"

	"github.com/kabsikabs/integration-core/internal/connpool"
)

// Client is an authenticated Odoo session, built once per (user, tenant)
// and held in internal/connpool. It wraps the two XML-RPC endpoints
// Odoo exposes (common for auth, object for model calls), grounded on
// ODOO_KLK_VISION.authenticate/execute_kw.
type Client struct {
	creds     Credentials
	common    *xmlrpc.Client
	object    *xmlrpc.Client
	uid       int
	companyID int
}

// NewClient authenticates against Odoo and resolves the target company
// id, satisfying internal/connpool.Builder's contract: on failure it
// returns a *connpool.ProbeError classifying the failure so the caller
// can decide between silent retry, re-consent, or a hard error.
func NewClient(ctx context.Context, creds Credentials) (*Client, error) {
	if creds.URL == "" || creds.Database == "" || creds.Username == "" || creds.APIKey == "" {
		return nil, &connpool.ProbeError{
			Class: connpool.ProbeErrorPermission,
			Err:   fmt.Errorf("incomplete Odoo credentials"),
		}
	}

	common, err := xmlrpc.NewClient(strings.TrimRight(creds.URL, "/")+"/xmlrpc/2/common", nil)
	if err != nil {
		return nil, &connpool.ProbeError{Class: connpool.ProbeErrorTransport, Err: err}
	}

	object, err := xmlrpc.NewClient(strings.TrimRight(creds.URL, "/")+"/xmlrpc/2/object", nil)
	if err != nil {
		_ = common.Close()
		return nil, &connpool.ProbeError{Class: connpool.ProbeErrorTransport, Err: err}
	}

	c := &Client{creds: creds, common: common, object: object}

	uid, err := c.authenticate()
	if err != nil {
		_ = c.Close()
		return nil, &connpool.ProbeError{Class: classifyAuthError(err), Err: err}
	}
	if uid == 0 {
		_ = c.Close()
		return nil, &connpool.ProbeError{
			Class: connpool.ProbeErrorOAuthRecoverable,
			Err:   fmt.Errorf("odoo authentication rejected for user %q", creds.Username),
		}
	}
	c.uid = uid

	companyID, err := c.resolveCompanyID()
	if err != nil {
		_ = c.Close()
		return nil, &connpool.ProbeError{Class: connpool.ProbeErrorTransport, Err: err}
	}
	c.companyID = companyID

	return c, nil
}

// Close satisfies internal/connpool.Client.
func (c *Client) Close() error {
	errCommon := c.common.Close()
	errObject := c.object.Close()
	if errCommon != nil {
		return errCommon
	}
	return errObject
}

func (c *Client) authenticate() (int, error) {
	var uid any
	err := c.common.Call("authenticate", []any{c.creds.Database, c.creds.Username, c.creds.APIKey, map[string]any{}}, &uid)
	if err != nil {
		return 0, fmt.Errorf("odoo authenticate: %w", err)
	}
	id, ok := toInt(uid)
	if !ok {
		return 0, nil
	}
	return id, nil
}

// classifyAuthError distinguishes an OAuth/credential-recoverable
// failure from a plain transport error, mirroring the connpool probe
// classification spec.md §4.C requires.
func classifyAuthError(err error) connpool.ProbeErrorClass {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "authentication") || strings.Contains(msg, "invalid") {
		return connpool.ProbeErrorOAuthRecoverable
	}
	return connpool.ProbeErrorTransport
}

// executeKW calls model.method(args, kwargs) against the object
// endpoint, the one primitive every ERP operation is built from
// (ODOO_KLK_VISION.execute_kw).
func (c *Client) executeKW(model, method string, args []any, kwargs map[string]any) (any, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	var reply any
	err := c.object.Call("execute_kw", []any{
		c.creds.Database, c.uid, c.creds.APIKey, model, method, args, kwargs,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("odoo execute_kw %s.%s: %w", model, method, err)
	}
	return reply, nil
}

func (c *Client) resolveCompanyID() (int, error) {
	res, err := c.executeKW("res.company", "search", []any{
		[]any{[]any{"name", "=", c.creds.CompanyName}},
	}, nil)
	if err != nil {
		return 0, err
	}
	ids, ok := res.([]any)
	if !ok || len(ids) == 0 {
		return 0, fmt.Errorf("odoo company %q not found", c.creds.CompanyName)
	}
	id, ok := toInt(ids[0])
	if !ok {
		return 0, fmt.Errorf("odoo company %q returned a non-numeric id", c.creds.CompanyName)
	}
	return id, nil
}

// TestConnection reproduces ODOO_KLK_VISION.test_connection's field
// validation plus a live company-existence check.
func (c *Client) TestConnection(ctx context.Context) (TestConnectionResult, error) {
	var missing []string
	if c.creds.URL == "" {
		missing = append(missing, "URL")
	}
	if c.creds.Database == "" {
		missing = append(missing, "database")
	}
	if c.creds.Username == "" {
		missing = append(missing, "username")
	}
	if c.creds.APIKey == "" {
		missing = append(missing, "api key")
	}
	if c.creds.CompanyName == "" {
		missing = append(missing, "company name")
	}
	if len(missing) > 0 {
		return TestConnectionResult{Success: false, Message: "missing required fields: " + strings.Join(missing, ", ")}, nil
	}
	if c.uid == 0 {
		return TestConnectionResult{Success: false, Message: "authentication failed"}, nil
	}

	res, err := c.executeKW("res.company", "search_read", []any{
		[]any{[]any{"name", "=", c.creds.CompanyName}},
	}, map[string]any{"fields": []any{"id", "name"}})
	if err != nil {
		return TestConnectionResult{}, err
	}
	rows, _ := res.([]any)
	if len(rows) == 0 {
		return TestConnectionResult{Success: false, Message: fmt.Sprintf("company %q not found", c.creds.CompanyName)}, nil
	}
	return TestConnectionResult{Success: true, Message: "connection ok"}, nil
}

// GetAccountTypes lists the account_type selection values available on
// account.account, grounded on ODOO_KLK_VISION.get_account_types.
func (c *Client) GetAccountTypes(ctx context.Context) ([]string, error) {
	res, err := c.executeKW("account.account", "fields_get", []any{}, map[string]any{
		"attributes": []any{"selection"},
	})
	if err != nil {
		return nil, err
	}
	fields, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected fields_get response shape")
	}
	accountType, ok := fields["account_type"].(map[string]any)
	if !ok {
		return nil, nil
	}
	selection, ok := accountType["selection"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(selection))
	for _, opt := range selection {
		pair, ok := opt.([]any)
		if !ok || len(pair) == 0 {
			continue
		}
		if key, ok := pair[0].(string); ok {
			out = append(out, key)
		}
	}
	return out, nil
}

// GetAccountChart fetches the chart of accounts, optionally filtered to
// a subset of account_type values. The original's version-adaptive
// model_manager.execute_search_read step is out of scope (see
// VersionAdapter); this always reads the fields named below.
func (c *Client) GetAccountChart(ctx context.Context, accountTypes []string, companyID int) ([]Account, error) {
	if companyID == 0 {
		companyID = c.companyID
	}
	domain := []any{[]any{"company_id", "=", companyID}}
	res, err := c.executeKW("account.account", "search_read", []any{domain}, map[string]any{
		"fields": []any{"id", "code", "name", "display_name", "account_type", "company_id"},
	})
	if err != nil {
		return nil, err
	}
	rows, _ := res.([]any)
	return parseAccountRows(rows, accountTypes, companyID), nil
}

// parseAccountRows decodes search_read rows into Accounts and applies
// the optional account_type filter, extracted for testability.
func parseAccountRows(rows []any, accountTypes []string, companyID int) []Account {
	accounts := make([]Account, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		a := Account{
			ID:          intField(row, "id"),
			Code:        stringField(row, "code"),
			Name:        stringField(row, "name"),
			DisplayName: stringField(row, "display_name"),
			AccountType: stringField(row, "account_type"),
			CompanyID:   companyID,
		}
		if a.DisplayName == "" {
			a.DisplayName = a.Name
		}
		if len(accountTypes) == 0 || containsString(accountTypes, a.AccountType) {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

// UpdateAccounts applies a batch of field updates, one result per input
// entry — a single failure never aborts the batch, grounded on
// ODOO_KLK_VISION.update_accounts.
func (c *Client) UpdateAccounts(ctx context.Context, updates []AccountUpdate) []AccountUpdateResult {
	results := make([]AccountUpdateResult, 0, len(updates))
	for _, u := range updates {
		if u.AccountID == 0 {
			results = append(results, AccountUpdateResult{Success: false, Message: "missing account_id in payload"})
			continue
		}
		if len(u.Fields) == 0 {
			results = append(results, AccountUpdateResult{Success: false, AccountID: u.AccountID, Message: "no fields provided"})
			continue
		}

		exists, err := c.executeKW("account.account", "search_read", []any{
			[]any{[]any{"id", "=", u.AccountID}},
		}, map[string]any{"fields": []any{"id"}})
		if err != nil {
			results = append(results, AccountUpdateResult{Success: false, AccountID: u.AccountID, Message: err.Error()})
			continue
		}
		if rows, ok := exists.([]any); !ok || len(rows) == 0 {
			results = append(results, AccountUpdateResult{Success: false, AccountID: u.AccountID, Message: fmt.Sprintf("account %d not found", u.AccountID)})
			continue
		}

		_, err = c.executeKW("account.account", "write", []any{[]any{u.AccountID}, u.Fields}, nil)
		if err != nil {
			results = append(results, AccountUpdateResult{Success: false, AccountID: u.AccountID, Message: err.Error()})
			continue
		}
		results = append(results, AccountUpdateResult{Success: true, AccountID: u.AccountID, Message: "account successfully updated"})
	}
	return results
}

// UpdateCOAStructure forwards a structural chart-of-accounts change
// directly to execute_kw's write. Field-mapping/version adaptation
// (what fields are safe to touch on which Odoo version) is out of
// scope; callers are responsible for supplying a valid payload.
func (c *Client) UpdateCOAStructure(ctx context.Context, u COAStructureUpdate) error {
	if u.Model == "" || len(u.RecordIDs) == 0 {
		return fmt.Errorf("model and record_ids are required")
	}
	ids := make([]any, len(u.RecordIDs))
	for i, id := range u.RecordIDs {
		ids[i] = id
	}
	_, err := c.executeKW(u.Model, "write", []any{ids, u.Fields}, nil)
	return err
}

// GetPLMetrics computes profit & loss totals over an optional date
// range, grounded on ODOO_KLK_VISION.get_pl_metrics. The pandas
// DataFrame grouping from the original becomes a single pass over the
// fetched rows.
func (c *Client) GetPLMetrics(ctx context.Context, startDate, endDate string) (PLMetrics, error) {
	domain := []any{[]any{"account_type", "in", toAnySlice(plAccountTypes)}}
	if startDate != "" {
		domain = append(domain, []any{"date", ">=", startDate})
	}
	if endDate != "" {
		domain = append(domain, []any{"date", "<=", endDate})
	}

	res, err := c.executeKW("account.move.line", "search_read", []any{domain}, map[string]any{
		"fields": []any{"account_type", "debit", "credit"},
	})
	if err != nil {
		return PLMetrics{}, err
	}
	rows, _ := res.([]any)
	return computePLMetrics(rows), nil
}

// computePLMetrics groups account.move.line rows by account_type and
// sums debit-credit into the income/expense buckets, replacing the
// original's pandas groupby with a single pass. Extracted from
// GetPLMetrics so the grouping rules are testable without a live Odoo
// connection.
func computePLMetrics(rows []any) PLMetrics {
	if len(rows) == 0 {
		return PLMetrics{}
	}

	var totalIncome, totalExpenses float64
	var breakdown PLMetricsBreakdown
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		accountType := stringField(row, "account_type")
		balance := floatField(row, "debit") - floatField(row, "credit")
		switch accountType {
		case "income":
			totalIncome += -balance
			breakdown.Income += -balance
		case "income_other":
			totalIncome += -balance
			breakdown.OtherIncome += -balance
		case "expense":
			totalExpenses += balance
			breakdown.Expenses += balance
		case "expense_depreciation":
			totalExpenses += balance
			breakdown.Depreciation += balance
		case "expense_direct_cost":
			totalExpenses += balance
			breakdown.CostOfRevenue += balance
		}
	}

	return PLMetrics{
		TotalIncome:   totalIncome,
		TotalExpenses: totalExpenses,
		NetProfit:     totalIncome - totalExpenses,
		Breakdown:     breakdown,
	}
}

// GetBankStatementMoveLinesNotReconciled fetches bank statement move
// lines, with the optional journal/reconciled filters the original
// applied in pandas now applied as plain field comparisons (see
// filterMoveLines), grounded on
// ODOO_KLK_VISION.get_odoo_bank_statement_move_line_not_rec.
func (c *Client) GetBankStatementMoveLinesNotReconciled(ctx context.Context, journalID *int, reconciled *bool) ([]BankStatementMoveLine, error) {
	domain := []any{[]any{"company_id.name", "=", c.creds.CompanyName}}
	res, err := c.executeKW("account.bank.statement.line", "search_read", []any{domain}, map[string]any{
		"fields": toAnySlice(bankStatementFields),
	})
	if err != nil {
		return nil, err
	}
	rows, _ := res.([]any)
	lines := make([]BankStatementMoveLine, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, BankStatementMoveLine{
			ID:             intField(row, "id"),
			JournalID:      many2oneID(row["journal_id"]),
			PartnerID:      many2oneID(row["partner_id"]),
			PartnerName:    stringField(row, "partner_name"),
			AccountNumber:  stringField(row, "account_number"),
			PaymentRef:     stringField(row, "payment_ref"),
			CurrencyID:     many2oneID(row["currency_id"]),
			Amount:         floatField(row, "amount"),
			RunningBalance: floatField(row, "running_balance"),
			AmountCurrency: floatField(row, "amount_currency"),
			AmountResidual: floatField(row, "amount_residual"),
			IsReconciled:   boolField(row, "is_reconciled"),
			DisplayName:    stringField(row, "display_name"),
			Name:           stringField(row, "name"),
			Ref:            stringField(row, "ref"),
			Date:           stringField(row, "date"),
			State:          stringField(row, "state"),
			MoveType:       stringField(row, "move_type"),
			CompanyID:      many2oneID(row["company_id"]),
		})
	}
	return filterMoveLines(lines, journalID, reconciled), nil
}

// filterMoveLines applies the optional journal_id/reconciled filters.
// A row without an is_reconciled column decodes with IsReconciled false,
// so it passes a reconciled=false filter and is dropped by a
// reconciled=true one; a missing column is not an error.
func filterMoveLines(lines []BankStatementMoveLine, journalID *int, reconciled *bool) []BankStatementMoveLine {
	if journalID == nil && reconciled == nil {
		return lines
	}
	out := make([]BankStatementMoveLine, 0, len(lines))
	for _, l := range lines {
		if journalID != nil && l.JournalID != *journalID {
			continue
		}
		if reconciled != nil && l.IsReconciled != *reconciled {
			continue
		}
		out = append(out, l)
	}
	return out
}
