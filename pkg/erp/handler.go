package erp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/connpool"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

const family = "erp"

// Connector is what Handler needs from a pooled ERP connection. Client
// satisfies it; tests substitute a fake.
type Connector interface {
	TestConnection(ctx context.Context) (TestConnectionResult, error)
	GetAccountTypes(ctx context.Context) ([]string, error)
	GetAccountChart(ctx context.Context, accountTypes []string, companyID int) ([]Account, error)
	UpdateAccounts(ctx context.Context, updates []AccountUpdate) []AccountUpdateResult
	UpdateCOAStructure(ctx context.Context, u COAStructureUpdate) error
	GetPLMetrics(ctx context.Context, startDate, endDate string) (PLMetrics, error)
	GetBankStatementMoveLinesNotReconciled(ctx context.Context, journalID *int, reconciled *bool) ([]BankStatementMoveLine, error)
}

// Handler implements the ERP.* RPC namespace.
type Handler struct {
	pool   *connpool.Pool
	cache  *cache.Manager
	logger *slog.Logger
}

func NewHandler(pool *connpool.Pool, cm *cache.Manager, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, cache: cm, logger: logger}
}

// Register binds every ERP.* method onto router.
func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("ERP")
	ns.Method("test_connection", h.handleTestConnection)
	ns.Method("get_pl_metrics", h.handleGetPLMetrics)
	ns.Method("get_account_types", h.handleGetAccountTypes)
	ns.Method("get_account_chart", h.handleGetAccountChart)
	ns.Method("update_accounts", h.handleUpdateAccounts)
	ns.Method("update_coa_structure", h.handleUpdateCOAStructure)
	ns.Method("get_odoo_bank_statement_move_line_not_rec", h.handleGetBankStatementMoveLines)
}

func callerID(ctx context.Context) string {
	id := auth.FromContext(ctx)
	if id == nil {
		return ""
	}
	if id.UserID != "" {
		return id.UserID
	}
	return id.Subject
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, rpc.BadRequestf("decoding params: %v", err)
	}
	return p, nil
}

// connector acquires the pooled ERP connection for (user, companyID),
// surfacing a probe failure's classification as the matching *rpc.Error
// kind rather than a bare Internal error.
func (h *Handler) connector(ctx context.Context, companyID string) (Connector, error) {
	user := callerID(ctx)
	client, err := h.pool.Get(ctx, user, companyID, "erp")
	if err != nil {
		if probeErr, ok := err.(*connpool.ProbeError); ok {
			switch probeErr.Class {
			case connpool.ProbeErrorOAuthRecoverable:
				return nil, rpc.OAuthReauth(probeErr.Error())
			case connpool.ProbeErrorPermission:
				return nil, rpc.New(rpc.ErrPermissionDenied, probeErr.Error())
			default:
				return nil, rpc.New(rpc.ErrTransport, probeErr.Error())
			}
		}
		return nil, rpc.Internalf("acquiring erp connection: %v", err)
	}
	conn, ok := client.(Connector)
	if !ok {
		return nil, rpc.Internalf("erp connection for %s does not implement Connector", user)
	}
	return conn, nil
}

// readThrough implements the read contract from spec.md §4.F: cache hit
// returns {data, source:"cache"}; miss reads the backend, writes the
// cache on a non-empty result with the family TTL, and returns
// {data, source:"erp"}.
func (h *Handler) readThrough(ctx context.Context, companyID, subkey string, fetch func() (any, error)) (map[string]any, error) {
	user := callerID(ctx)
	if env, ok := h.cache.Get(ctx, user, companyID, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	data, err := fetch()
	if err != nil {
		return nil, rpc.AsError(err)
	}

	h.cache.Set(ctx, user, companyID, family, subkey, data, cache.FamilyTTL(family, subkey))
	return map[string]any{"data": data, "source": "erp"}, nil
}

type testConnectionParams struct {
	CompanyID string `json:"company_id"`
}

func (h *Handler) handleTestConnection(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[testConnectionParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	conn, err := h.connector(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	result, err := conn.TestConnection(ctx)
	if err != nil {
		return nil, rpc.Internalf("testing erp connection: %v", err)
	}
	return result, nil
}

type plMetricsParams struct {
	CompanyID string `json:"company_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) handleGetPLMetrics(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[plMetricsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	subkey := "pl_metrics:" + p.StartDate + ":" + p.EndDate
	return h.readThrough(ctx, p.CompanyID, subkey, func() (any, error) {
		conn, err := h.connector(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		return conn.GetPLMetrics(ctx, p.StartDate, p.EndDate)
	})
}

type accountTypesParams struct {
	CompanyID string `json:"company_id"`
}

func (h *Handler) handleGetAccountTypes(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[accountTypesParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	return h.readThrough(ctx, p.CompanyID, "account_types", func() (any, error) {
		conn, err := h.connector(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		return conn.GetAccountTypes(ctx)
	})
}

type accountChartParams struct {
	CompanyID    string   `json:"company_id"`
	AccountTypes []string `json:"account_types"`
	OdooCompanyID int     `json:"odoo_company_id"`
}

func (h *Handler) handleGetAccountChart(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[accountChartParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	subkey := "account_chart"
	if len(p.AccountTypes) > 0 {
		for _, t := range p.AccountTypes {
			subkey += ":" + t
		}
	}
	return h.readThrough(ctx, p.CompanyID, subkey, func() (any, error) {
		conn, err := h.connector(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		return conn.GetAccountChart(ctx, p.AccountTypes, p.OdooCompanyID)
	})
}

type updateAccountsParams struct {
	CompanyID string          `json:"company_id"`
	Accounts  []AccountUpdate `json:"accounts"`
}

// handleUpdateAccounts is a write handler: per spec.md §4.F it performs
// the backend write first, then invalidates every cached subkey of the
// erp family for the tenant only after the write call returns.
func (h *Handler) handleUpdateAccounts(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[updateAccountsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	if len(p.Accounts) == 0 {
		return nil, rpc.BadRequestf("accounts must be non-empty")
	}

	conn, err := h.connector(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	results := conn.UpdateAccounts(ctx, p.Accounts)

	user := callerID(ctx)
	h.cache.InvalidateFamily(ctx, user, p.CompanyID, family)

	return map[string]any{"success": true, "results": results}, nil
}

type updateCOAStructureParams struct {
	CompanyID string             `json:"company_id"`
	Update    COAStructureUpdate `json:"update"`
}

func (h *Handler) handleUpdateCOAStructure(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[updateCOAStructureParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}

	conn, err := h.connector(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := conn.UpdateCOAStructure(ctx, p.Update); err != nil {
		return nil, rpc.Internalf("updating coa structure: %v", err)
	}

	user := callerID(ctx)
	h.cache.InvalidateFamily(ctx, user, p.CompanyID, family)

	return map[string]any{"success": true}, nil
}

type bankStatementMoveLinesParams struct {
	CompanyID  string `json:"company_id"`
	JournalID  *int   `json:"journal_id"`
	Reconciled *bool  `json:"reconciled"`
}

func (h *Handler) handleGetBankStatementMoveLines(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[bankStatementMoveLinesParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	subkey := "bank_statement_move_lines"
	return h.readThrough(ctx, p.CompanyID, subkey, func() (any, error) {
		conn, err := h.connector(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		return conn.GetBankStatementMoveLinesNotReconciled(ctx, p.JournalID, p.Reconciled)
	})
}
