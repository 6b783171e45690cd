package jobber

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

const family = "hr"

// JobFailureAlerter is notified when a submission fails outright, after
// the client has already exhausted its own transport-level attempt.
// Kept as a narrow interface so this package doesn't import
// internal/alerting directly.
type JobFailureAlerter interface {
	NotifyJobFailure(ctx context.Context, jobID, jobType, reason string) error
}

// Handler registers the submission/reference-proxy RPC methods the
// architecture comment in HRJobberClient names explicitly: "Frontend →
// Backend RPC (HR.submit_*) → Ce client → Jobber HR" — these live
// alongside pkg/hr's methods under the same HR namespace since that is
// the contract the frontend already speaks, even though the
// implementation is this package's Jobber client rather than Postgres.
type Handler struct {
	client  *Client
	cache   *cache.Manager
	tracker *Tracker
	alerter JobFailureAlerter
	logger  *slog.Logger
}

// NewHandler wires a Handler. tracker may be nil (submissions simply
// aren't tracked for reconciliation — acceptable for local/dev runs
// without Redis). alerter may be nil (no failure notifications sent).
func NewHandler(client *Client, cm *cache.Manager, tracker *Tracker, alerter JobFailureAlerter, logger *slog.Logger) *Handler {
	return &Handler{client: client, cache: cm, tracker: tracker, alerter: alerter, logger: logger}
}

// track records a pending submission so internal/app's reconciliation
// loop can poll it if its callback is dropped, or raises an alert if the
// submission failed outright. Both are logged, never fatal — neither may
// fail the submission itself.
func (h *Handler) track(ctx context.Context, result SubmissionResult, sessionID string) {
	switch result.Status {
	case JobPending:
		if err := h.tracker.Track(ctx, result.JobID, sessionID); err != nil {
			h.logger.Warn("tracking submitted job", "job_id", result.JobID, "error", err)
		}
	case JobFailed:
		if h.alerter == nil {
			return
		}
		if err := h.alerter.NotifyJobFailure(ctx, result.JobID, "", result.Error); err != nil {
			h.logger.Warn("posting job failure alert", "job_id", result.JobID, "error", err)
		}
	}
}

func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("HR")
	ns.Method("submit_payroll_calculate", h.handleSubmitPayrollCalculate)
	ns.Method("submit_payroll_batch", h.handleSubmitPayrollBatch)
	ns.Method("submit_pdf_generate", h.handleSubmitPDFGenerate)
	ns.Method("get_job_status", h.handleGetJobStatus)
	ns.Method("get_all_references", h.handleGetAllReferences)
	ns.Method("get_reference", h.handleGetReference)
	ns.Method("get_contract_types", h.handleGetContractTypes)
	ns.Method("get_remuneration_types", h.handleGetRemunerationTypes)
	ns.Method("get_family_status", h.handleGetFamilyStatus)
	ns.Method("get_tax_status", h.handleGetTaxStatus)
	ns.Method("get_permit_types", h.handleGetPermitTypes)
	ns.Method("get_payroll_status", h.handleGetPayrollStatus)
	ns.Method("get_payroll_items", h.handleGetPayrollItems)
	ns.Method("check_jobber_health", h.handleCheckJobberHealth)
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

type submitPayrollCalculateParams struct {
	CompanyID        string         `json:"company_id"`
	EmployeeID       string         `json:"employee_id"`
	Year             int            `json:"year"`
	Month            int            `json:"month"`
	Variables        map[string]any `json:"variables,omitempty"`
	ForceRecalculate bool           `json:"force_recalculate"`
	SessionID        string         `json:"session_id,omitempty"`
	MandatePath      string         `json:"mandate_path,omitempty"`
}

func (h *Handler) handleSubmitPayrollCalculate(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[submitPayrollCalculateParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" || p.Year == 0 || p.Month == 0 {
		return nil, rpc.BadRequestf("company_id, employee_id, year, and month are required")
	}
	result := h.client.SubmitPayrollCalculate(ctx, PayrollCalculateParams{
		UserID: callerID(ctx), CompanyID: p.CompanyID, EmployeeID: p.EmployeeID,
		Year: p.Year, Month: p.Month, Variables: p.Variables,
		ForceRecalculate: p.ForceRecalculate, SessionID: p.SessionID, MandatePath: p.MandatePath,
	})
	h.track(ctx, result, p.SessionID)
	return result, nil
}

type submitPayrollBatchParams struct {
	CompanyID   string   `json:"company_id"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
	ClusterCode string   `json:"cluster_code,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	MandatePath string   `json:"mandate_path,omitempty"`
}

func (h *Handler) handleSubmitPayrollBatch(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[submitPayrollBatchParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.Year == 0 || p.Month == 0 {
		return nil, rpc.BadRequestf("company_id, year, and month are required")
	}
	result := h.client.SubmitPayrollBatch(ctx, PayrollBatchParams{
		UserID: callerID(ctx), CompanyID: p.CompanyID, Year: p.Year, Month: p.Month,
		EmployeeIDs: p.EmployeeIDs, ClusterCode: p.ClusterCode,
		SessionID: p.SessionID, MandatePath: p.MandatePath,
	})
	h.track(ctx, result, p.SessionID)
	return result, nil
}

type submitPDFGenerateParams struct {
	CompanyID   string `json:"company_id"`
	EmployeeID  string `json:"employee_id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	SessionID   string `json:"session_id,omitempty"`
	MandatePath string `json:"mandate_path,omitempty"`
}

func (h *Handler) handleSubmitPDFGenerate(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[submitPDFGenerateParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" || p.Year == 0 || p.Month == 0 {
		return nil, rpc.BadRequestf("company_id, employee_id, year, and month are required")
	}
	result := h.client.SubmitPDFGenerate(ctx, PDFGenerateParams{
		UserID: callerID(ctx), CompanyID: p.CompanyID, EmployeeID: p.EmployeeID,
		Year: p.Year, Month: p.Month, SessionID: p.SessionID, MandatePath: p.MandatePath,
	})
	h.track(ctx, result, p.SessionID)
	return result, nil
}

type getJobStatusParams struct {
	JobID string `json:"job_id"`
}

func (h *Handler) handleGetJobStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getJobStatusParams](raw)
	if err != nil {
		return nil, err
	}
	if p.JobID == "" {
		return nil, rpc.BadRequestf("job_id is required")
	}
	result, err := h.client.GetJobStatus(ctx, p.JobID)
	if err != nil {
		return nil, rpc.Internalf("fetching job status: %v", err)
	}
	return result, nil
}

type getAllReferencesParams struct {
	CompanyID   string `json:"company_id"`
	CountryCode string `json:"country_code"`
	Lang        string `json:"lang"`
}

// handleGetAllReferences is a cache-through read under the hr family's
// "references:{country}:{lang}" subkey — the exact pattern spec.md
// §4.D's TTL table names (86400s), since these tables change rarely.
func (h *Handler) handleGetAllReferences(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getAllReferencesParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	if p.CountryCode == "" {
		p.CountryCode = "CH"
	}
	if p.Lang == "" {
		p.Lang = "fr"
	}

	user := callerID(ctx)
	subkey := "references:" + p.CountryCode + ":" + p.Lang

	if env, ok := h.cache.Get(ctx, user, p.CompanyID, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	data, err := h.client.GetAllReferences(ctx, p.CountryCode, p.Lang)
	if err != nil {
		return nil, rpc.Internalf("fetching references: %v", err)
	}

	h.cache.Set(ctx, user, p.CompanyID, family, subkey, data, cache.FamilyTTL(family, subkey))
	return map[string]any{"data": data, "source": "jobber"}, nil
}

func (h *Handler) handleCheckJobberHealth(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.client.CheckHealth(ctx), nil
}

type getReferenceParams struct {
	CompanyID   string `json:"company_id"`
	CountryCode string `json:"country_code"`
	Lang        string `json:"lang"`
	ClusterCode string `json:"cluster_code,omitempty"`
}

// referenceCacheThrough is the one cache-through shape every single-table
// reference read shares with handleGetAllReferences: same family, same
// "references:{country}:{lang}:{table}" subkey convention, same
// fetch-on-miss-then-populate flow. fetch is given countryCode/lang/
// clusterCode already defaulted.
func (h *Handler) referenceCacheThrough(ctx context.Context, table, companyID, countryCode, lang string, fetch func(ctx context.Context) ([]map[string]any, error)) (any, error) {
	user := callerID(ctx)
	subkey := "references:" + countryCode + ":" + lang + ":" + table

	if env, ok := h.cache.Get(ctx, user, companyID, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, rpc.Internalf("fetching reference table %q: %v", table, err)
	}

	h.cache.Set(ctx, user, companyID, family, subkey, data, cache.FamilyTTL(family, subkey))
	return map[string]any{"data": data, "source": "jobber"}, nil
}

// handleGetReference proxies to any one of the named reference tables by
// name, grounded on HRJobberClient._get_reference's generic shared helper.
func (h *Handler) handleGetReference(ctx context.Context, raw json.RawMessage) (any, error) {
	var p struct {
		getReferenceParams
		Table string `json:"table"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, rpc.BadRequestf("decoding params: %v", err)
	}
	if p.CompanyID == "" || p.Table == "" {
		return nil, rpc.BadRequestf("company_id and table are required")
	}
	if p.CountryCode == "" {
		p.CountryCode = "CH"
	}
	if p.Lang == "" {
		p.Lang = "fr"
	}
	endpoint := ReferenceEndpoint(p.Table)
	return h.referenceCacheThrough(ctx, p.Table, p.CompanyID, p.CountryCode, p.Lang, func(ctx context.Context) ([]map[string]any, error) {
		return h.client.GetReference(ctx, endpoint, p.CountryCode, p.Lang)
	})
}

// The seven convenience wire methods below are the one-liners the
// frontend's original callers used (HR.get_contract_types, etc.), each
// delegating to the same GetReference/GetPayrollItems calls
// handleGetReference exposes generically.

func (h *Handler) handleGetContractTypes(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "contract-types", RefContractTypes)
}

func (h *Handler) handleGetRemunerationTypes(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "remuneration-types", RefRemunerationTypes)
}

func (h *Handler) handleGetFamilyStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "family-status", RefFamilyStatus)
}

func (h *Handler) handleGetTaxStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "tax-status", RefTaxStatus)
}

func (h *Handler) handleGetPermitTypes(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "permit-types", RefPermitTypes)
}

func (h *Handler) handleGetPayrollStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.handleNamedReference(ctx, raw, "payroll-status", RefPayrollStatus)
}

func (h *Handler) handleNamedReference(ctx context.Context, raw json.RawMessage, table string, endpoint ReferenceEndpoint) (any, error) {
	p, err := decodeParams[getReferenceParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	if p.CountryCode == "" {
		p.CountryCode = "CH"
	}
	if p.Lang == "" {
		p.Lang = "fr"
	}
	return h.referenceCacheThrough(ctx, table, p.CompanyID, p.CountryCode, p.Lang, func(ctx context.Context) ([]map[string]any, error) {
		return h.client.GetReference(ctx, endpoint, p.CountryCode, p.Lang)
	})
}

// handleGetPayrollItems is the seventh convenience method: unlike the
// others it takes a cluster, not a country/lang pair alone, matching
// HRJobberClient.get_payroll_items's own signature.
func (h *Handler) handleGetPayrollItems(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getReferenceParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.CountryCode == "" {
		return nil, rpc.BadRequestf("company_id and country_code are required")
	}
	return h.referenceCacheThrough(ctx, "payroll-items", p.CompanyID, p.CountryCode, p.ClusterCode, func(ctx context.Context) ([]map[string]any, error) {
		return h.client.GetPayrollItems(ctx, p.CountryCode, p.ClusterCode)
	})
}
