package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

// family is the cache family this handler owns (spec.md §3: Family ∈
// {hr, erp, drive, llm_ref}).
const family = "hr"

// Handler implements the HR.* RPC namespace: cache-through reads and
// write-then-invalidate writes over Service.
type Handler struct {
	svc    *Service
	cache  *cache.Manager
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *Service, cm *cache.Manager, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, cache: cm, logger: logger}
}

// Register binds every HR.* method onto router.
func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("HR")
	ns.Method("check_connection", h.handleCheckConnection)
	ns.Method("get_or_create_company", h.handleGetOrCreateCompany)
	ns.Method("list_employees", h.handleListEmployees)
	ns.Method("get_employee", h.handleGetEmployee)
	ns.Method("create_employee", h.handleCreateEmployee)
	ns.Method("update_employee", h.handleUpdateEmployee)
	ns.Method("delete_employee", h.handleDeleteEmployee)
	ns.Method("list_contracts", h.handleListContracts)
	ns.Method("get_active_contract", h.handleGetActiveContract)
	ns.Method("create_contract", h.handleCreateContract)
	ns.Method("list_clusters", h.handleListClusters)
	ns.Method("get_payroll_result", h.handleGetPayrollResult)
	ns.Method("list_payroll_results", h.handleListPayrollResults)
}

// callerID extracts the authenticated caller's id from ctx — never from
// the request body (spec.md §4.E).
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

func decodeParams[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, rpc.BadRequestf("decoding params: %v", err)
	}
	return v, nil
}

// readThrough implements the read contract shared by every HR.list_*/
// get_* handler: cache hit -> {source:"cache"}; miss -> backend read,
// cache write (if non-empty) with the family TTL, {source:"database"}.
func (h *Handler) readThrough(ctx context.Context, user, tenant, subkey string, fetch func() (any, error)) (map[string]any, error) {
	if env, ok := h.cache.Get(ctx, user, tenant, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	data, err := fetch()
	if err != nil {
		return nil, err
	}

	ttl := cache.FamilyTTL(family, subkey)
	h.cache.Set(ctx, user, tenant, family, subkey, data, ttl)

	return map[string]any{"data": data, "source": "database"}, nil
}

// ─── Company ─────────────────────────────────────────────────────────────

type getOrCreateCompanyParams struct {
	AccountFirebaseUID string `json:"account_firebase_uid"`
	MandatePath        string `json:"mandate_path"`
	CompanyName        string `json:"company_name"`
	Country            string `json:"country"`
	CountryCode        string `json:"country_code"`
	Region             string `json:"region"`
	RegionCode         string `json:"region_code"`
}

func (h *Handler) handleGetOrCreateCompany(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getOrCreateCompanyParams](raw)
	if err != nil {
		return nil, err
	}
	if p.MandatePath == "" {
		return nil, rpc.BadRequestf("mandate_path is required")
	}

	companyID, err := h.svc.GetOrCreateCompany(ctx, GetOrCreateCompanyParams{
		AccountFirebaseUID: p.AccountFirebaseUID,
		MandatePath:        p.MandatePath,
		CompanyName:        p.CompanyName,
		Country:            p.Country,
		CountryCode:        p.CountryCode,
		Region:             p.Region,
		RegionCode:         p.RegionCode,
	})
	if err != nil {
		return nil, rpc.Internalf("creating company: %v", err)
	}
	return map[string]any{"company_id": companyID}, nil
}

func (h *Handler) handleCheckConnection(ctx context.Context, _ json.RawMessage) (any, error) {
	status, err := h.svc.CheckConnection(ctx)
	if err != nil {
		return nil, rpc.Internalf("checking connection: %v", err)
	}
	return status, nil
}

// ─── Employees ───────────────────────────────────────────────────────────

type listEmployeesParams struct {
	CompanyID string `json:"company_id"`
}

func (h *Handler) handleListEmployees(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[listEmployeesParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}

	user := callerID(ctx)
	result, err := h.readThrough(ctx, user, p.CompanyID, "employees", func() (any, error) {
		employees, err := h.svc.ListEmployees(ctx, p.CompanyID)
		if err != nil {
			return nil, rpc.Internalf("listing employees: %v", err)
		}
		if employees == nil {
			employees = []Employee{}
		}
		return employees, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"employees": result["data"], "source": result["source"]}, nil
}

type getEmployeeParams struct {
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
}

func (h *Handler) handleGetEmployee(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getEmployeeParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" {
		return nil, rpc.BadRequestf("company_id and employee_id are required")
	}

	user := callerID(ctx)
	subkey := "employee:" + p.EmployeeID

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		emp, ok, err := h.svc.GetEmployee(ctx, p.CompanyID, p.EmployeeID)
		if err != nil {
			return nil, rpc.Internalf("getting employee: %v", err)
		}
		if !ok {
			return nil, rpc.NotFoundf("employee %s not found", p.EmployeeID)
		}
		return emp, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"employee": result["data"], "source": result["source"]}, nil
}

type createEmployeeParams struct {
	CompanyID   string `json:"company_id"`
	Identifier  string `json:"identifier"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BirthDate   string `json:"birth_date"`
	ClusterCode string `json:"cluster_code"`
	HireDate    string `json:"hire_date"`
}

func (h *Handler) handleCreateEmployee(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[createEmployeeParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.Identifier == "" {
		return nil, rpc.BadRequestf("company_id and identifier are required")
	}

	id, err := h.svc.CreateEmployee(ctx, CreateEmployeeParams{
		CompanyID:   p.CompanyID,
		Identifier:  p.Identifier,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		BirthDate:   p.BirthDate,
		ClusterCode: p.ClusterCode,
		HireDate:    p.HireDate,
	})
	if err != nil {
		return nil, rpc.Internalf("creating employee: %v", err)
	}

	user := callerID(ctx)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, "employees")

	return map[string]any{"employee_id": id}, nil
}

type updateEmployeeParams struct {
	CompanyID  string         `json:"company_id"`
	EmployeeID string         `json:"employee_id"`
	Fields     map[string]any `json:"fields"`
}

func (h *Handler) handleUpdateEmployee(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[updateEmployeeParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" {
		return nil, rpc.BadRequestf("company_id and employee_id are required")
	}

	updated, err := h.svc.UpdateEmployee(ctx, p.CompanyID, p.EmployeeID, p.Fields)
	if err != nil {
		return nil, rpc.Internalf("updating employee: %v", err)
	}

	if updated {
		user := callerID(ctx)
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "employees")
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "employee:"+p.EmployeeID)
	}

	return map[string]any{"updated": updated}, nil
}

type deleteEmployeeParams struct {
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
}

func (h *Handler) handleDeleteEmployee(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[deleteEmployeeParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" {
		return nil, rpc.BadRequestf("company_id and employee_id are required")
	}

	deleted, err := h.svc.DeleteEmployee(ctx, p.CompanyID, p.EmployeeID)
	if err != nil {
		return nil, rpc.Internalf("deleting employee: %v", err)
	}

	if deleted {
		user := callerID(ctx)
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "employees")
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "employee:"+p.EmployeeID)
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "contracts:"+p.EmployeeID)
		h.cache.Invalidate(ctx, user, p.CompanyID, family, "active_contract:"+p.EmployeeID)
	}

	return map[string]any{"deleted": deleted}, nil
}

// ─── Contracts ───────────────────────────────────────────────────────────

type listContractsParams struct {
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
}

func (h *Handler) handleListContracts(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[listContractsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" {
		return nil, rpc.BadRequestf("company_id and employee_id are required")
	}

	user := callerID(ctx)
	subkey := "contracts:" + p.EmployeeID

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		contracts, err := h.svc.ListContracts(ctx, p.CompanyID, p.EmployeeID)
		if err != nil {
			return nil, rpc.Internalf("listing contracts: %v", err)
		}
		if contracts == nil {
			contracts = []Contract{}
		}
		return contracts, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"contracts": result["data"], "source": result["source"]}, nil
}

func (h *Handler) handleGetActiveContract(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[listContractsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" {
		return nil, rpc.BadRequestf("company_id and employee_id are required")
	}

	user := callerID(ctx)
	subkey := "active_contract:" + p.EmployeeID

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		contract, ok, err := h.svc.GetActiveContract(ctx, p.CompanyID, p.EmployeeID)
		if err != nil {
			return nil, rpc.Internalf("getting active contract: %v", err)
		}
		if !ok {
			return nil, rpc.NotFoundf("no active contract for employee %s", p.EmployeeID)
		}
		return contract, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"contract": result["data"], "source": result["source"]}, nil
}

type createContractParams struct {
	CompanyID    string  `json:"company_id"`
	EmployeeID   string  `json:"employee_id"`
	ContractType string  `json:"contract_type"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date"`
	BaseSalary   float64 `json:"base_salary"`
	Currency     string  `json:"currency"`
	WorkRate     float64 `json:"work_rate"`
	WeeklyHours  float64 `json:"weekly_hours"`
}

func (h *Handler) handleCreateContract(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[createContractParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" || p.ContractType == "" || p.StartDate == "" {
		return nil, rpc.BadRequestf("company_id, employee_id, contract_type, start_date are required")
	}

	id, err := h.svc.CreateContract(ctx, CreateContractParams{
		CompanyID:    p.CompanyID,
		EmployeeID:   p.EmployeeID,
		ContractType: p.ContractType,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		BaseSalary:   p.BaseSalary,
		Currency:     p.Currency,
		WorkRate:     p.WorkRate,
		WeeklyHours:  p.WeeklyHours,
	})
	if err != nil {
		return nil, rpc.NotFoundf("creating contract: %v", err)
	}

	user := callerID(ctx)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, "contracts:"+p.EmployeeID)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, "active_contract:"+p.EmployeeID)

	return map[string]any{"contract_id": id}, nil
}

// ─── Clusters & payroll (read-only reference data) ────────────────────

type listClustersParams struct {
	CompanyID   string `json:"company_id"`
	CountryCode string `json:"country_code"`
}

func (h *Handler) handleListClusters(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[listClustersParams](raw)
	if err != nil {
		return nil, err
	}

	user := callerID(ctx)
	subkey := "clusters"
	if p.CountryCode != "" {
		subkey = "clusters:" + p.CountryCode
	}

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		clusters, err := h.svc.ListClusters(ctx, p.CountryCode)
		if err != nil {
			return nil, rpc.Internalf("listing clusters: %v", err)
		}
		if clusters == nil {
			clusters = []Cluster{}
		}
		return clusters, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"clusters": result["data"], "source": result["source"]}, nil
}

type getPayrollResultParams struct {
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
}

func (h *Handler) handleGetPayrollResult(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[getPayrollResultParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" || p.EmployeeID == "" || p.Year == 0 || p.Month == 0 {
		return nil, rpc.BadRequestf("company_id, employee_id, year, month are required")
	}

	user := callerID(ctx)
	subkey := fmt.Sprintf("references:payroll:%s:%d:%d", p.EmployeeID, p.Year, p.Month)

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		res, ok, err := h.svc.GetPayrollResult(ctx, p.CompanyID, p.EmployeeID, p.Year, p.Month)
		if err != nil {
			return nil, rpc.Internalf("getting payroll result: %v", err)
		}
		if !ok {
			return nil, rpc.NotFoundf("no payroll result for employee %s period %d-%d", p.EmployeeID, p.Year, p.Month)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"payroll_result": result["data"], "source": result["source"]}, nil
}

type listPayrollResultsParams struct {
	CompanyID  string `json:"company_id"`
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
}

func (h *Handler) handleListPayrollResults(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[listPayrollResultsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}

	user := callerID(ctx)
	subkey := fmt.Sprintf("references:payroll:%s:%d", p.EmployeeID, p.Year)

	result, err := h.readThrough(ctx, user, p.CompanyID, subkey, func() (any, error) {
		results, err := h.svc.ListPayrollResults(ctx, p.CompanyID, p.EmployeeID, p.Year)
		if err != nil {
			return nil, rpc.Internalf("listing payroll results: %v", err)
		}
		if results == nil {
			results = []PayrollResult{}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"payroll_results": result["data"], "source": result["source"]}, nil
}
