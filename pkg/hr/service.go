package hr

import (
	"context"
	"fmt"
	"sync"
)

// Service composes Store with the in-process mandate_path → company_id
// shortcut cache spec.md §4.G calls for. The cache is strictly a
// performance shortcut: a miss always falls through to Store, never to
// an error.
type Service struct {
	store *Store

	companiesMu sync.RWMutex
	companies   map[string]string // mandate_path -> company_id
}

// NewService creates a Service backed by store.
func NewService(store *Store) *Service {
	return &Service{store: store, companies: make(map[string]string)}
}

// ResolveCompany returns the company id for mandatePath, consulting the
// shortcut cache first and Store.GetCompanyIDByMandatePath on a miss.
func (s *Service) ResolveCompany(ctx context.Context, mandatePath string) (string, bool, error) {
	s.companiesMu.RLock()
	if id, ok := s.companies[mandatePath]; ok {
		s.companiesMu.RUnlock()
		return id, true, nil
	}
	s.companiesMu.RUnlock()

	id, ok, err := s.store.GetCompanyIDByMandatePath(ctx, mandatePath)
	if err != nil || !ok {
		return "", ok, err
	}
	s.cacheCompany(mandatePath, id)
	return id, true, nil
}

// GetOrCreateCompany delegates to Store and populates the shortcut cache
// on success.
func (s *Service) GetOrCreateCompany(ctx context.Context, p GetOrCreateCompanyParams) (string, error) {
	id, err := s.store.GetOrCreateCompany(ctx, p)
	if err != nil {
		return "", err
	}
	s.cacheCompany(p.MandatePath, id)
	return id, nil
}

func (s *Service) cacheCompany(mandatePath, companyID string) {
	s.companiesMu.Lock()
	s.companies[mandatePath] = companyID
	s.companiesMu.Unlock()
}

// ─── Employees ───────────────────────────────────────────────────────────

func (s *Service) ListEmployees(ctx context.Context, companyID string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, companyID)
}

func (s *Service) GetEmployee(ctx context.Context, companyID, employeeID string) (Employee, bool, error) {
	return s.store.GetEmployee(ctx, companyID, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, p CreateEmployeeParams) (string, error) {
	if p.Identifier == "" {
		return "", fmt.Errorf("identifier is required")
	}
	return s.store.CreateEmployee(ctx, p)
}

func (s *Service) UpdateEmployee(ctx context.Context, companyID, employeeID string, fields map[string]any) (bool, error) {
	return s.store.UpdateEmployee(ctx, companyID, employeeID, fields)
}

func (s *Service) DeleteEmployee(ctx context.Context, companyID, employeeID string) (bool, error) {
	return s.store.DeleteEmployee(ctx, companyID, employeeID)
}

// ─── Contracts ───────────────────────────────────────────────────────────

func (s *Service) ListContracts(ctx context.Context, companyID, employeeID string) ([]Contract, error) {
	return s.store.ListContracts(ctx, companyID, employeeID)
}

func (s *Service) GetActiveContract(ctx context.Context, companyID, employeeID string) (Contract, bool, error) {
	return s.store.GetActiveContract(ctx, companyID, employeeID)
}

func (s *Service) CreateContract(ctx context.Context, p CreateContractParams) (string, error) {
	return s.store.CreateContract(ctx, p)
}

// ─── Clusters & payroll (read-only) ────────────────────────────────────

func (s *Service) ListClusters(ctx context.Context, countryCode string) ([]Cluster, error) {
	return s.store.ListClusters(ctx, countryCode)
}

func (s *Service) GetPayrollResult(ctx context.Context, companyID, employeeID string, year, month int) (PayrollResult, bool, error) {
	return s.store.GetPayrollResult(ctx, companyID, employeeID, year, month)
}

func (s *Service) ListPayrollResults(ctx context.Context, companyID, employeeID string, year int) ([]PayrollResult, error) {
	return s.store.ListPayrollResults(ctx, companyID, employeeID, year)
}

func (s *Service) CheckConnection(ctx context.Context) (map[string]any, error) {
	return s.store.CheckConnection(ctx)
}
