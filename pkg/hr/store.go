package hr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dateLayout is the wire date format (spec.md §4.G: "YYYY-MM-DD").
const dateLayout = "2006-01-02"

// DB is the subset of *pgxpool.Pool the store needs. Kept as an
// interface (rather than binding directly to pgxpool.Pool) so tests can
// substitute a fake without standing up a real Postgres instance.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides raw-SQL Postgres access for the HR data family. There is
// no generated query layer here (the teacher's sqlc-generated package
// isn't part of this domain) — queries are hand-written against DB,
// following the same dbtx.QueryRow-and-Scan shape the teacher uses
// alongside its generated queries elsewhere.
type Store struct {
	db DB
}

// NewStore creates a Store backed by db.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ─── Company / mandate mapping ──────────────────────────────────────────

// GetCompanyIDByMandatePath returns the PostgreSQL company id for a
// Firebase mandate path, or ("", false) if no company has been created
// for it yet.
func (s *Store) GetCompanyIDByMandatePath(ctx context.Context, mandatePath string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM core.companies WHERE firebase_mandate_path = $1`,
		mandatePath,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up company by mandate path: %w", err)
	}
	return id, true, nil
}

// GetOrCreateCompanyParams is the input to GetOrCreateCompany.
type GetOrCreateCompanyParams struct {
	AccountFirebaseUID string
	MandatePath        string
	CompanyName        string
	Country            string
	CountryCode        string
	Region             string
	RegionCode         string
}

// GetOrCreateCompany is idempotent on MandatePath: it creates the backing
// account row if needed, then the company row, parsing the mandate path
// segments ("comptes/{parent}/mandats/{mandate}") into their firebase_*
// columns.
func (s *Store) GetOrCreateCompany(ctx context.Context, p GetOrCreateCompanyParams) (string, error) {
	if existing, ok, err := s.GetCompanyIDByMandatePath(ctx, p.MandatePath); err != nil {
		return "", err
	} else if ok {
		return existing, nil
	}

	var accountID string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM core.accounts WHERE firebase_uid = $1`,
		p.AccountFirebaseUID,
	).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.db.QueryRow(ctx,
			`INSERT INTO core.accounts (firebase_uid, display_name, email)
			 VALUES ($1, $2, $3) RETURNING id`,
			p.AccountFirebaseUID, "Imported Account", p.AccountFirebaseUID+"@imported.local",
		).Scan(&accountID)
	}
	if err != nil {
		return "", fmt.Errorf("resolving account: %w", err)
	}

	parts := strings.Split(p.MandatePath, "/")
	var firebaseParentID, firebaseMandateID *string
	if len(parts) >= 2 {
		firebaseParentID = &parts[1]
	}
	if len(parts) >= 4 {
		firebaseMandateID = &parts[3]
	}

	var companyID string
	err = s.db.QueryRow(ctx,
		`INSERT INTO core.companies (
			account_id, firebase_mandate_path, firebase_mandate_id,
			firebase_parent_id, name, country, country_code, region, region_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		accountID, p.MandatePath, firebaseMandateID, firebaseParentID,
		p.CompanyName, p.Country, nullIfEmpty(p.CountryCode), nullIfEmpty(p.Region), nullIfEmpty(p.RegionCode),
	).Scan(&companyID)
	if err != nil {
		return "", fmt.Errorf("creating company: %w", err)
	}
	return companyID, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ─── Employees ───────────────────────────────────────────────────────────

// ListEmployees returns every active employee of companyID, ordered by
// last name then first name.
func (s *Store) ListEmployees(ctx context.Context, companyID string) ([]Employee, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, identifier, first_name, last_name, birth_date,
		        cluster_code, hire_date, is_active, created_at
		 FROM hr.employees
		 WHERE company_id = $1 AND is_active = TRUE
		 ORDER BY last_name, first_name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var (
			e         Employee
			birthDate time.Time
			hireDate  time.Time
		)
		if err := rows.Scan(&e.ID, &e.Identifier, &e.FirstName, &e.LastName,
			&birthDate, &e.ClusterCode, &hireDate, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning employee row: %w", err)
		}
		e.CompanyID = companyID
		e.BirthDate = formatDate(birthDate)
		e.HireDate = formatDate(hireDate)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating employee rows: %w", err)
	}
	return out, nil
}

// GetEmployee returns a single employee scoped to companyID, or
// (Employee{}, false) if absent.
func (s *Store) GetEmployee(ctx context.Context, companyID, employeeID string) (Employee, bool, error) {
	var (
		e         Employee
		birthDate time.Time
		hireDate  time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, identifier, first_name, last_name, birth_date,
		        cluster_code, hire_date, is_active, created_at
		 FROM hr.employees WHERE id = $1 AND company_id = $2`,
		employeeID, companyID,
	).Scan(&e.ID, &e.Identifier, &e.FirstName, &e.LastName, &birthDate,
		&e.ClusterCode, &hireDate, &e.IsActive, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, false, nil
	}
	if err != nil {
		return Employee{}, false, fmt.Errorf("getting employee: %w", err)
	}
	e.CompanyID = companyID
	e.BirthDate = formatDate(birthDate)
	e.HireDate = formatDate(hireDate)
	return e, true, nil
}

// CreateEmployee inserts a new employee and returns its id.
func (s *Store) CreateEmployee(ctx context.Context, p CreateEmployeeParams) (string, error) {
	birthDate, err := parseDate(p.BirthDate)
	if err != nil {
		return "", err
	}
	hireDate, err := parseDate(p.HireDate)
	if err != nil {
		return "", err
	}

	var id string
	err = s.db.QueryRow(ctx,
		`INSERT INTO hr.employees (
			company_id, identifier, first_name, last_name,
			birth_date, cluster_code, hire_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.CompanyID, p.Identifier, p.FirstName, p.LastName,
		birthDate, p.ClusterCode, hireDate,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("creating employee: %w", err)
	}
	return id, nil
}

// UpdateEmployee applies fields whose key is in employeeUpdateWhitelist;
// unrecognized keys are silently dropped. Returns false (not an error) if
// nothing recognized was supplied, matching the no-op-on-empty contract.
func (s *Store) UpdateEmployee(ctx context.Context, companyID, employeeID string, fields map[string]any) (bool, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)

	for field, value := range fields {
		if !employeeUpdateWhitelist[field] {
			continue
		}
		if employeeDateFields[field] && value != nil {
			str, ok := value.(string)
			if !ok {
				continue
			}
			d, err := parseDate(str)
			if err != nil {
				return false, err
			}
			value = d
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, idx))
		args = append(args, value)
		idx++
	}

	if len(setClauses) == 0 {
		return false, nil
	}

	args = append(args, employeeID, companyID)
	query := fmt.Sprintf(
		`UPDATE hr.employees SET %s, updated_at = NOW() WHERE id = $%d AND company_id = $%d`,
		strings.Join(setClauses, ", "), idx, idx+1,
	)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating employee: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteEmployee soft-deletes (is_active=false); it never removes the row.
func (s *Store) DeleteEmployee(ctx context.Context, companyID, employeeID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE hr.employees SET is_active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND company_id = $2`,
		employeeID, companyID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting employee: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ─── Contracts ───────────────────────────────────────────────────────────

func scanContract(row pgx.Row) (Contract, error) {
	var (
		c        Contract
		start    time.Time
		end      *time.Time
		provJSON []byte
	)
	if err := row.Scan(&c.ID, &c.EmployeeID, &c.ContractType, &start, &end,
		&c.BaseSalary, &c.Currency, &c.WorkRate, &c.WeeklyHours, &provJSON, &c.IsActive); err != nil {
		return Contract{}, err
	}
	c.StartDate = formatDate(start)
	if end != nil {
		s := formatDate(*end)
		c.EndDate = &s
	}
	return c, nil
}

const contractColumns = `c.id, c.employee_id, c.contract_type, c.start_date, c.end_date,
	c.base_salary, c.currency, c.work_rate, c.weekly_hours, c.provisions, c.is_active`

// ListContracts returns every contract for employeeID, newest start_date
// first.
func (s *Store) ListContracts(ctx context.Context, companyID, employeeID string) ([]Contract, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+contractColumns+`
		 FROM hr.contracts c
		 JOIN hr.employees e ON c.employee_id = e.id
		 WHERE c.employee_id = $1 AND e.company_id = $2
		 ORDER BY c.start_date DESC`,
		employeeID, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contract row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetActiveContract applies the active-contract rule from spec.md §3:
// is_active AND start_date <= today AND (end_date IS NULL OR end_date >=
// today), tie-broken by the latest start_date. Returns at most one row.
func (s *Store) GetActiveContract(ctx context.Context, companyID, employeeID string) (Contract, bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+contractColumns+`
		 FROM hr.contracts c
		 JOIN hr.employees e ON c.employee_id = e.id
		 WHERE c.employee_id = $1
		   AND e.company_id = $2
		   AND c.is_active = TRUE
		   AND c.start_date <= CURRENT_DATE
		   AND (c.end_date IS NULL OR c.end_date >= CURRENT_DATE)
		 ORDER BY c.start_date DESC
		 LIMIT 1`,
		employeeID, companyID,
	)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, false, nil
	}
	if err != nil {
		return Contract{}, false, fmt.Errorf("getting active contract: %w", err)
	}
	return c, true, nil
}

// CreateContract verifies employeeID belongs to companyID, then inserts
// the contract.
func (s *Store) CreateContract(ctx context.Context, p CreateContractParams) (string, error) {
	var exists string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM hr.employees WHERE id = $1 AND company_id = $2`,
		p.EmployeeID, p.CompanyID,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("employee %s not found in company %s", p.EmployeeID, p.CompanyID)
	}
	if err != nil {
		return "", fmt.Errorf("verifying employee ownership: %w", err)
	}

	startDate, err := parseDate(p.StartDate)
	if err != nil {
		return "", err
	}
	var endDate *time.Time
	if p.EndDate != nil {
		d, err := parseDate(*p.EndDate)
		if err != nil {
			return "", err
		}
		endDate = &d
	}

	currency := p.Currency
	if currency == "" {
		currency = "CHF"
	}
	workRate := p.WorkRate
	if workRate == 0 {
		workRate = 1.0
	}
	weeklyHours := p.WeeklyHours
	if weeklyHours == 0 {
		weeklyHours = 42.0
	}

	var id string
	err = s.db.QueryRow(ctx,
		`INSERT INTO hr.contracts (
			employee_id, contract_type, start_date, end_date,
			base_salary, currency, work_rate, weekly_hours
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		p.EmployeeID, p.ContractType, startDate, endDate, p.BaseSalary, currency, workRate, weeklyHours,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("creating contract: %w", err)
	}
	return id, nil
}

// ─── Clusters ────────────────────────────────────────────────────────────

// ListClusters returns active clusters, optionally restricted to those
// assigned to countryCode.
func (s *Store) ListClusters(ctx context.Context, countryCode string) ([]Cluster, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if countryCode != "" {
		rows, err = s.db.Query(ctx,
			`SELECT c.code, c.name, c.is_active
			 FROM hr.clusters c
			 JOIN hr.country_clusters cc ON c.code = cc.cluster_code
			 WHERE cc.country_code = $1 AND c.is_active = TRUE
			 ORDER BY c.code`,
			countryCode,
		)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT code, name, is_active FROM hr.clusters WHERE is_active = TRUE ORDER BY code`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}
	defer rows.Close()

	var out []Cluster
	for rows.Next() {
		var c Cluster
		if err := rows.Scan(&c.Code, &c.Name, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scanning cluster row: %w", err)
		}
		if countryCode != "" {
			c.CountryCode = countryCode
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Payroll results (read-only) ───────────────────────────────────────

// GetPayrollResult returns one payroll result, or (PayrollResult{}, false)
// if none exists for the given period.
func (s *Store) GetPayrollResult(ctx context.Context, companyID, employeeID string, year, month int) (PayrollResult, bool, error) {
	var r PayrollResult
	err := s.db.QueryRow(ctx,
		`SELECT r.id, r.employee_id, r.period_year, r.period_month, r.gross_salary, r.net_salary, r.status
		 FROM hr.payroll_results r
		 JOIN hr.employees e ON r.employee_id = e.id
		 WHERE r.employee_id = $1 AND r.period_year = $2 AND r.period_month = $3 AND e.company_id = $4`,
		employeeID, year, month, companyID,
	).Scan(&r.ID, &r.EmployeeID, &r.PeriodYear, &r.PeriodMonth, &r.GrossSalary, &r.NetSalary, &r.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PayrollResult{}, false, nil
	}
	if err != nil {
		return PayrollResult{}, false, fmt.Errorf("getting payroll result: %w", err)
	}
	return r, true, nil
}

// ListPayrollResults lists payroll results for a company, optionally
// narrowed to one employee and/or one year.
func (s *Store) ListPayrollResults(ctx context.Context, companyID string, employeeID string, year int) ([]PayrollResult, error) {
	query := `SELECT r.id, r.employee_id, r.period_year, r.period_month, r.gross_salary, r.net_salary, r.status
		FROM hr.payroll_results r
		JOIN hr.employees e ON r.employee_id = e.id
		WHERE e.company_id = $1`
	args := []any{companyID}
	idx := 2

	if employeeID != "" {
		query += fmt.Sprintf(" AND r.employee_id = $%d", idx)
		args = append(args, employeeID)
		idx++
	}
	if year != 0 {
		query += fmt.Sprintf(" AND r.period_year = $%d", idx)
		args = append(args, year)
		idx++
	}
	query += " ORDER BY r.period_year DESC, r.period_month DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payroll results: %w", err)
	}
	defer rows.Close()

	var out []PayrollResult
	for rows.Next() {
		var r PayrollResult
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.PeriodYear, &r.PeriodMonth, &r.GrossSalary, &r.NetSalary, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning payroll result row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CheckConnection reports basic connectivity/schema presence, mirroring
// the original's check_connection diagnostic.
func (s *Store) CheckConnection(ctx context.Context) (map[string]any, error) {
	var pgVersion string
	if err := s.db.QueryRow(ctx, `SELECT version()`).Scan(&pgVersion); err != nil {
		return map[string]any{"status": "error", "error": err.Error()}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata WHERE schema_name IN ('core', 'hr')`,
	)
	if err != nil {
		return map[string]any{"status": "error", "error": err.Error()}, nil
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning schema row: %w", err)
		}
		schemas = append(schemas, name)
	}

	return map[string]any{
		"status":   "connected",
		"database": "PostgreSQL",
		"version":  pgVersion,
		"schemas":  schemas,
	}, nil
}
