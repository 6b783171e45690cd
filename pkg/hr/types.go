// Package hr implements Postgres-backed access to the HR data family
// (companies, employees, contracts, clusters, payroll results) and the
// cache-through/write-through RPC handlers built on top of it. It is the
// one write-enabled data family this system owns; clusters and payroll
// results are read-only from its point of view.
package hr

import "time"

// Company maps a Firebase mandate path to a PostgreSQL row. Created on
// first HR access for a given mandate, never deleted.
type Company struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	MandatePath string `json:"mandate_path"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code,omitempty"`
	Region      string `json:"region,omitempty"`
	RegionCode  string `json:"region_code,omitempty"`
}

// Employee is soft-delete only: Delete sets IsActive=false, it never
// removes the row.
type Employee struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Identifier  string    `json:"identifier"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	BirthDate   string    `json:"birth_date"`
	ClusterCode string    `json:"cluster_code"`
	HireDate    string    `json:"hire_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// employeeUpdateWhitelist is the exhaustive set of columns Update may
// touch. Any field outside this set is silently dropped, never errored.
var employeeUpdateWhitelist = map[string]bool{
	"identifier":   true,
	"first_name":   true,
	"last_name":    true,
	"birth_date":   true,
	"cluster_code": true,
	"hire_date":    true,
	"is_active":    true,
}

// employeeDateFields require string→date coercion before binding.
var employeeDateFields = map[string]bool{
	"birth_date": true,
	"hire_date":  true,
}

// Contract. An employee may have several; at most one is "active" at a
// given date under the rule in GetActiveContract.
type Contract struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	ContractType  string  `json:"contract_type"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date,omitempty"`
	BaseSalary    float64 `json:"base_salary"`
	Currency      string  `json:"currency"`
	WorkRate      float64 `json:"work_rate"`
	WeeklyHours   float64 `json:"weekly_hours"`
	IsActive      bool    `json:"is_active"`
}

// Cluster is reference data: a geographic/administrative grouping
// employees are assigned to, never written by this system.
type Cluster struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// PayrollResult is read-only from this system's point of view: it is
// written by the Jobber once a payroll run completes and only ever read
// back here.
type PayrollResult struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	PeriodYear   int     `json:"period_year"`
	PeriodMonth  int     `json:"period_month"`
	GrossSalary  float64 `json:"gross_salary"`
	NetSalary    float64 `json:"net_salary"`
	Status       string  `json:"status"`
}

// CreateEmployeeParams is the input to Store.CreateEmployee. Dates arrive
// as "YYYY-MM-DD" strings and are coerced to native dates before binding.
type CreateEmployeeParams struct {
	CompanyID   string
	Identifier  string
	FirstName   string
	LastName    string
	BirthDate   string
	ClusterCode string
	HireDate    string
}

// CreateContractParams is the input to Store.CreateContract.
type CreateContractParams struct {
	CompanyID    string
	EmployeeID   string
	ContractType string
	StartDate    string
	EndDate      *string
	BaseSalary   float64
	Currency     string
	WorkRate     float64
	WeeklyHours  float64
}
