// Package jobber implements the HTTP client and callback router for the
// asynchronous job-runner ("Jobber"), grounded on
// original_source/app/tools/hr_jobber_client.py's HRJobberClient.
// Submission operations hand work off with a callback URL and return
// immediately; the Jobber reports completion by POSTing back to
// /hr/callback, which this package's Router dispatches onto the
// streaming transport (pkg/stream) by session id.
package jobber

import "time"

// JobStatus is the status field every submission response and callback
// payload carries.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SubmissionResult is the immediate response to a submission call,
// matching the three outcomes spec.md §4.H names: HTTP 202 (pending),
// HTTP 200 with a body (completed synchronously), or anything else
// (failed).
type SubmissionResult struct {
	JobID                string         `json:"job_id"`
	Status               JobStatus      `json:"status"`
	EstimatedTimeSeconds int            `json:"estimated_time_seconds,omitempty"`
	EstimatedCount       int            `json:"estimated_count,omitempty"`
	Result               map[string]any `json:"result,omitempty"`
	Error                string         `json:"error,omitempty"`
}

// CallbackData rides inside every submission payload so the Jobber can
// echo it back on completion, matching the original's callback_data
// dict.
type CallbackData struct {
	JobID       string `json:"job_id"`
	JobType     string `json:"job_type"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
	MandatePath string `json:"mandate_path,omitempty"`
}

// PayrollCalculateParams is the input to Client.SubmitPayrollCalculate.
type PayrollCalculateParams struct {
	UserID           string
	CompanyID        string
	EmployeeID       string
	Year             int
	Month            int
	Variables        map[string]any
	ForceRecalculate bool
	SessionID        string
	MandatePath      string
}

// PayrollBatchParams is the input to Client.SubmitPayrollBatch.
type PayrollBatchParams struct {
	UserID      string
	CompanyID   string
	Year        int
	Month       int
	EmployeeIDs []string
	ClusterCode string
	SessionID   string
	MandatePath string
}

// PDFGenerateParams is the input to Client.SubmitPDFGenerate.
type PDFGenerateParams struct {
	UserID      string
	CompanyID   string
	EmployeeID  string
	Year        int
	Month       int
	SessionID   string
	MandatePath string
}

// JobStatusResult is Client.GetJobStatus's response shape.
type JobStatusResult struct {
	JobID    string         `json:"job_id"`
	Status   string         `json:"status"`
	Progress map[string]any `json:"progress,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthResult is Client.CheckHealth's response shape.
type HealthResult struct {
	Status        string `json:"status"`
	JobberURL     string `json:"jobber_url"`
	JobberStatus  string `json:"jobber_status,omitempty"`
	JobberVersion string `json:"jobber_version,omitempty"`
	HTTPStatus    int    `json:"http_status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ReferenceEndpoint names one of the reference-table proxy routes,
// transcribed verbatim from the original's per-table methods.
type ReferenceEndpoint string

const (
	RefContractTypes      ReferenceEndpoint = "contract-types"
	RefRemunerationTypes   ReferenceEndpoint = "remuneration-types"
	RefFamilyStatus       ReferenceEndpoint = "family-status"
	RefTaxStatus          ReferenceEndpoint = "tax-status"
	RefPermitTypes        ReferenceEndpoint = "permit-types"
	RefPayrollStatus      ReferenceEndpoint = "payroll-status"
)

// CallbackPayload is what the Jobber POSTs to /hr/callback on job
// completion or progress.
type CallbackPayload struct {
	JobID       string         `json:"job_id" validate:"required"`
	JobType     string         `json:"job_type"`
	UserID      string         `json:"user_id"`
	SessionID   string         `json:"session_id,omitempty"`
	MandatePath string         `json:"mandate_path,omitempty"`
	Status      JobStatus      `json:"status" validate:"required"`
	Progress    map[string]any `json:"progress,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	ReceivedAt  time.Time      `json:"-"`
}
