package jobber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config is the Jobber client's environment-sourced configuration,
// transcribed from HRJobberClient.__init__'s HR_JOBBER_URL/
// HR_JOBBER_API_KEY/LISTENERS_URL/HR_JOBBER_TIMEOUT reads.
type Config struct {
	JobberURL       string
	APIKey          string
	CallbackBaseURL string
	Timeout         time.Duration
}

// Client calls the Jobber's HTTP API, grounded on HRJobberClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func generateJobID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (c *Client) callbackURL() string {
	return strings.TrimRight(c.cfg.CallbackBaseURL, "/") + "/hr/callback"
}

// submit POSTs payload to path and classifies the response into the
// three outcomes spec.md §4.H names: HTTP 202 (pending), HTTP 200
// (synchronous completion), or anything else/timeout/transport error
// (failed) — mirroring every submit_* method's identical try/except
// shape in the original.
func (c *Client) submit(ctx context.Context, path, jobID string, payload map[string]any) SubmissionResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return SubmissionResult{JobID: jobID, Status: JobFailed, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.JobberURL+path, bytes.NewReader(body))
	if err != nil {
		return SubmissionResult{JobID: jobID, Status: JobFailed, Error: err.Error()}
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return SubmissionResult{JobID: jobID, Status: JobFailed, Error: "timeout submitting to jobber"}
		}
		return SubmissionResult{JobID: jobID, Status: JobFailed, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return SubmissionResult{JobID: jobID, Status: JobPending, EstimatedTimeSeconds: 30}
	case http.StatusOK:
		var result map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return SubmissionResult{JobID: jobID, Status: JobFailed, Error: fmt.Sprintf("decoding sync result: %v", err)}
		}
		return SubmissionResult{JobID: jobID, Status: JobCompleted, Result: result}
	default:
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return SubmissionResult{JobID: jobID, Status: JobFailed, Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, buf.String())}
	}
}

// SubmitPayrollCalculate submits one employee's payroll calculation,
// grounded on HRJobberClient.submit_payroll_calculate.
func (c *Client) SubmitPayrollCalculate(ctx context.Context, p PayrollCalculateParams) SubmissionResult {
	jobID := generateJobID("payroll")
	payload := map[string]any{
		"company_id":        p.CompanyID,
		"employee_id":       p.EmployeeID,
		"year":              p.Year,
		"month":             p.Month,
		"variables":         orEmpty(p.Variables),
		"force_recalculate": p.ForceRecalculate,
		"callback_url":      c.callbackURL(),
		"callback_data": CallbackData{
			JobID: jobID, JobType: "payroll_calculate", UserID: p.UserID,
			SessionID: p.SessionID, MandatePath: p.MandatePath,
		},
	}
	return c.submit(ctx, "/api/payroll/calculate", jobID, payload)
}

// SubmitPayrollBatch submits a batch payroll run, grounded on
// HRJobberClient.submit_payroll_batch.
func (c *Client) SubmitPayrollBatch(ctx context.Context, p PayrollBatchParams) SubmissionResult {
	jobID := generateJobID("batch")
	payload := map[string]any{
		"company_id":   p.CompanyID,
		"year":         p.Year,
		"month":        p.Month,
		"employee_ids": p.EmployeeIDs,
		"cluster_code": p.ClusterCode,
		"callback_url": c.callbackURL(),
		"callback_data": CallbackData{
			JobID: jobID, JobType: "payroll_batch", UserID: p.UserID,
			SessionID: p.SessionID, MandatePath: p.MandatePath,
		},
	}
	return c.submit(ctx, "/api/payroll/batch", jobID, payload)
}

// SubmitPDFGenerate submits a payslip PDF generation job. The original
// has a near-identical submit_pdf_generate method (same payload/
// callback shape as payroll_calculate, targeting /api/payroll/pdf).
func (c *Client) SubmitPDFGenerate(ctx context.Context, p PDFGenerateParams) SubmissionResult {
	jobID := generateJobID("pdf")
	payload := map[string]any{
		"company_id":  p.CompanyID,
		"employee_id": p.EmployeeID,
		"year":        p.Year,
		"month":       p.Month,
		"callback_url": c.callbackURL(),
		"callback_data": CallbackData{
			JobID: jobID, JobType: "pdf_generate", UserID: p.UserID,
			SessionID: p.SessionID, MandatePath: p.MandatePath,
		},
	}
	return c.submit(ctx, "/api/payroll/pdf", jobID, payload)
}

// GetJobStatus polls the Jobber for a job's current status, grounded on
// HRJobberClient.get_job_status.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (JobStatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JobberURL+"/api/jobs/"+jobID, nil)
	if err != nil {
		return JobStatusResult{}, err
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobStatusResult{JobID: jobID, Status: "error", Error: err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var result JobStatusResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return JobStatusResult{}, fmt.Errorf("decoding job status: %w", err)
		}
		return result, nil
	case http.StatusNotFound:
		return JobStatusResult{JobID: jobID, Status: "not_found"}, nil
	default:
		return JobStatusResult{JobID: jobID, Status: "error", Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}
}

// GetAllReferences fetches every reference table in one call, grounded
// on HRJobberClient.get_all_references.
func (c *Client) GetAllReferences(ctx context.Context, countryCode, lang string) (map[string]any, error) {
	u := fmt.Sprintf("%s/references/all?%s", c.cfg.JobberURL, url.Values{
		"country_code": {countryCode}, "lang": {lang},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return map[string]any{"error": fmt.Sprintf("HTTP %d: %s", resp.StatusCode, buf.String())}, nil
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding references: %w", err)
	}
	return result, nil
}

// GetReference fetches one reference table, grounded on
// HRJobberClient._get_reference — the shared helper every
// get_contract_types/get_remuneration_types/... one-liner in the
// original delegates to. A non-200 response degrades to an empty list,
// matching the original, not an error: reference-data unavailability
// should never break the caller's flow.
func (c *Client) GetReference(ctx context.Context, endpoint ReferenceEndpoint, countryCode, lang string) ([]map[string]any, error) {
	values := url.Values{"lang": {lang}}
	if countryCode != "" {
		values.Set("country_code", countryCode)
	}
	u := fmt.Sprintf("%s/references/%s?%s", c.cfg.JobberURL, endpoint, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var result []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil
	}
	return result, nil
}

// GetPayrollItems fetches payroll rubrics for a country/cluster,
// grounded on HRJobberClient.get_payroll_items.
func (c *Client) GetPayrollItems(ctx context.Context, countryCode, clusterCode string) ([]map[string]any, error) {
	values := url.Values{"country_code": {countryCode}}
	if clusterCode != "" {
		values.Set("cluster_code", clusterCode)
	}
	u := fmt.Sprintf("%s/references/payroll-items?%s", c.cfg.JobberURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var result []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil
	}
	return result, nil
}

// CheckHealth probes the Jobber's /health endpoint, grounded on
// HRJobberClient.check_health.
func (c *Client) CheckHealth(ctx context.Context) HealthResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JobberURL+"/health", nil)
	if err != nil {
		return HealthResult{Status: "error", JobberURL: c.cfg.JobberURL, Error: err.Error()}
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthResult{Status: "error", JobberURL: c.cfg.JobberURL, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return HealthResult{Status: "error", JobberURL: c.cfg.JobberURL, HTTPStatus: resp.StatusCode}
	}

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	status, _ := body["status"].(string)
	version, _ := body["version"].(string)
	return HealthResult{Status: "ok", JobberURL: c.cfg.JobberURL, JobberStatus: status, JobberVersion: version}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
