/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes the timesheet and compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                   List all employees
    POST   /api/employees                   Create employee
    GET    /api/employees/{id}              Get employee details
    GET    /api/employees/{id}/documents    List documents (history included)
    POST   /api/employees/{id}/documents    Issue a document
    GET    /api/employees/{id}/timesheets   List timesheets
    GET    /api/employees/{id}/hour-limits  Resolved ceilings for the employee

  Documents:
    POST   /api/documents/{id}/invalidate   Revoke a document

  Tasks:
    GET    /api/tasks                       List the task catalog
    POST   /api/tasks                       Add a task code
    POST   /api/tasks/defaults              Load the built-in catalog

  Timesheets:
    POST   /api/timesheets                  Open (or fetch) a week
    GET    /api/timesheets/{id}             Get timesheet with entries
    POST   /api/timesheets/{id}/entries     Create entry (hard gate)
    PUT    /api/timesheets/{id}/entries/{entryID}  Update entry
    DELETE /api/timesheets/{id}/entries/{entryID}  Delete entry
    POST   /api/timesheets/{id}/preview     Non-destructive entry preview
    POST   /api/timesheets/{id}/submit      Run all rules, gate + audit
    POST   /api/timesheets/{id}/approve     Approve a submitted week
    POST   /api/timesheets/{id}/reject      Reject a submitted week
    POST   /api/timesheets/{id}/reopen      Reopen a rejected week

  Compliance:
    GET    /api/compliance/checks           Query the audit log
    GET    /api/compliance/limits           Hour-limit table per band
    GET    /api/compliance/expiring-permits Permit-expiry notices

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: State conflict (not editable, bad transition)
  - 422: Business-rule rejection (hour limit, below minimum age)
  - 500: Internal errors
  Domain errors carry a stable code (compliance.ErrorCode) so clients
  never string-match messages.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
	"github.com/orchard/compliance-engine/factory"
	"github.com/orchard/compliance-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  compliance.TxStore
	School calendar.SchoolCalendar
	Now    func() calendar.Date // check date for rule evaluation
	Clock  func() time.Time     // wall clock for record timestamps

	Timesheets  *timesheet.Service
	Entries     *timesheet.EntryService
	Submissions *timesheet.SubmissionService
	TaskFactory *factory.TaskFactory
	Watcher     *PermitExpiryWatcher

	currentScenario string
}

// NewHandler creates a new handler wired against the given store and
// school calendar.
func NewHandler(store compliance.TxStore, school calendar.SchoolCalendar) *Handler {
	return &Handler{
		Store:       store,
		School:      school,
		Now:         calendar.Today,
		Clock:       time.Now,
		Timesheets:  timesheet.NewService(store),
		Entries:     timesheet.NewEntryService(store, school),
		Submissions: timesheet.NewSubmissionService(store, school, compliance.DefaultRuleSet()),
		TaskFactory: factory.NewTaskFactory(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	today := h.Now()
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := compliance.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp, h.Now()))
}

// CreateEmployee creates a new employee. Hiring below the minimum
// employment age is not rejected here: the age rules evaluate against
// work dates, and a hire may legitimately predate a 12th birthday that
// falls before the season starts.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	dob, err := calendar.ParseDate(req.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth format (use YYYY-MM-DD)", err)
		return
	}

	emp := compliance.Employee{
		ID:          compliance.EmployeeID(req.ID),
		Name:        req.Name,
		DateOfBirth: dob,
		Supervisor:  req.Supervisor,
		CreatedAt:   h.Clock(),
	}
	if emp.ID == "" {
		emp.ID = compliance.EmployeeID(uuid.NewString())
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp, h.Now()))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns every document for an employee, revoked ones
// included: RULE-003 needs revocation history, and so do auditors.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	employeeID := compliance.EmployeeID(chi.URLParam(r, "id"))

	docs, err := h.Store.ListDocuments(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = toDocumentDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueDocument records a new document for an employee.
func (h *Handler) IssueDocument(w http.ResponseWriter, r *http.Request) {
	employeeID := compliance.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	var req IssueDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	docType := compliance.DocumentType(req.Type)
	switch docType {
	case compliance.DocParentalConsent, compliance.DocWorkPermit, compliance.DocSafetyTraining:
	default:
		writeError(w, http.StatusBadRequest, "Unknown document type", nil)
		return
	}

	doc := compliance.EmployeeDocument{
		ID:         compliance.DocumentID(uuid.NewString()),
		EmployeeID: employeeID,
		Type:       docType,
		IssuedAt:   h.Clock(),
	}
	if req.ExpiresOn != "" {
		expires, err := calendar.ParseDate(req.ExpiresOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expires_on format (use YYYY-MM-DD)", err)
			return
		}
		doc.ExpiresOn = &expires
	}

	if err := h.Store.SaveDocument(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

// InvalidateDocument revokes a document as of now. The row is kept;
// a replacement must be issued as a new document.
func (h *Handler) InvalidateDocument(w http.ResponseWriter, r *http.Request) {
	id := compliance.DocumentID(chi.URLParam(r, "id"))

	if err := h.Store.InvalidateDocument(r.Context(), id, h.Clock()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns the task catalog.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, h.TaskFactory.ToJSON(tasks).Tasks)
}

// CreateTask adds one task code to the catalog.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tasks, err := h.TaskFactory.FromJSON(factory.CatalogJSON{Tasks: []factory.TaskJSON{req}})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task definition", err)
		return
	}

	if err := h.Store.SaveTask(r.Context(), tasks[0]); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save task", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.TaskFactory.ToJSON(tasks).Tasks[0])
}

// LoadDefaultTasks seeds the built-in seasonal catalog.
func (h *Handler) LoadDefaultTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.TaskFactory.DefaultCatalog()
	for _, task := range tasks {
		if err := h.Store.SaveTask(r.Context(), task); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save task", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, h.TaskFactory.ToJSON(tasks).Tasks)
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// OpenTimesheet opens the employee's timesheet for a week, or returns the
// existing one. Any date in the week is accepted.
func (h *Handler) OpenTimesheet(w http.ResponseWriter, r *http.Request) {
	var req OpenTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	weekStart, err := calendar.ParseDate(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_start format (use YYYY-MM-DD)", err)
		return
	}

	ts, err := h.Timesheets.Open(r.Context(), compliance.EmployeeID(req.EmployeeID), weekStart)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries, err := h.Store.ListEntries(r.Context(), ts.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimesheetDTO(*ts, entries))
}

// GetTimesheet returns a timesheet with its entries.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	id := compliance.TimesheetID(chi.URLParam(r, "id"))

	ts, err := h.Store.GetTimesheet(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get timesheet", err)
		return
	}
	if ts == nil {
		writeError(w, http.StatusNotFound, "Timesheet not found", nil)
		return
	}

	entries, err := h.Store.ListEntries(r.Context(), ts.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts, entries))
}

// ListTimesheets returns every timesheet for an employee.
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	employeeID := compliance.EmployeeID(chi.URLParam(r, "id"))

	sheets, err := h.Store.ListTimesheets(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list timesheets", err)
		return
	}

	dtos := make([]TimesheetDTO, len(sheets))
	for i, ts := range sheets {
		dtos[i] = toTimesheetDTO(ts, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ENTRY HANDLERS - The hard hour-limit gate
// =============================================================================

func parseEntryInput(req EntryRequest) (timesheet.EntryInput, error) {
	workDate, err := calendar.ParseDate(req.WorkDate)
	if err != nil {
		return timesheet.EntryInput{}, err
	}
	start, err := calendar.ParseClock(req.Start)
	if err != nil {
		return timesheet.EntryInput{}, err
	}
	end, err := calendar.ParseClock(req.End)
	if err != nil {
		return timesheet.EntryInput{}, err
	}
	return timesheet.EntryInput{
		WorkDate:       workDate,
		Start:          start,
		End:            end,
		TaskCode:       req.TaskCode,
		SchoolDay:      req.SchoolDay,
		OverrideReason: req.OverrideReason,
	}, nil
}

// CreateEntry adds a shift to an open timesheet. A shift that would
// exceed an hour ceiling is rejected outright with remediation context.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	timesheetID := compliance.TimesheetID(chi.URLParam(r, "id"))

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := parseEntryInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry fields", err)
		return
	}

	entry, err := h.Entries.Create(r.Context(), timesheetID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// UpdateEntry replaces an entry's fields; the old entry's hours are
// excluded from the totals the gate checks.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	timesheetID := compliance.TimesheetID(chi.URLParam(r, "id"))
	entryID := compliance.EntryID(chi.URLParam(r, "entryID"))

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := parseEntryInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry fields", err)
		return
	}

	entry, err := h.Entries.Update(r.Context(), timesheetID, entryID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// DeleteEntry removes a shift from an open timesheet.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	timesheetID := compliance.TimesheetID(chi.URLParam(r, "id"))
	entryID := compliance.EntryID(chi.URLParam(r, "entryID"))

	if err := h.Entries.Delete(r.Context(), timesheetID, entryID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewEntry runs the non-destructive compliance report for a proposed
// shift. A non-compliant proposal is still a 200: the report carries the
// findings. Only malformed input is an error.
func (h *Handler) PreviewEntry(w http.ResponseWriter, r *http.Request) {
	timesheetID := compliance.TimesheetID(chi.URLParam(r, "id"))

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := parseEntryInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry fields", err)
		return
	}

	report, err := h.Entries.Preview(r.Context(), timesheetID, in, compliance.EntryID(req.ReplacesEntryID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

func (h *Handler) submissionDTO(r *http.Request, result *timesheet.SubmissionResult) (SubmissionResultDTO, error) {
	entries, err := h.Store.ListEntries(r.Context(), result.Timesheet.ID)
	if err != nil {
		return SubmissionResultDTO{}, err
	}
	dto := SubmissionResultDTO{
		Timesheet: toTimesheetDTO(result.Timesheet, entries),
		Passed:    result.Passed,
		Checks:    toCheckRecordDTOs(result.Records),
	}
	if failures := result.Failures(); len(failures) > 0 {
		dto.Failures = toCheckRecordDTOs(failures)
	}
	return dto, nil
}

// SubmitTimesheet evaluates every applicable rule, persists the audit
// records, and transitions to submitted iff no rule failed. A failed
// run is a 200 with passed=false: the attempt succeeded, the gate held.
func (h *Handler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	id := compliance.TimesheetID(chi.URLParam(r, "id"))

	result, err := h.Submissions.Submit(r.Context(), id, h.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto, err := h.submissionDTO(r, result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build submission result", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ApproveTimesheet moves a submitted timesheet to approved.
func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	h.workflowTransition(w, r, h.Submissions.Approve)
}

// RejectTimesheet moves a submitted timesheet to rejected.
func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	h.workflowTransition(w, r, h.Submissions.Reject)
}

// ReopenTimesheet returns a rejected timesheet to open for correction.
func (h *Handler) ReopenTimesheet(w http.ResponseWriter, r *http.Request) {
	h.workflowTransition(w, r, h.Submissions.Reopen)
}

func (h *Handler) workflowTransition(
	w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id compliance.TimesheetID) (*compliance.Timesheet, error),
) {
	id := compliance.TimesheetID(chi.URLParam(r, "id"))

	ts, err := fn(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts, nil))
}

// =============================================================================
// COMPLIANCE REPORTING HANDLERS
// =============================================================================

// QueryChecks queries the append-only audit log. Filters combine with
// AND: employee_id, rule_id, result, age_band, from, to.
func (h *Handler) QueryChecks(w http.ResponseWriter, r *http.Request) {
	var filter compliance.CheckFilter
	q := r.URL.Query()

	if v := q.Get("employee_id"); v != "" {
		id := compliance.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := q.Get("rule_id"); v != "" {
		filter.RuleID = &v
	}
	if v := q.Get("result"); v != "" {
		result := compliance.Result(v)
		filter.Result = &result
	}
	if v := q.Get("age_band"); v != "" {
		band := calendar.AgeBand(v)
		filter.AgeBand = &band
	}
	if v := q.Get("from"); v != "" {
		from, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		filter.To = &to
	}

	records, err := h.Store.QueryChecks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query checks", err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckRecordDTOs(records))
}

// GetHourLimits returns the full ceiling table, one row per age band.
func (h *Handler) GetHourLimits(w http.ResponseWriter, r *http.Request) {
	// Representative ages, one per band.
	dtos := []HourLimitsDTO{
		toHourLimitsDTO(compliance.LimitsForAge(12)),
		toHourLimitsDTO(compliance.LimitsForAge(14)),
		toHourLimitsDTO(compliance.LimitsForAge(16)),
		toHourLimitsDTO(compliance.LimitsForAge(18)),
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployeeHourLimits returns the ceilings that apply to one employee,
// resolved from their age on the given date (default today). Useful for
// scheduling UIs that want the numbers before proposing a shift.
func (h *Handler) GetEmployeeHourLimits(w http.ResponseWriter, r *http.Request) {
	id := compliance.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	asOf := h.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		asOf, err = calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toHourLimitsDTO(compliance.LimitsForAge(emp.AgeOn(asOf))))
}

// ListExpiringPermits returns the watcher's current notices.
func (h *Handler) ListExpiringPermits(w http.ResponseWriter, r *http.Request) {
	if h.Watcher == nil {
		writeJSON(w, http.StatusOK, []ExpiringPermitDTO{})
		return
	}
	writeJSON(w, http.StatusOK, h.Watcher.Notices())
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps typed domain errors to HTTP statuses via their
// stable codes. Unknown errors are 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch compliance.ErrorCode(err) {
	case compliance.CodeValidation, compliance.CodeInvalidTimeRange, compliance.CodeDateOutsideWeek:
		status = http.StatusBadRequest
	case compliance.CodeEmployeeNotFound, compliance.CodeTimesheetNotFound,
		compliance.CodeEntryNotFound, compliance.CodeTaskCodeNotFound,
		compliance.CodeDocumentNotFound:
		status = http.StatusNotFound
	case compliance.CodeTimesheetNotEditable, compliance.CodeInvalidTransition:
		status = http.StatusConflict
	case compliance.CodeHourLimitExceeded, compliance.CodeBelowMinimumAge:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError && compliance.IsNotFound(err) {
		status = http.StatusNotFound
	}

	resp := ErrorResponse{Error: err.Error(), Code: compliance.ErrorCode(err)}

	var hle *compliance.HourLimitError
	if errors.As(err, &hle) {
		// Remediation context for the entry UI.
		resp.Details = hle.Error()
	}
	writeJSON(w, status, resp)
}
