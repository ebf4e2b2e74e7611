/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Documents:
    DocumentDTO, IssueDocumentRequest

  Tasks:
    TaskDTO (wraps factory.TaskJSON)

  Timesheets:
    TimesheetDTO, EntryDTO, OpenTimesheetRequest, EntryRequest

  Compliance:
    CheckRecordDTO, SubmissionResultDTO, HourLimitsDTO, ExpiringPermitDTO
    (the entry preview serializes compliance.EntryCompliancePreview directly)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/tasks.go: TaskJSON type
*/
package api

import (
	"time"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
	"github.com/orchard/compliance-engine/factory"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Age         int    `json:"age"`
	AgeBand     string `json:"age_band,omitempty"`
	Supervisor  bool   `json:"supervisor"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Supervisor  bool   `json:"supervisor"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentDTO represents an employee document in API responses.
type DocumentDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	Type          string `json:"type"`
	IssuedAt      string `json:"issued_at"`
	ExpiresOn     string `json:"expires_on,omitempty"`
	InvalidatedAt string `json:"invalidated_at,omitempty"`
	Valid         bool   `json:"valid"`
}

// IssueDocumentRequest is the request to issue a document. Revoked
// documents are never edited; a replacement is issued as a new document.
type IssueDocumentRequest struct {
	Type      string `json:"type"`       // parental_consent, work_permit, safety_training
	ExpiresOn string `json:"expires_on"` // permits only, YYYY-MM-DD
}

// =============================================================================
// TASKS
// =============================================================================

// TaskDTO represents a task code in API responses.
type TaskDTO = factory.TaskJSON

// =============================================================================
// TIMESHEETS AND ENTRIES
// =============================================================================

// OpenTimesheetRequest opens (or fetches) the timesheet for a week. Any
// date inside the week is accepted; the server normalizes to the Sunday.
type OpenTimesheetRequest struct {
	EmployeeID string `json:"employee_id"`
	WeekStart  string `json:"week_start"` // YYYY-MM-DD
}

// TimesheetDTO represents a timesheet in API responses.
type TimesheetDTO struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employee_id"`
	WeekStart   string     `json:"week_start"`
	WeekEnd     string     `json:"week_end"`
	Status      string     `json:"status"`
	SubmittedAt string     `json:"submitted_at,omitempty"`
	TotalHours  string     `json:"total_hours"`
	Entries     []EntryDTO `json:"entries,omitempty"`
}

// EntryDTO represents a single shift in API responses.
type EntryDTO struct {
	ID                  string `json:"id"`
	WorkDate            string `json:"work_date"`
	Start               string `json:"start"` // HH:MM
	End                 string `json:"end"`
	Hours               string `json:"hours"`
	TaskCode            string `json:"task_code"`
	SchoolDay           bool   `json:"school_day"`
	SchoolDayOverridden bool   `json:"school_day_overridden"`
	OverrideReason      string `json:"override_reason,omitempty"`
}

// EntryRequest is the request body for creating, updating, or previewing
// an entry.
type EntryRequest struct {
	WorkDate string `json:"work_date"` // YYYY-MM-DD
	Start    string `json:"start"`     // HH:MM
	End      string `json:"end"`
	TaskCode string `json:"task_code"`

	// SchoolDay overrides the calendar default; an override requires a
	// reason.
	SchoolDay      *bool  `json:"school_day,omitempty"`
	OverrideReason string `json:"override_reason,omitempty"`

	// ReplacesEntryID excludes an existing entry from totals when
	// previewing an edit. Ignored on create/update.
	ReplacesEntryID string `json:"replaces_entry_id,omitempty"`
}

// =============================================================================
// COMPLIANCE
// =============================================================================

// CheckRecordDTO represents one audit-log row in API responses.
type CheckRecordDTO struct {
	ID             string         `json:"id"`
	EmployeeID     string         `json:"employee_id"`
	TimesheetID    string         `json:"timesheet_id"`
	RuleID         string         `json:"rule_id"`
	RuleName       string         `json:"rule_name"`
	Result         string         `json:"result"`
	Details        map[string]any `json:"details,omitempty"`
	AgeOnCheckDate int            `json:"age_on_check_date"`
	CheckDate      string         `json:"check_date"`
	CheckedAt      string         `json:"checked_at"`
}

// SubmissionResultDTO reports one submission attempt.
type SubmissionResultDTO struct {
	Timesheet TimesheetDTO     `json:"timesheet"`
	Passed    bool             `json:"passed"`
	Checks    []CheckRecordDTO `json:"checks"`
	Failures  []CheckRecordDTO `json:"failures,omitempty"`
}

// HourLimitsDTO represents the ceiling table for one age band. Absent
// fields mean unrestricted.
type HourLimitsDTO struct {
	AgeBand          string `json:"age_band"`
	Daily            string `json:"daily,omitempty"`
	DailySchoolDay   string `json:"daily_school_day,omitempty"`
	Weekly           string `json:"weekly,omitempty"`
	WeeklySchoolWeek string `json:"weekly_school_week,omitempty"`
	DaysPerWeek      *int   `json:"days_per_week,omitempty"`
}

// ExpiringPermitDTO is one notice from the permit-expiry watcher.
type ExpiringPermitDTO struct {
	DocumentID   string `json:"document_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	ExpiresOn    string `json:"expires_on"`
	Expired      bool   `json:"expired"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e compliance.Employee, asOf calendar.Date) EmployeeDTO {
	age := e.AgeOn(asOf)
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		DateOfBirth: e.DateOfBirth.String(),
		Age:         age,
		Supervisor:  e.Supervisor,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if band, err := calendar.BandForAge(age); err == nil {
		dto.AgeBand = string(band)
	}
	return dto
}

func toDocumentDTO(d compliance.EmployeeDocument) DocumentDTO {
	dto := DocumentDTO{
		ID:         string(d.ID),
		EmployeeID: string(d.EmployeeID),
		Type:       string(d.Type),
		IssuedAt:   d.IssuedAt.Format(time.RFC3339),
		Valid:      d.CurrentlyValid(),
	}
	if d.ExpiresOn != nil {
		dto.ExpiresOn = d.ExpiresOn.String()
	}
	if d.InvalidatedAt != nil {
		dto.InvalidatedAt = d.InvalidatedAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryDTO(e compliance.TimesheetEntry) EntryDTO {
	return EntryDTO{
		ID:                  string(e.ID),
		WorkDate:            e.WorkDate.String(),
		Start:               e.Start.String(),
		End:                 e.End.String(),
		Hours:               e.Hours.String(),
		TaskCode:            e.TaskCode,
		SchoolDay:           e.SchoolDay,
		SchoolDayOverridden: e.SchoolDayOverridden,
		OverrideReason:      e.OverrideReason,
	}
}

func toTimesheetDTO(t compliance.Timesheet, entries []compliance.TimesheetEntry) TimesheetDTO {
	dto := TimesheetDTO{
		ID:         string(t.ID),
		EmployeeID: string(t.EmployeeID),
		WeekStart:  t.WeekStart.String(),
		WeekEnd:    t.WeekEnd().String(),
		Status:     string(t.Status),
		TotalHours: compliance.SumHours(entries, nil).String(),
	}
	if t.SubmittedAt != nil {
		dto.SubmittedAt = t.SubmittedAt.Format(time.RFC3339)
	}
	for _, e := range entries {
		dto.Entries = append(dto.Entries, toEntryDTO(e))
	}
	return dto
}

func toCheckRecordDTO(r compliance.CheckRecord) CheckRecordDTO {
	return CheckRecordDTO{
		ID:             r.ID,
		EmployeeID:     string(r.EmployeeID),
		TimesheetID:    string(r.TimesheetID),
		RuleID:         r.RuleID,
		RuleName:       r.RuleName,
		Result:         string(r.Result),
		Details:        r.Details,
		AgeOnCheckDate: r.AgeOnCheckDate,
		CheckDate:      r.CheckDate.String(),
		CheckedAt:      r.CheckedAt.Format(time.RFC3339),
	}
}

func toCheckRecordDTOs(records []compliance.CheckRecord) []CheckRecordDTO {
	dtos := make([]CheckRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toCheckRecordDTO(r)
	}
	return dtos
}

func toHourLimitsDTO(l compliance.HourLimits) HourLimitsDTO {
	dto := HourLimitsDTO{AgeBand: string(l.Band), DaysPerWeek: l.DaysPerWeek}
	if l.Daily != nil {
		dto.Daily = l.Daily.String()
	}
	if l.DailySchoolDay != nil {
		dto.DailySchoolDay = l.DailySchoolDay.String()
	}
	if l.Weekly != nil {
		dto.Weekly = l.Weekly.String()
	}
	if l.WeeklySchoolWeek != nil {
		dto.WeeklySchoolWeek = l.WeeklySchoolWeek.String()
	}
	return dto
}
