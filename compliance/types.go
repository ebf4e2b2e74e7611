/*
Package compliance implements the minor-labor compliance engine.

PURPOSE:
  Decides, for any proposed or submitted work entry, whether it is legal.
  The same underlying computation runs twice: synchronously as a
  non-destructive preview during data entry (preview.go), and
  authoritatively as a blocking, audit-logged gate at submission time
  (engine.go). Both paths evaluate against the same immutable Context so
  they agree on identical inputs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: identity + immutable date of birth driving all age computation
  - EmployeeDocument: consent / permit / safety-training records with
    revocation history; the newest non-invalidated one of a type wins
  - TaskCode: per-task age floor, hazard flag, supervision level
  - Timesheet: one per employee per week (Sunday start), small state machine
  - TimesheetEntry: one shift; hours are the rounded minute difference

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all hour arithmetic, never float
  2. Immutability: DateOfBirth never changes; check logs are append-only
  3. Rule outcomes are data, not errors (see rules.go)

SEE ALSO:
  - hourlimits.go: age to hour-ceiling mapping
  - context.go: the per-evaluation snapshot
  - rules.go: the statutory rule catalog
*/
package compliance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type DocumentID string
type TimesheetID string
type EntryID string

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID          EmployeeID
	Name        string
	DateOfBirth calendar.Date // immutable once created
	Supervisor  bool
	CreatedAt   time.Time
}

// AgeOn returns the employee's age on the given date.
func (e Employee) AgeOn(d calendar.Date) int {
	return calendar.AgeOnDate(e.DateOfBirth, d)
}

// =============================================================================
// EMPLOYEE DOCUMENTS
// =============================================================================

type DocumentType string

const (
	DocParentalConsent DocumentType = "parental_consent"
	DocWorkPermit      DocumentType = "work_permit"
	DocSafetyTraining  DocumentType = "safety_training"
)

// EmployeeDocument is one issued document. Documents are never deleted;
// revocation sets InvalidatedAt and a replacement is issued as a new row.
type EmployeeDocument struct {
	ID            DocumentID
	EmployeeID    EmployeeID
	Type          DocumentType
	IssuedAt      time.Time
	ExpiresOn     *calendar.Date // permits only; nil = no expiry
	InvalidatedAt *time.Time     // nil = currently valid
}

// CurrentlyValid reports whether the document has not been invalidated.
// Expiry is a separate check applied to work permits (see RULE-005).
func (d EmployeeDocument) CurrentlyValid() bool { return d.InvalidatedAt == nil }

// LatestValidDocument returns the newest (by IssuedAt) non-invalidated
// document of the given type, or nil if none exists.
func LatestValidDocument(docs []EmployeeDocument, typ DocumentType) *EmployeeDocument {
	var latest *EmployeeDocument
	for i := range docs {
		d := &docs[i]
		if d.Type != typ || !d.CurrentlyValid() {
			continue
		}
		if latest == nil || d.IssuedAt.After(latest.IssuedAt) {
			latest = d
		}
	}
	return latest
}

// HasInvalidatedDocument reports whether any document of the type was revoked.
func HasInvalidatedDocument(docs []EmployeeDocument, typ DocumentType) bool {
	for _, d := range docs {
		if d.Type == typ && d.InvalidatedAt != nil {
			return true
		}
	}
	return false
}

// LatestInvalidatedDocument returns the newest (by IssuedAt) revoked
// document of the given type, or nil if none was revoked.
func LatestInvalidatedDocument(docs []EmployeeDocument, typ DocumentType) *EmployeeDocument {
	var latest *EmployeeDocument
	for i := range docs {
		d := &docs[i]
		if d.Type != typ || d.CurrentlyValid() {
			continue
		}
		if latest == nil || d.IssuedAt.After(latest.IssuedAt) {
			latest = d
		}
	}
	return latest
}

// =============================================================================
// TASK CODES
// =============================================================================

type SupervisionLevel string

const (
	SupervisionNone    SupervisionLevel = "none"
	SupervisionMinors  SupervisionLevel = "minors" // supervisor required for workers under 18
	SupervisionAlways  SupervisionLevel = "always"
)

// TaskCode classifies a kind of work. Agricultural is consumed by payroll
// (overtime exemption), not by compliance.
type TaskCode struct {
	Code         string
	Name         string
	MinimumAge   int
	Hazardous    bool
	Supervision  SupervisionLevel
	Agricultural bool
}

// =============================================================================
// TIMESHEET - One per employee per week
// =============================================================================

type TimesheetStatus string

const (
	StatusOpen      TimesheetStatus = "open"
	StatusSubmitted TimesheetStatus = "submitted"
	StatusApproved  TimesheetStatus = "approved"
	StatusRejected  TimesheetStatus = "rejected"
)

// Transitions: open -> submitted -> approved | rejected; rejected timesheets
// may be reopened for correction.
var timesheetTransitions = map[TimesheetStatus][]TimesheetStatus{
	StatusOpen:      {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusOpen},
	StatusApproved:  {},
}

// CanTransitionTo reports whether the status machine allows the move.
func (s TimesheetStatus) CanTransitionTo(next TimesheetStatus) bool {
	for _, allowed := range timesheetTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Timesheet struct {
	ID          TimesheetID
	EmployeeID  EmployeeID
	WeekStart   calendar.Date // always a Sunday
	Status      TimesheetStatus
	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Editable reports whether entries may be added, changed, or removed.
func (t Timesheet) Editable() bool { return t.Status == StatusOpen }

// WeekEnd is the Saturday closing the 7-day window.
func (t Timesheet) WeekEnd() calendar.Date { return t.WeekStart.AddDays(6) }

// =============================================================================
// TIMESHEET ENTRY - One shift record
// =============================================================================

type TimesheetEntry struct {
	ID          EntryID
	TimesheetID TimesheetID
	WorkDate    calendar.Date // must fall inside the timesheet's week
	Start       calendar.ClockTime
	End         calendar.ClockTime // must strictly exceed Start
	Hours       decimal.Decimal    // derived; see ComputeHours
	TaskCode    string

	// School-day flag: defaulted from the school calendar, overridable with
	// a reason.
	SchoolDay           bool
	SchoolDayOverridden bool
	OverrideReason      string

	CreatedAt time.Time
}

// ComputeHours derives entry hours: (end - start) in minutes, divided by 60,
// rounded half-up to 2 decimals. End must strictly exceed start. The exact
// rounding is load-bearing - audit comparisons are numeric-string sensitive.
func ComputeHours(start, end calendar.ClockTime) (decimal.Decimal, error) {
	if end <= start {
		return decimal.Zero, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	minutes := decimal.NewFromInt(int64(end - start))
	return minutes.Div(decimal.NewFromInt(60)).Round(2), nil
}

// SumHours totals entry hours for the given dates filter (nil = all).
func SumHours(entries []TimesheetEntry, date *calendar.Date) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if date != nil && !e.WorkDate.Equal(*date) {
			continue
		}
		total = total.Add(e.Hours)
	}
	return total
}

// DistinctWorkDates returns the sorted distinct dates worked.
func DistinctWorkDates(entries []TimesheetEntry) []calendar.Date {
	seen := make(map[calendar.Date]bool)
	var dates []calendar.Date
	for _, e := range entries {
		if !seen[e.WorkDate] {
			seen[e.WorkDate] = true
			dates = append(dates, e.WorkDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
