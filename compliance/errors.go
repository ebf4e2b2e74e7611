/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All typed errors in one place. Every error that can cross the API boundary
  carries a stable string code so the HTTP layer can map it to a status
  without string matching.

TAXONOMY (mirrors how callers must treat them):
  1. Input validation  - bad time range, date outside week. Never retried.
  2. State errors      - editing a non-open timesheet, bad transition.
  3. Lookup errors     - missing employee/timesheet/task/entry.
  4. Business-rule     - hour limit exceeded, below minimum age. Carry full
     remediation context; the write is rejected, never clamped.

Compliance rule outcomes are NOT errors - a failing rule is an ordinary
fail Result (see rules.go). Only mutating operations return these.
*/
package compliance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
)

// Stable error codes consumed by the API layer for status mapping.
const (
	CodeHourLimitExceeded     = "HOUR_LIMIT_EXCEEDED"
	CodeTimesheetNotEditable  = "TIMESHEET_NOT_EDITABLE"
	CodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	CodeTaskCodeNotFound      = "TASK_CODE_NOT_FOUND"
	CodeTimesheetNotFound     = "TIMESHEET_NOT_FOUND"
	CodeEmployeeNotFound      = "EMPLOYEE_NOT_FOUND"
	CodeEntryNotFound         = "ENTRY_NOT_FOUND"
	CodeDocumentNotFound      = "DOCUMENT_NOT_FOUND"
	CodeInvalidTimeRange      = "INVALID_TIME_RANGE"
	CodeDateOutsideWeek       = "DATE_OUTSIDE_WEEK"
	CodeBelowMinimumAge       = "BELOW_MINIMUM_EMPLOYMENT_AGE"
	CodeValidation            = "VALIDATION_ERROR"
)

// CodedError is implemented by every typed error in this package.
type CodedError interface {
	error
	Code() string
}

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrTimesheetNotFound = errors.New("timesheet not found")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrTaskCodeNotFound  = errors.New("task code not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrHourLimitExceeded = errors.New("hour limit exceeded")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError wraps a lookup miss with the identifier that missed.
type NotFoundError struct {
	Kind string // "employee", "timesheet", "entry", "task code", "document"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Code() string {
	switch e.Kind {
	case "employee":
		return CodeEmployeeNotFound
	case "timesheet":
		return CodeTimesheetNotFound
	case "entry":
		return CodeEntryNotFound
	case "task code":
		return CodeTaskCodeNotFound
	case "document":
		return CodeDocumentNotFound
	default:
		return CodeValidation
	}
}

func (e *NotFoundError) Unwrap() error {
	switch e.Kind {
	case "employee":
		return ErrEmployeeNotFound
	case "timesheet":
		return ErrTimesheetNotFound
	case "entry":
		return ErrEntryNotFound
	case "task code":
		return ErrTaskCodeNotFound
	case "document":
		return ErrDocumentNotFound
	default:
		return nil
	}
}

// ValidationError is a fail-fast input problem (bad range, bad date).
type ValidationError struct {
	ErrCode string // one of the Code* constants
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Code() string  { return e.ErrCode }

// HourLimitError rejects a mutation that would exceed a resolved hour
// ceiling. It cites the full remediation context: what is already logged,
// what the entry adds, what the total would be, and the limit. The write is
// rejected outright - never clamped.
type HourLimitError struct {
	Scope     string // "daily" or "weekly"
	Date      calendar.Date
	Current   decimal.Decimal
	Entry     decimal.Decimal
	Projected decimal.Decimal
	Limit     decimal.Decimal
}

func (e *HourLimitError) Error() string {
	return fmt.Sprintf("%s hour limit exceeded for %s: current %sh + entry %sh = %sh over limit %sh",
		e.Scope, e.Date, e.Current.String(), e.Entry.String(), e.Projected.String(), e.Limit.String())
}

func (e *HourLimitError) Code() string  { return CodeHourLimitExceeded }
func (e *HourLimitError) Unwrap() error { return ErrHourLimitExceeded }

// BelowMinimumAgeError rejects work for an employee under the employment
// floor on the work date.
type BelowMinimumAgeError struct {
	EmployeeID EmployeeID
	Age        int
	WorkDate   calendar.Date
}

func (e *BelowMinimumAgeError) Error() string {
	return fmt.Sprintf("employee %s is %d on %s, below minimum employment age %d",
		e.EmployeeID, e.Age, e.WorkDate, calendar.MinimumEmploymentAge)
}

func (e *BelowMinimumAgeError) Code() string { return CodeBelowMinimumAge }

// NotEditableError rejects mutation of a timesheet that is not open.
type NotEditableError struct {
	TimesheetID TimesheetID
	Status      TimesheetStatus
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("timesheet %s is %s and cannot be edited", e.TimesheetID, e.Status)
}

func (e *NotEditableError) Code() string { return CodeTimesheetNotEditable }

// TransitionError rejects an illegal status move.
type TransitionError struct {
	TimesheetID TimesheetID
	From        TimesheetStatus
	To          TimesheetStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("timesheet %s cannot move from %s to %s", e.TimesheetID, e.From, e.To)
}

func (e *TransitionError) Code() string { return CodeInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error is any lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrTimesheetNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrTaskCodeNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}

// ErrorCode extracts the stable code from any error, defaulting to empty.
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
