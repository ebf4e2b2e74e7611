/*
store.go - Persistence interfaces consumed by the compliance engine

PURPOSE:
  Defines the interface between the engine and storage. Implementations
  live in store/memory (tests, dev) and store/sqlite (production).

AUDIT CONTRACT:
  The check log is APPEND-ONLY. One record per rule evaluation, including
  not-applicable results, so the audit trail is complete. Records are
  immutable once written. The submission gate and the audit write must
  commit or roll back together - hence TxStore.

SEE ALSO:
  - context.go: the Builder reads through these interfaces exactly once
  - timesheet/service.go: the services that write through them
*/
package compliance

import (
	"context"
	"time"

	"github.com/orchard/compliance-engine/calendar"
)

// =============================================================================
// ENTITY STORES
// =============================================================================

type EmployeeStore interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	SaveEmployee(ctx context.Context, e Employee) error
}

type DocumentStore interface {
	// ListDocuments returns every document for an employee, including
	// invalidated ones (revocation history matters to RULE-003).
	ListDocuments(ctx context.Context, employeeID EmployeeID) ([]EmployeeDocument, error)
	SaveDocument(ctx context.Context, d EmployeeDocument) error
	// InvalidateDocument marks a document revoked as of the given time.
	InvalidateDocument(ctx context.Context, id DocumentID, at time.Time) error
}

type TaskStore interface {
	GetTask(ctx context.Context, code string) (*TaskCode, error)
	ListTasks(ctx context.Context) ([]TaskCode, error)
	SaveTask(ctx context.Context, t TaskCode) error
}

type TimesheetStore interface {
	GetTimesheet(ctx context.Context, id TimesheetID) (*Timesheet, error)
	GetTimesheetForWeek(ctx context.Context, employeeID EmployeeID, weekStart calendar.Date) (*Timesheet, error)
	ListTimesheets(ctx context.Context, employeeID EmployeeID) ([]Timesheet, error)
	SaveTimesheet(ctx context.Context, t Timesheet) error

	ListEntries(ctx context.Context, timesheetID TimesheetID) ([]TimesheetEntry, error)
	GetEntry(ctx context.Context, id EntryID) (*TimesheetEntry, error)
	SaveEntry(ctx context.Context, e TimesheetEntry) error
	UpdateEntry(ctx context.Context, e TimesheetEntry) error
	DeleteEntry(ctx context.Context, id EntryID) error
}

// =============================================================================
// AUDIT LOG - Append-only compliance check records
// =============================================================================

// CheckRecord is one persisted rule evaluation. Immutable once written.
type CheckRecord struct {
	ID             string
	EmployeeID     EmployeeID
	TimesheetID    TimesheetID
	RuleID         string
	RuleName       string
	Result         Result
	Details        map[string]any
	AgeOnCheckDate int
	CheckDate      calendar.Date
	CheckedAt      time.Time
}

// CheckFilter selects audit rows for reporting.
type CheckFilter struct {
	EmployeeID *EmployeeID
	RuleID     *string
	Result     *Result
	AgeBand    *calendar.AgeBand
	From       *calendar.Date // inclusive, on CheckDate
	To         *calendar.Date // inclusive, on CheckDate
}

// AuditLog stores check records. Append-only: no update, no delete.
type AuditLog interface {
	AppendChecks(ctx context.Context, records []CheckRecord) error
	QueryChecks(ctx context.Context, filter CheckFilter) ([]CheckRecord, error)
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store bundles everything the engine and services need.
type Store interface {
	EmployeeStore
	DocumentStore
	TaskStore
	TimesheetStore
	AuditLog
}

// TxStore adds transactional execution. The submission gate requires it:
// audit rows and the status transition succeed or fail together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. Error rolls back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
