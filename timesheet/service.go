/*
Package timesheet implements the domain services above the compliance
engine: opening weekly timesheets, mutating entries under the hard
hour-limit gate, and the audit-logged submission workflow.

PURPOSE:
  The compliance package computes; this package orchestrates. Entry
  mutations run the throwing convention (CheckEntryHourLimits) and reject
  writes outright. Submission runs the full rule set, persists one audit
  record per rule, and blocks the open -> submitted transition on any fail,
  atomically with the audit write.

CONCURRENCY:
  The read-validate-write sequence for entry creation is serialized with a
  per-timesheet advisory lock so two concurrent creations against the same
  timesheet cannot both race past the aggregate hour check.
*/
package timesheet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
)

// =============================================================================
// PER-TIMESHEET ADVISORY LOCK
// =============================================================================

type timesheetLock struct {
	mu      sync.Mutex
	holders int // guarded by keyedLocks.mu
}

type keyedLocks struct {
	mu    sync.Mutex
	locks map[compliance.TimesheetID]*timesheetLock
}

// lock serializes mutations per timesheet. The map entry is evicted when
// the last holder releases, so idle timesheets cost nothing.
func (k *keyedLocks) lock(id compliance.TimesheetID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[compliance.TimesheetID]*timesheetLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &timesheetLock{}
		k.locks[id] = l
	}
	l.holders++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// =============================================================================
// TIMESHEET SERVICE - Opening weekly timesheets
// =============================================================================

type Service struct {
	Store compliance.Store
	Now   func() time.Time
}

func NewService(store compliance.Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

// Open creates an open timesheet for the employee's week containing any
// weekStart; the stored WeekStart is always normalized to the Sunday.
// Returns the existing timesheet if the week is already open.
func (s *Service) Open(ctx context.Context, employeeID compliance.EmployeeID, weekStart calendar.Date) (*compliance.Timesheet, error) {
	emp, err := s.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &compliance.NotFoundError{Kind: "employee", ID: string(employeeID)}
	}

	sunday := calendar.WeekStartOf(weekStart)
	existing, err := s.Store.GetTimesheetForWeek(ctx, employeeID, sunday)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.Now()
	ts := compliance.Timesheet{
		ID:         compliance.TimesheetID(uuid.NewString()),
		EmployeeID: employeeID,
		WeekStart:  sunday,
		Status:     compliance.StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.SaveTimesheet(ctx, ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// =============================================================================
// ENTRY SERVICE - Mutations under the hard gate
// =============================================================================

type EntryService struct {
	Store   compliance.Store
	Builder *compliance.Builder
	Now     func() time.Time

	locks keyedLocks
}

func NewEntryService(store compliance.Store, school calendar.SchoolCalendar) *EntryService {
	return &EntryService{
		Store:   store,
		Builder: compliance.NewBuilder(store, school),
		Now:     time.Now,
	}
}

// EntryInput carries the fields of a create or update.
type EntryInput struct {
	WorkDate calendar.Date
	Start    calendar.ClockTime
	End      calendar.ClockTime
	TaskCode string

	// SchoolDay overrides the calendar default when non-nil; an override
	// requires a reason.
	SchoolDay      *bool
	OverrideReason string
}

// Create validates and persists a new entry. The hour-limit gate fails
// hard with full remediation context; the write never happens on failure.
func (s *EntryService) Create(ctx context.Context, timesheetID compliance.TimesheetID, in EntryInput) (*compliance.TimesheetEntry, error) {
	unlock := s.locks.lock(timesheetID)
	defer unlock()

	return s.upsert(ctx, timesheetID, "", in)
}

// Update replaces an existing entry's fields, excluding the old entry from
// the totals the gate checks against.
func (s *EntryService) Update(ctx context.Context, timesheetID compliance.TimesheetID, entryID compliance.EntryID, in EntryInput) (*compliance.TimesheetEntry, error) {
	unlock := s.locks.lock(timesheetID)
	defer unlock()

	existing, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.TimesheetID != timesheetID {
		return nil, &compliance.NotFoundError{Kind: "entry", ID: string(entryID)}
	}

	return s.upsert(ctx, timesheetID, entryID, in)
}

// Delete removes an entry from an open timesheet.
func (s *EntryService) Delete(ctx context.Context, timesheetID compliance.TimesheetID, entryID compliance.EntryID) error {
	unlock := s.locks.lock(timesheetID)
	defer unlock()

	ts, err := s.Store.GetTimesheet(ctx, timesheetID)
	if err != nil {
		return err
	}
	if ts == nil {
		return &compliance.NotFoundError{Kind: "timesheet", ID: string(timesheetID)}
	}
	if !ts.Editable() {
		return &compliance.NotEditableError{TimesheetID: ts.ID, Status: ts.Status}
	}

	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.TimesheetID != timesheetID {
		return &compliance.NotFoundError{Kind: "entry", ID: string(entryID)}
	}
	return s.Store.DeleteEntry(ctx, entryID)
}

// Preview runs the non-destructive report for a proposal against the
// current timesheet state. Identical inputs yield identical reports.
func (s *EntryService) Preview(ctx context.Context, timesheetID compliance.TimesheetID, in EntryInput, replaces compliance.EntryID) (*compliance.EntryCompliancePreview, error) {
	snapshot, err := s.Builder.BuildForEntry(ctx, timesheetID, in.TaskCode, calendar.Today())
	if err != nil {
		return nil, err
	}
	var previewer compliance.Previewer
	return previewer.Preview(snapshot, compliance.EntryProposal{
		WorkDate:        in.WorkDate,
		Start:           in.Start,
		End:             in.End,
		TaskCode:        in.TaskCode,
		SchoolDay:       in.SchoolDay,
		ReplacesEntryID: replaces,
	})
}

func (s *EntryService) upsert(ctx context.Context, timesheetID compliance.TimesheetID, replaces compliance.EntryID, in EntryInput) (*compliance.TimesheetEntry, error) {
	ts, err := s.Store.GetTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &compliance.NotFoundError{Kind: "timesheet", ID: string(timesheetID)}
	}
	if !ts.Editable() {
		return nil, &compliance.NotEditableError{TimesheetID: ts.ID, Status: ts.Status}
	}

	if in.SchoolDay != nil && in.OverrideReason == "" {
		return nil, &compliance.ValidationError{
			ErrCode: compliance.CodeValidation,
			Message: "overriding the school-day flag requires a reason",
		}
	}

	snapshot, err := s.Builder.BuildForEntry(ctx, timesheetID, in.TaskCode, calendar.Today())
	if err != nil {
		return nil, err
	}

	proposal := compliance.EntryProposal{
		WorkDate:        in.WorkDate,
		Start:           in.Start,
		End:             in.End,
		TaskCode:        in.TaskCode,
		SchoolDay:       in.SchoolDay,
		ReplacesEntryID: replaces,
	}
	if err := compliance.CheckEntryHourLimits(snapshot, proposal); err != nil {
		return nil, err
	}

	hours, err := compliance.ComputeHours(in.Start, in.End)
	if err != nil {
		return nil, &compliance.ValidationError{ErrCode: compliance.CodeInvalidTimeRange, Message: err.Error()}
	}

	schoolDay := snapshot.IsSchoolDay(in.WorkDate)
	overridden := false
	if in.SchoolDay != nil {
		schoolDay = *in.SchoolDay
		overridden = true
	}

	entry := compliance.TimesheetEntry{
		ID:                  compliance.EntryID(uuid.NewString()),
		TimesheetID:         timesheetID,
		WorkDate:            in.WorkDate,
		Start:               in.Start,
		End:                 in.End,
		Hours:               hours,
		TaskCode:            in.TaskCode,
		SchoolDay:           schoolDay,
		SchoolDayOverridden: overridden,
		OverrideReason:      in.OverrideReason,
		CreatedAt:           s.Now(),
	}

	if replaces != "" {
		entry.ID = replaces
		if err := s.Store.UpdateEntry(ctx, entry); err != nil {
			return nil, err
		}
		return &entry, nil
	}

	if err := s.Store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// =============================================================================
// SUBMISSION SERVICE - The authoritative, audit-logged gate
// =============================================================================

type SubmissionService struct {
	Store   compliance.TxStore
	Builder *compliance.Builder
	Engine  *compliance.Engine
	Now     func() time.Time
}

func NewSubmissionService(store compliance.TxStore, school calendar.SchoolCalendar, rules *compliance.RuleSet) *SubmissionService {
	return &SubmissionService{
		Store:   store,
		Builder: compliance.NewBuilder(store, school),
		Engine:  compliance.NewEngine(rules),
		Now:     time.Now,
	}
}

// SubmissionResult reports the evaluation of one submission attempt.
type SubmissionResult struct {
	Timesheet compliance.Timesheet
	Records   []compliance.CheckRecord
	Passed    bool
}

// Failures returns the failing records of the attempt.
func (r *SubmissionResult) Failures() []compliance.CheckRecord {
	return compliance.Failures(r.Records)
}

// Submit evaluates every applicable rule against the full week, writes one
// audit record per rule (not-applicable included), and transitions the
// timesheet open -> submitted iff no rule failed. Audit write and gate are
// atomic: they commit or roll back together. On a failed gate the
// timesheet remains open and the attempt is still audited.
func (s *SubmissionService) Submit(ctx context.Context, timesheetID compliance.TimesheetID, checkDate calendar.Date) (*SubmissionResult, error) {
	ts, err := s.Store.GetTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &compliance.NotFoundError{Kind: "timesheet", ID: string(timesheetID)}
	}
	if !ts.Status.CanTransitionTo(compliance.StatusSubmitted) {
		return nil, &compliance.TransitionError{TimesheetID: ts.ID, From: ts.Status, To: compliance.StatusSubmitted}
	}

	snapshot, err := s.Builder.Build(ctx, timesheetID, checkDate)
	if err != nil {
		return nil, err
	}

	records := s.Engine.Evaluate(snapshot)
	passed := !compliance.AnyFailure(records)

	err = s.Store.WithTx(ctx, func(tx compliance.Store) error {
		if err := tx.AppendChecks(ctx, records); err != nil {
			return err
		}
		if passed {
			now := s.Now()
			ts.Status = compliance.StatusSubmitted
			ts.SubmittedAt = &now
			ts.UpdatedAt = now
			return tx.SaveTimesheet(ctx, *ts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SubmissionResult{Timesheet: *ts, Records: records, Passed: passed}, nil
}

// Approve moves a submitted timesheet to approved.
func (s *SubmissionService) Approve(ctx context.Context, timesheetID compliance.TimesheetID) (*compliance.Timesheet, error) {
	return s.transition(ctx, timesheetID, compliance.StatusApproved)
}

// Reject moves a submitted timesheet to rejected.
func (s *SubmissionService) Reject(ctx context.Context, timesheetID compliance.TimesheetID) (*compliance.Timesheet, error) {
	return s.transition(ctx, timesheetID, compliance.StatusRejected)
}

// Reopen returns a rejected timesheet to open for correction.
func (s *SubmissionService) Reopen(ctx context.Context, timesheetID compliance.TimesheetID) (*compliance.Timesheet, error) {
	return s.transition(ctx, timesheetID, compliance.StatusOpen)
}

func (s *SubmissionService) transition(ctx context.Context, timesheetID compliance.TimesheetID, to compliance.TimesheetStatus) (*compliance.Timesheet, error) {
	ts, err := s.Store.GetTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &compliance.NotFoundError{Kind: "timesheet", ID: string(timesheetID)}
	}
	if !ts.Status.CanTransitionTo(to) {
		return nil, &compliance.TransitionError{TimesheetID: ts.ID, From: ts.Status, To: to}
	}

	ts.Status = to
	ts.UpdatedAt = s.Now()
	if err := s.Store.SaveTimesheet(ctx, *ts); err != nil {
		return nil, err
	}
	return ts, nil
}
