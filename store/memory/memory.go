/*
Package memory provides an in-memory implementation of the storage
interfaces for tests and demos.

PURPOSE:
  Implements compliance.TxStore entirely in process memory. Used by the
  test suites and the demo scenarios; production uses store/sqlite.

CONCURRENCY:
  A single RWMutex guards all maps. WithTx takes the write lock, snapshots
  every map, runs the function against an unlocked inner view, and restores
  the snapshot if the function errors. This gives the same commit-or-
  rollback contract as the SQLite transaction.

APPEND-ONLY ENFORCEMENT:
  Check records only accumulate; there is no update or delete path for
  them, matching the audit contract.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
)

// Store implements compliance.TxStore in memory.
type Store struct {
	mu sync.RWMutex

	employees  map[compliance.EmployeeID]compliance.Employee
	documents  map[compliance.DocumentID]compliance.EmployeeDocument
	tasks      map[string]compliance.TaskCode
	timesheets map[compliance.TimesheetID]compliance.Timesheet
	entries    map[compliance.EntryID]compliance.TimesheetEntry
	checks     []compliance.CheckRecord
}

func New() *Store {
	return &Store{
		employees:  make(map[compliance.EmployeeID]compliance.Employee),
		documents:  make(map[compliance.DocumentID]compliance.EmployeeDocument),
		tasks:      make(map[string]compliance.TaskCode),
		timesheets: make(map[compliance.TimesheetID]compliance.Timesheet),
		entries:    make(map[compliance.EntryID]compliance.TimesheetEntry),
	}
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, id compliance.EmployeeID) (*compliance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]compliance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]compliance.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveEmployee(ctx context.Context, e compliance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.employees[e.ID] = e
	return nil
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

func (s *Store) ListDocuments(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.EmployeeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []compliance.EmployeeDocument
	for _, d := range s.documents {
		if d.EmployeeID == employeeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (s *Store) SaveDocument(ctx context.Context, d compliance.EmployeeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[d.ID] = d
	return nil
}

func (s *Store) InvalidateDocument(ctx context.Context, id compliance.DocumentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.documents[id]
	if !ok {
		return &compliance.NotFoundError{Kind: "document", ID: string(id)}
	}
	d.InvalidatedAt = &at
	s.documents[id] = d
	return nil
}

// =============================================================================
// TASK STORE
// =============================================================================

func (s *Store) GetTask(ctx context.Context, code string) (*compliance.TaskCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]compliance.TaskCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]compliance.TaskCode, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) SaveTask(ctx context.Context, t compliance.TaskCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[t.Code] = t
	return nil
}

// =============================================================================
// TIMESHEET STORE
// =============================================================================

func (s *Store) GetTimesheet(ctx context.Context, id compliance.TimesheetID) (*compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.timesheets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) GetTimesheetForWeek(ctx context.Context, employeeID compliance.EmployeeID, weekStart calendar.Date) (*compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.timesheets {
		if t.EmployeeID == employeeID && t.WeekStart.Equal(weekStart) {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTimesheets(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []compliance.Timesheet
	for _, t := range s.timesheets {
		if t.EmployeeID == employeeID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

func (s *Store) SaveTimesheet(ctx context.Context, t compliance.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timesheets[t.ID] = t
	return nil
}

func (s *Store) ListEntries(ctx context.Context, timesheetID compliance.TimesheetID) ([]compliance.TimesheetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []compliance.TimesheetEntry
	for _, e := range s.entries {
		if e.TimesheetID == timesheetID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (s *Store) GetEntry(ctx context.Context, id compliance.EntryID) (*compliance.TimesheetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) SaveEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.ID] = e
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ID]; !ok {
		return &compliance.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	s.entries[e.ID] = e
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id compliance.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return &compliance.NotFoundError{Kind: "entry", ID: string(id)}
	}
	delete(s.entries, id)
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendChecks(ctx context.Context, records []compliance.CheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks = append(s.checks, records...)
	return nil
}

func (s *Store) QueryChecks(ctx context.Context, filter compliance.CheckFilter) ([]compliance.CheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []compliance.CheckRecord
	for _, r := range s.checks {
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckedAt.Equal(out[j].CheckedAt) {
			return out[i].CheckedAt.Before(out[j].CheckedAt)
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out, nil
}

func matchesFilter(r compliance.CheckRecord, f compliance.CheckFilter) bool {
	if f.EmployeeID != nil && r.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.RuleID != nil && r.RuleID != *f.RuleID {
		return false
	}
	if f.Result != nil && r.Result != *f.Result {
		return false
	}
	if f.AgeBand != nil {
		band, err := calendar.BandForAge(r.AgeOnCheckDate)
		if err != nil || band != *f.AgeBand {
			return false
		}
	}
	if f.From != nil && r.CheckDate.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CheckDate.After(*f.To) {
		return false
	}
	return true
}

// Reset wipes all data. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.employees = make(map[compliance.EmployeeID]compliance.Employee)
	s.documents = make(map[compliance.DocumentID]compliance.EmployeeDocument)
	s.tasks = make(map[string]compliance.TaskCode)
	s.timesheets = make(map[compliance.TimesheetID]compliance.Timesheet)
	s.entries = make(map[compliance.EntryID]compliance.TimesheetEntry)
	s.checks = nil
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx runs fn against the store under the write lock. On error every
// map is restored from a pre-call snapshot, so partial writes never land.
func (s *Store) WithTx(ctx context.Context, fn func(compliance.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&unlockedView{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	employees  map[compliance.EmployeeID]compliance.Employee
	documents  map[compliance.DocumentID]compliance.EmployeeDocument
	tasks      map[string]compliance.TaskCode
	timesheets map[compliance.TimesheetID]compliance.Timesheet
	entries    map[compliance.EntryID]compliance.TimesheetEntry
	checks     []compliance.CheckRecord
}

func (s *Store) snapshot() storeSnapshot {
	snap := storeSnapshot{
		employees:  make(map[compliance.EmployeeID]compliance.Employee, len(s.employees)),
		documents:  make(map[compliance.DocumentID]compliance.EmployeeDocument, len(s.documents)),
		tasks:      make(map[string]compliance.TaskCode, len(s.tasks)),
		timesheets: make(map[compliance.TimesheetID]compliance.Timesheet, len(s.timesheets)),
		entries:    make(map[compliance.EntryID]compliance.TimesheetEntry, len(s.entries)),
		checks:     append([]compliance.CheckRecord(nil), s.checks...),
	}
	for k, v := range s.employees {
		snap.employees[k] = v
	}
	for k, v := range s.documents {
		snap.documents[k] = v
	}
	for k, v := range s.tasks {
		snap.tasks[k] = v
	}
	for k, v := range s.timesheets {
		snap.timesheets[k] = v
	}
	for k, v := range s.entries {
		snap.entries[k] = v
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.employees = snap.employees
	s.documents = snap.documents
	s.tasks = snap.tasks
	s.timesheets = snap.timesheets
	s.entries = snap.entries
	s.checks = snap.checks
}

// unlockedView exposes the maps without re-acquiring the mutex, for use
// inside WithTx where the write lock is already held.
type unlockedView struct {
	s *Store
}

func (v *unlockedView) GetEmployee(ctx context.Context, id compliance.EmployeeID) (*compliance.Employee, error) {
	e, ok := v.s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (v *unlockedView) ListEmployees(ctx context.Context) ([]compliance.Employee, error) {
	out := make([]compliance.Employee, 0, len(v.s.employees))
	for _, e := range v.s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *unlockedView) SaveEmployee(ctx context.Context, e compliance.Employee) error {
	v.s.employees[e.ID] = e
	return nil
}

func (v *unlockedView) ListDocuments(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.EmployeeDocument, error) {
	var out []compliance.EmployeeDocument
	for _, d := range v.s.documents {
		if d.EmployeeID == employeeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (v *unlockedView) SaveDocument(ctx context.Context, d compliance.EmployeeDocument) error {
	v.s.documents[d.ID] = d
	return nil
}

func (v *unlockedView) InvalidateDocument(ctx context.Context, id compliance.DocumentID, at time.Time) error {
	d, ok := v.s.documents[id]
	if !ok {
		return &compliance.NotFoundError{Kind: "document", ID: string(id)}
	}
	d.InvalidatedAt = &at
	v.s.documents[id] = d
	return nil
}

func (v *unlockedView) GetTask(ctx context.Context, code string) (*compliance.TaskCode, error) {
	t, ok := v.s.tasks[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (v *unlockedView) ListTasks(ctx context.Context) ([]compliance.TaskCode, error) {
	out := make([]compliance.TaskCode, 0, len(v.s.tasks))
	for _, t := range v.s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (v *unlockedView) SaveTask(ctx context.Context, t compliance.TaskCode) error {
	v.s.tasks[t.Code] = t
	return nil
}

func (v *unlockedView) GetTimesheet(ctx context.Context, id compliance.TimesheetID) (*compliance.Timesheet, error) {
	t, ok := v.s.timesheets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (v *unlockedView) GetTimesheetForWeek(ctx context.Context, employeeID compliance.EmployeeID, weekStart calendar.Date) (*compliance.Timesheet, error) {
	for _, t := range v.s.timesheets {
		if t.EmployeeID == employeeID && t.WeekStart.Equal(weekStart) {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (v *unlockedView) ListTimesheets(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.Timesheet, error) {
	var out []compliance.Timesheet
	for _, t := range v.s.timesheets {
		if t.EmployeeID == employeeID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

func (v *unlockedView) SaveTimesheet(ctx context.Context, t compliance.Timesheet) error {
	v.s.timesheets[t.ID] = t
	return nil
}

func (v *unlockedView) ListEntries(ctx context.Context, timesheetID compliance.TimesheetID) ([]compliance.TimesheetEntry, error) {
	var out []compliance.TimesheetEntry
	for _, e := range v.s.entries {
		if e.TimesheetID == timesheetID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (v *unlockedView) GetEntry(ctx context.Context, id compliance.EntryID) (*compliance.TimesheetEntry, error) {
	e, ok := v.s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (v *unlockedView) SaveEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	v.s.entries[e.ID] = e
	return nil
}

func (v *unlockedView) UpdateEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	if _, ok := v.s.entries[e.ID]; !ok {
		return &compliance.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	v.s.entries[e.ID] = e
	return nil
}

func (v *unlockedView) DeleteEntry(ctx context.Context, id compliance.EntryID) error {
	if _, ok := v.s.entries[id]; !ok {
		return &compliance.NotFoundError{Kind: "entry", ID: string(id)}
	}
	delete(v.s.entries, id)
	return nil
}

func (v *unlockedView) AppendChecks(ctx context.Context, records []compliance.CheckRecord) error {
	v.s.checks = append(v.s.checks, records...)
	return nil
}

func (v *unlockedView) QueryChecks(ctx context.Context, filter compliance.CheckFilter) ([]compliance.CheckRecord, error) {
	var out []compliance.CheckRecord
	for _, r := range v.s.checks {
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}
