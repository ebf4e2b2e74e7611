/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements compliance.TxStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The compliance_checks table is append-only:
  - No UPDATE statements
  - No DELETE statements
  Every rule evaluation at submission time lands here, including the
  not-applicable results, so the audit trail is complete.

KEY TABLES:
  employees:          Worker records with date of birth
  employee_documents: Consent, permit, and training documents (revocable)
  task_codes:         The task catalog with age and hazard restrictions
  timesheets:         One per employee per week (Sunday start)
  timesheet_entries:  Individual work entries
  compliance_checks:  Immutable audit log of rule evaluations

INDEXES:
  - idx_checks_employee_date: employee + date-range audit queries (hot path)
  - idx_checks_rule: per-rule reporting
  - idx_timesheets_employee_week: week uniqueness lookups
  - idx_entries_timesheet: entry listing for context assembly

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - compliance/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
)

// Store implements compliance.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		supervisor BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employee_documents (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		expires_on TEXT,
		invalidated_at TEXT,
		FOREIGN KEY (employee_id) REFERENCES employees(id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_employee
		ON employee_documents(employee_id, doc_type);

	CREATE TABLE IF NOT EXISTS task_codes (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		minimum_age INTEGER NOT NULL DEFAULT 0,
		hazardous BOOLEAN NOT NULL DEFAULT FALSE,
		supervision TEXT NOT NULL DEFAULT 'none',
		agricultural BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (employee_id) REFERENCES employees(id)
	);

	-- One timesheet per employee per week
	CREATE UNIQUE INDEX IF NOT EXISTS idx_timesheets_employee_week
		ON timesheets(employee_id, week_start);

	CREATE TABLE IF NOT EXISTS timesheet_entries (
		id TEXT PRIMARY KEY,
		timesheet_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		start_minutes INTEGER NOT NULL,
		end_minutes INTEGER NOT NULL,
		hours TEXT NOT NULL,
		task_code TEXT NOT NULL,
		school_day BOOLEAN NOT NULL DEFAULT FALSE,
		school_day_overridden BOOLEAN NOT NULL DEFAULT FALSE,
		override_reason TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (timesheet_id) REFERENCES timesheets(id)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_timesheet
		ON timesheet_entries(timesheet_id, work_date);

	-- Compliance checks (append-only audit log)
	CREATE TABLE IF NOT EXISTS compliance_checks (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		timesheet_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		result TEXT NOT NULL,
		details_json TEXT,
		age_on_check_date INTEGER NOT NULL,
		check_date TEXT NOT NULL,
		checked_at TEXT NOT NULL
	);

	-- Composite index for employee + date-range audit queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_checks_employee_date
		ON compliance_checks(employee_id, check_date);
	CREATE INDEX IF NOT EXISTS idx_checks_rule
		ON compliance_checks(rule_id);
	CREATE INDEX IF NOT EXISTS idx_checks_result
		ON compliance_checks(result);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Reset wipes all data. Used by the demo scenario loader; never called
// in normal operation, the audit log is append-only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"compliance_checks", "timesheet_entries", "timesheets",
		"employee_documents", "task_codes", "employees",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e compliance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveEmployee(ctx, s.db, e)
}

func saveEmployee(ctx context.Context, db execer, e compliance.Employee) error {
	query := `
		INSERT INTO employees (id, name, date_of_birth, supervisor, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date_of_birth = excluded.date_of_birth,
			supervisor = excluded.supervisor
	`

	_, err := db.ExecContext(ctx, query,
		string(e.ID), e.Name,
		e.DateOfBirth.String(),
		e.Supervisor,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id compliance.EmployeeID) (*compliance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getEmployee(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEmployee(ctx context.Context, db querier, id compliance.EmployeeID) (*compliance.Employee, error) {
	var e compliance.Employee
	var eid, dob, createdAt string

	err := db.QueryRowContext(ctx,
		"SELECT id, name, date_of_birth, supervisor, created_at FROM employees WHERE id = ?",
		string(id),
	).Scan(&eid, &e.Name, &dob, &e.Supervisor, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.ID = compliance.EmployeeID(eid)
	e.DateOfBirth, _ = calendar.ParseDate(dob)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]compliance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, date_of_birth, supervisor, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []compliance.Employee
	for rows.Next() {
		var e compliance.Employee
		var eid, dob, createdAt string
		if err := rows.Scan(&eid, &e.Name, &dob, &e.Supervisor, &createdAt); err != nil {
			return nil, err
		}
		e.ID = compliance.EmployeeID(eid)
		e.DateOfBirth, _ = calendar.ParseDate(dob)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

func (s *Store) SaveDocument(ctx context.Context, d compliance.EmployeeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveDocument(ctx, s.db, d)
}

func saveDocument(ctx context.Context, db execer, d compliance.EmployeeDocument) error {
	var expiresOn, invalidatedAt *string
	if d.ExpiresOn != nil {
		v := d.ExpiresOn.String()
		expiresOn = &v
	}
	if d.InvalidatedAt != nil {
		v := d.InvalidatedAt.UTC().Format(time.RFC3339)
		invalidatedAt = &v
	}

	query := `
		INSERT INTO employee_documents (id, employee_id, doc_type, issued_at, expires_on, invalidated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			expires_on = excluded.expires_on,
			invalidated_at = excluded.invalidated_at
	`

	_, err := db.ExecContext(ctx, query,
		string(d.ID), string(d.EmployeeID), string(d.Type),
		d.IssuedAt.UTC().Format(time.RFC3339),
		expiresOn, invalidatedAt,
	)
	return err
}

func (s *Store) ListDocuments(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.EmployeeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, doc_type, issued_at, expires_on, invalidated_at
		FROM employee_documents
		WHERE employee_id = ?
		ORDER BY issued_at ASC
	`, string(employeeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []compliance.EmployeeDocument
	for rows.Next() {
		var d compliance.EmployeeDocument
		var id, eid, docType, issuedAt string
		var expiresOn, invalidatedAt sql.NullString
		if err := rows.Scan(&id, &eid, &docType, &issuedAt, &expiresOn, &invalidatedAt); err != nil {
			return nil, err
		}
		d.ID = compliance.DocumentID(id)
		d.EmployeeID = compliance.EmployeeID(eid)
		d.Type = compliance.DocumentType(docType)
		d.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt)
		if expiresOn.Valid {
			exp, _ := calendar.ParseDate(expiresOn.String)
			d.ExpiresOn = &exp
		}
		if invalidatedAt.Valid {
			t, _ := time.Parse(time.RFC3339, invalidatedAt.String)
			d.InvalidatedAt = &t
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) InvalidateDocument(ctx context.Context, id compliance.DocumentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE employee_documents SET invalidated_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), string(id),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &compliance.NotFoundError{Kind: "document", ID: string(id)}
	}
	return nil
}

// =============================================================================
// TASK STORE
// =============================================================================

func (s *Store) SaveTask(ctx context.Context, t compliance.TaskCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveTask(ctx, s.db, t)
}

func saveTask(ctx context.Context, db execer, t compliance.TaskCode) error {
	query := `
		INSERT INTO task_codes (code, name, minimum_age, hazardous, supervision, agricultural)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			minimum_age = excluded.minimum_age,
			hazardous = excluded.hazardous,
			supervision = excluded.supervision,
			agricultural = excluded.agricultural
	`

	_, err := db.ExecContext(ctx, query,
		t.Code, t.Name, t.MinimumAge, t.Hazardous, string(t.Supervision), t.Agricultural,
	)
	return err
}

func (s *Store) GetTask(ctx context.Context, code string) (*compliance.TaskCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getTask(ctx, s.db, code)
}

func getTask(ctx context.Context, db querier, code string) (*compliance.TaskCode, error) {
	var t compliance.TaskCode
	var supervision string

	err := db.QueryRowContext(ctx,
		"SELECT code, name, minimum_age, hazardous, supervision, agricultural FROM task_codes WHERE code = ?",
		code,
	).Scan(&t.Code, &t.Name, &t.MinimumAge, &t.Hazardous, &supervision, &t.Agricultural)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Supervision = compliance.SupervisionLevel(supervision)
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]compliance.TaskCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name, minimum_age, hazardous, supervision, agricultural FROM task_codes ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []compliance.TaskCode
	for rows.Next() {
		var t compliance.TaskCode
		var supervision string
		if err := rows.Scan(&t.Code, &t.Name, &t.MinimumAge, &t.Hazardous, &supervision, &t.Agricultural); err != nil {
			return nil, err
		}
		t.Supervision = compliance.SupervisionLevel(supervision)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// =============================================================================
// TIMESHEET STORE
// =============================================================================

func (s *Store) SaveTimesheet(ctx context.Context, t compliance.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveTimesheet(ctx, s.db, t)
}

func saveTimesheet(ctx context.Context, db execer, t compliance.Timesheet) error {
	var submittedAt *string
	if t.SubmittedAt != nil {
		v := t.SubmittedAt.UTC().Format(time.RFC3339)
		submittedAt = &v
	}

	query := `
		INSERT INTO timesheets (id, employee_id, week_start, status, submitted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		string(t.ID), string(t.EmployeeID),
		t.WeekStart.String(), string(t.Status), submittedAt,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetTimesheet(ctx context.Context, id compliance.TimesheetID) (*compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryTimesheet(ctx, s.db,
		"SELECT id, employee_id, week_start, status, submitted_at, created_at, updated_at FROM timesheets WHERE id = ?",
		string(id))
}

func (s *Store) GetTimesheetForWeek(ctx context.Context, employeeID compliance.EmployeeID, weekStart calendar.Date) (*compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryTimesheet(ctx, s.db,
		"SELECT id, employee_id, week_start, status, submitted_at, created_at, updated_at FROM timesheets WHERE employee_id = ? AND week_start = ?",
		string(employeeID), weekStart.String())
}

func queryTimesheet(ctx context.Context, db querier, query string, args ...any) (*compliance.Timesheet, error) {
	var t compliance.Timesheet
	var id, eid, weekStart, status, createdAt, updatedAt string
	var submittedAt sql.NullString

	err := db.QueryRowContext(ctx, query, args...).Scan(
		&id, &eid, &weekStart, &status, &submittedAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.ID = compliance.TimesheetID(id)
	t.EmployeeID = compliance.EmployeeID(eid)
	t.WeekStart, _ = calendar.ParseDate(weekStart)
	t.Status = compliance.TimesheetStatus(status)
	if submittedAt.Valid {
		sub, _ := time.Parse(time.RFC3339, submittedAt.String)
		t.SubmittedAt = &sub
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func (s *Store) ListTimesheets(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, week_start, status, submitted_at, created_at, updated_at
		FROM timesheets
		WHERE employee_id = ?
		ORDER BY week_start ASC
	`, string(employeeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []compliance.Timesheet
	for rows.Next() {
		var t compliance.Timesheet
		var id, eid, weekStart, status, createdAt, updatedAt string
		var submittedAt sql.NullString
		if err := rows.Scan(&id, &eid, &weekStart, &status, &submittedAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.ID = compliance.TimesheetID(id)
		t.EmployeeID = compliance.EmployeeID(eid)
		t.WeekStart, _ = calendar.ParseDate(weekStart)
		t.Status = compliance.TimesheetStatus(status)
		if submittedAt.Valid {
			sub, _ := time.Parse(time.RFC3339, submittedAt.String)
			t.SubmittedAt = &sub
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		sheets = append(sheets, t)
	}
	return sheets, rows.Err()
}

func (s *Store) SaveEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveEntry(ctx, s.db, e)
}

func saveEntry(ctx context.Context, db execer, e compliance.TimesheetEntry) error {
	query := `
		INSERT INTO timesheet_entries
		(id, timesheet_id, work_date, start_minutes, end_minutes, hours, task_code,
		 school_day, school_day_overridden, override_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(e.ID), string(e.TimesheetID),
		e.WorkDate.String(), e.Start.Minutes(), e.End.Minutes(),
		e.Hours.String(), e.TaskCode,
		e.SchoolDay, e.SchoolDayOverridden, e.OverrideReason,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := updateEntry(ctx, s.db, e)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &compliance.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	return nil
}

func updateEntry(ctx context.Context, db execer, e compliance.TimesheetEntry) (sql.Result, error) {
	query := `
		UPDATE timesheet_entries SET
			work_date = ?, start_minutes = ?, end_minutes = ?, hours = ?, task_code = ?,
			school_day = ?, school_day_overridden = ?, override_reason = ?
		WHERE id = ?
	`

	return db.ExecContext(ctx, query,
		e.WorkDate.String(), e.Start.Minutes(), e.End.Minutes(),
		e.Hours.String(), e.TaskCode,
		e.SchoolDay, e.SchoolDayOverridden, e.OverrideReason,
		string(e.ID),
	)
}

func (s *Store) DeleteEntry(ctx context.Context, id compliance.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM timesheet_entries WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &compliance.NotFoundError{Kind: "entry", ID: string(id)}
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id compliance.EntryID) (*compliance.TimesheetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx, `
		SELECT id, timesheet_id, work_date, start_minutes, end_minutes, hours, task_code,
		       school_day, school_day_overridden, override_reason, created_at
		FROM timesheet_entries WHERE id = ?
	`, string(id))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) ListEntries(ctx context.Context, timesheetID compliance.TimesheetID) ([]compliance.TimesheetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntries(ctx, `
		SELECT id, timesheet_id, work_date, start_minutes, end_minutes, hours, task_code,
		       school_day, school_day_overridden, override_reason, created_at
		FROM timesheet_entries
		WHERE timesheet_id = ?
		ORDER BY work_date ASC, start_minutes ASC
	`, string(timesheetID))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]compliance.TimesheetEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []compliance.TimesheetEntry
	for rows.Next() {
		var e compliance.TimesheetEntry
		var id, tid, workDate, hours, createdAt string
		var startMin, endMin int
		var overrideReason sql.NullString
		if err := rows.Scan(&id, &tid, &workDate, &startMin, &endMin, &hours, &e.TaskCode,
			&e.SchoolDay, &e.SchoolDayOverridden, &overrideReason, &createdAt); err != nil {
			return nil, err
		}
		e.ID = compliance.EntryID(id)
		e.TimesheetID = compliance.TimesheetID(tid)
		e.WorkDate, _ = calendar.ParseDate(workDate)
		e.Start = calendar.ClockTime(startMin)
		e.End = calendar.ClockTime(endMin)
		e.Hours, _ = decimal.NewFromString(hours)
		e.OverrideReason = overrideReason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendChecks(ctx context.Context, records []compliance.CheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, r := range records {
		if err := appendCheck(ctx, sqlTx, r); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func appendCheck(ctx context.Context, db execer, r compliance.CheckRecord) error {
	detailsJSON, _ := json.Marshal(r.Details)

	query := `
		INSERT INTO compliance_checks
		(id, employee_id, timesheet_id, rule_id, rule_name, result, details_json,
		 age_on_check_date, check_date, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		r.ID, string(r.EmployeeID), string(r.TimesheetID),
		r.RuleID, r.RuleName, string(r.Result), string(detailsJSON),
		r.AgeOnCheckDate, r.CheckDate.String(),
		r.CheckedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append check record: %w", err)
	}
	return nil
}

func (s *Store) QueryChecks(ctx context.Context, filter compliance.CheckFilter) ([]compliance.CheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	if filter.EmployeeID != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, string(*filter.EmployeeID))
	}
	if filter.RuleID != nil {
		conds = append(conds, "rule_id = ?")
		args = append(args, *filter.RuleID)
	}
	if filter.Result != nil {
		conds = append(conds, "result = ?")
		args = append(args, string(*filter.Result))
	}
	if filter.AgeBand != nil {
		lo, hi := bandAgeRange(*filter.AgeBand)
		conds = append(conds, "age_on_check_date >= ? AND age_on_check_date <= ?")
		args = append(args, lo, hi)
	}
	if filter.From != nil {
		conds = append(conds, "check_date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		conds = append(conds, "check_date <= ?")
		args = append(args, filter.To.String())
	}

	query := `
		SELECT id, employee_id, timesheet_id, rule_id, rule_name, result, details_json,
		       age_on_check_date, check_date, checked_at
		FROM compliance_checks
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY checked_at ASC, rule_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []compliance.CheckRecord
	for rows.Next() {
		var r compliance.CheckRecord
		var eid, tid, result, checkDate, checkedAt string
		var detailsJSON sql.NullString
		if err := rows.Scan(&r.ID, &eid, &tid, &r.RuleID, &r.RuleName, &result, &detailsJSON,
			&r.AgeOnCheckDate, &checkDate, &checkedAt); err != nil {
			return nil, err
		}
		r.EmployeeID = compliance.EmployeeID(eid)
		r.TimesheetID = compliance.TimesheetID(tid)
		r.Result = compliance.Result(result)
		if detailsJSON.Valid && detailsJSON.String != "" && detailsJSON.String != "null" {
			json.Unmarshal([]byte(detailsJSON.String), &r.Details)
		}
		r.CheckDate, _ = calendar.ParseDate(checkDate)
		r.CheckedAt, _ = time.Parse(time.RFC3339, checkedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// bandAgeRange maps an age band to the inclusive age range it covers on
// the age_on_check_date column.
func bandAgeRange(band calendar.AgeBand) (int, int) {
	switch band {
	case calendar.Band12To13:
		return 12, 13
	case calendar.Band14To15:
		return 14, 15
	case calendar.Band16To17:
		return 16, 17
	case calendar.BandAdult:
		return 18, 200
	default:
		return 0, 11
	}
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction. Both reads
// and writes inside fn go through the sql.Tx; the store mutex is held
// for the duration, so no other writer can interleave.
func (s *Store) WithTx(ctx context.Context, fn func(compliance.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveEmployee(ctx context.Context, e compliance.Employee) error {
	return saveEmployee(ctx, ts.tx, e)
}

func (ts *txStore) SaveDocument(ctx context.Context, d compliance.EmployeeDocument) error {
	return saveDocument(ctx, ts.tx, d)
}

func (ts *txStore) SaveTask(ctx context.Context, t compliance.TaskCode) error {
	return saveTask(ctx, ts.tx, t)
}

func (ts *txStore) SaveTimesheet(ctx context.Context, t compliance.Timesheet) error {
	return saveTimesheet(ctx, ts.tx, t)
}

func (ts *txStore) SaveEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	return saveEntry(ctx, ts.tx, e)
}

func (ts *txStore) UpdateEntry(ctx context.Context, e compliance.TimesheetEntry) error {
	res, err := updateEntry(ctx, ts.tx, e)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &compliance.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	return nil
}

func (ts *txStore) DeleteEntry(ctx context.Context, id compliance.EntryID) error {
	_, err := ts.tx.ExecContext(ctx, "DELETE FROM timesheet_entries WHERE id = ?", string(id))
	return err
}

func (ts *txStore) InvalidateDocument(ctx context.Context, id compliance.DocumentID, at time.Time) error {
	_, err := ts.tx.ExecContext(ctx,
		"UPDATE employee_documents SET invalidated_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), string(id),
	)
	return err
}

func (ts *txStore) AppendChecks(ctx context.Context, records []compliance.CheckRecord) error {
	for _, r := range records {
		if err := appendCheck(ctx, ts.tx, r); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) GetEmployee(ctx context.Context, id compliance.EmployeeID) (*compliance.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) GetTask(ctx context.Context, code string) (*compliance.TaskCode, error) {
	return getTask(ctx, ts.tx, code)
}

func (ts *txStore) GetTimesheet(ctx context.Context, id compliance.TimesheetID) (*compliance.Timesheet, error) {
	return queryTimesheet(ctx, ts.tx,
		"SELECT id, employee_id, week_start, status, submitted_at, created_at, updated_at FROM timesheets WHERE id = ?",
		string(id))
}

func (ts *txStore) GetTimesheetForWeek(ctx context.Context, employeeID compliance.EmployeeID, weekStart calendar.Date) (*compliance.Timesheet, error) {
	return queryTimesheet(ctx, ts.tx,
		"SELECT id, employee_id, week_start, status, submitted_at, created_at, updated_at FROM timesheets WHERE employee_id = ? AND week_start = ?",
		string(employeeID), weekStart.String())
}

// List operations are not needed inside a transaction; the services read
// the full context before opening one.

func (ts *txStore) ListEmployees(ctx context.Context) ([]compliance.Employee, error) {
	return nil, fmt.Errorf("ListEmployees: not supported inside a transaction")
}

func (ts *txStore) ListDocuments(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.EmployeeDocument, error) {
	return nil, fmt.Errorf("ListDocuments: not supported inside a transaction")
}

func (ts *txStore) ListTasks(ctx context.Context) ([]compliance.TaskCode, error) {
	return nil, fmt.Errorf("ListTasks: not supported inside a transaction")
}

func (ts *txStore) ListTimesheets(ctx context.Context, employeeID compliance.EmployeeID) ([]compliance.Timesheet, error) {
	return nil, fmt.Errorf("ListTimesheets: not supported inside a transaction")
}

func (ts *txStore) ListEntries(ctx context.Context, timesheetID compliance.TimesheetID) ([]compliance.TimesheetEntry, error) {
	return nil, fmt.Errorf("ListEntries: not supported inside a transaction")
}

func (ts *txStore) GetEntry(ctx context.Context, id compliance.EntryID) (*compliance.TimesheetEntry, error) {
	return nil, fmt.Errorf("GetEntry: not supported inside a transaction")
}

func (ts *txStore) QueryChecks(ctx context.Context, filter compliance.CheckFilter) ([]compliance.CheckRecord, error) {
	return nil, fmt.Errorf("QueryChecks: not supported inside a transaction")
}
