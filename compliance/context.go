/*
context.go - The per-evaluation compliance snapshot

PURPOSE:
  Assembles everything one evaluation pass needs into an immutable value:
  the employee, the full document list, the timesheet with its entries, the
  per-day age and age-band maps for the week, school-day flags, and hour
  totals already logged. One fetch, one context, deterministic replay - the
  engine never re-reads data mid-evaluation.

WHY PER-DAY MAPS:
  Calendar age can change mid-week. Caching "the employee's current age" as
  a single field silently breaks birthday-week evaluation, so the context
  always carries ages and bands per day, plus the union of bands occupied
  anywhere in the week (rule applicability filters against the union).
*/
package compliance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
)

// =============================================================================
// CONTEXT - Immutable snapshot for one evaluation pass
// =============================================================================

// Context is rebuilt fresh for every check and never partially mutated.
type Context struct {
	CheckDate calendar.Date

	Employee  Employee
	Documents []EmployeeDocument
	Timesheet Timesheet
	Entries   []TimesheetEntry

	// Tasks referenced by the entries (and, for previews, the proposal).
	Tasks map[string]TaskCode

	// Per-day maps for the week; index 0 = WeekStart (Sunday).
	Ages  [7]int
	Bands [7]calendar.AgeBand

	// Union of bands occupied on any day of the week.
	BandSet map[calendar.AgeBand]bool

	// Resolved school-day flags per date. An entry's explicit flag wins over
	// the calendar default.
	SchoolDays map[calendar.Date]bool

	// Hour totals already logged.
	DailyHours  map[calendar.Date]decimal.Decimal
	WeeklyHours decimal.Decimal
}

// DayDate returns the date of day i (0..6) of the week.
func (c *Context) DayDate(i int) calendar.Date { return c.Timesheet.WeekStart.AddDays(i) }

// AgeOn returns the employee's age on a date inside the week. Dates outside
// the week fall back to direct computation.
func (c *Context) AgeOn(d calendar.Date) int {
	for i := 0; i < 7; i++ {
		if c.DayDate(i).Equal(d) {
			return c.Ages[i]
		}
	}
	return c.Employee.AgeOn(d)
}

// HasBand reports whether the employee occupies the band on any week day.
func (c *Context) HasBand(band calendar.AgeBand) bool { return c.BandSet[band] }

// HasMinorBand reports whether any day of the week is under 18.
func (c *Context) HasMinorBand() bool {
	for _, age := range c.Ages {
		if calendar.IsMinor(age) {
			return true
		}
	}
	return false
}

// MinWeeklyAge is the youngest age held during the week.
func (c *Context) MinWeeklyAge() int {
	min := c.Ages[0]
	for _, a := range c.Ages[1:] {
		if a < min {
			min = a
		}
	}
	return min
}

// IsSchoolDay returns the resolved flag for a date of the week.
func (c *Context) IsSchoolDay(d calendar.Date) bool { return c.SchoolDays[d] }

// AnySchoolDay reports whether any day of the week is flagged school.
func (c *Context) AnySchoolDay() bool {
	for _, flagged := range c.SchoolDays {
		if flagged {
			return true
		}
	}
	return false
}

// =============================================================================
// BUILDER - One fetch, one context
// =============================================================================

// Builder assembles contexts from collaborator data.
type Builder struct {
	Store  Store
	School calendar.SchoolCalendar
}

func NewBuilder(store Store, school calendar.SchoolCalendar) *Builder {
	if school == nil {
		school = calendar.NoSchoolCalendar{}
	}
	return &Builder{Store: store, School: school}
}

// Build produces the snapshot for a full-week evaluation (submission path).
func (b *Builder) Build(ctx context.Context, timesheetID TimesheetID, checkDate calendar.Date) (*Context, error) {
	ts, err := b.Store.GetTimesheet(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &NotFoundError{Kind: "timesheet", ID: string(timesheetID)}
	}

	employee, err := b.Store.GetEmployee(ctx, ts.EmployeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(ts.EmployeeID)}
	}

	docs, err := b.Store.ListDocuments(ctx, ts.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	entries, err := b.Store.ListEntries(ctx, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	tasks := make(map[string]TaskCode)
	for _, e := range entries {
		if _, ok := tasks[e.TaskCode]; ok {
			continue
		}
		task, err := b.Store.GetTask(ctx, e.TaskCode)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, &NotFoundError{Kind: "task code", ID: e.TaskCode}
		}
		tasks[e.TaskCode] = *task
	}

	return b.assemble(*employee, docs, *ts, entries, tasks, checkDate), nil
}

// BuildForEntry produces the same snapshot scoped for a single-entry
// preview or mutation gate: it additionally guarantees the proposal's task
// code is loaded.
func (b *Builder) BuildForEntry(ctx context.Context, timesheetID TimesheetID, taskCode string, checkDate calendar.Date) (*Context, error) {
	snapshot, err := b.Build(ctx, timesheetID, checkDate)
	if err != nil {
		return nil, err
	}
	if _, ok := snapshot.Tasks[taskCode]; !ok {
		task, err := b.Store.GetTask(ctx, taskCode)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, &NotFoundError{Kind: "task code", ID: taskCode}
		}
		snapshot.Tasks[taskCode] = *task
	}
	return snapshot, nil
}

func (b *Builder) assemble(employee Employee, docs []EmployeeDocument, ts Timesheet, entries []TimesheetEntry, tasks map[string]TaskCode, checkDate calendar.Date) *Context {
	c := &Context{
		CheckDate:  checkDate,
		Employee:   employee,
		Documents:  docs,
		Timesheet:  ts,
		Entries:    entries,
		Tasks:      tasks,
		Ages:       calendar.WeeklyAges(employee.DateOfBirth, ts.WeekStart),
		Bands:      calendar.WeeklyBands(employee.DateOfBirth, ts.WeekStart),
		BandSet:    make(map[calendar.AgeBand]bool),
		SchoolDays: make(map[calendar.Date]bool),
		DailyHours: make(map[calendar.Date]decimal.Decimal),
	}

	for _, band := range c.Bands {
		if band != "" {
			c.BandSet[band] = true
		}
	}

	// School-day defaults from the calendar; entry overrides win below.
	for i := 0; i < 7; i++ {
		d := c.DayDate(i)
		c.SchoolDays[d] = b.School.IsSchoolDay(d)
	}

	c.WeeklyHours = decimal.Zero
	entryFlagged := make(map[calendar.Date]bool)
	for _, e := range entries {
		total, ok := c.DailyHours[e.WorkDate]
		if !ok {
			total = decimal.Zero
		}
		c.DailyHours[e.WorkDate] = total.Add(e.Hours)
		c.WeeklyHours = c.WeeklyHours.Add(e.Hours)

		// Entries replace the calendar default for their date. When two
		// entries on the same date disagree, the school-day flag wins:
		// the stricter limits apply.
		if entryFlagged[e.WorkDate] {
			c.SchoolDays[e.WorkDate] = c.SchoolDays[e.WorkDate] || e.SchoolDay
		} else {
			c.SchoolDays[e.WorkDate] = e.SchoolDay
			entryFlagged[e.WorkDate] = true
		}
	}

	return c
}
