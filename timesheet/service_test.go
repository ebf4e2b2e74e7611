package timesheet_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
	"github.com/orchard/compliance-engine/store/memory"
	"github.com/orchard/compliance-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(s string) calendar.Date       { return calendar.MustParseDate(s) }
func clock(s string) calendar.ClockTime { return calendar.MustParseClock(s) }
func boolPtr(b bool) *bool              { return &b }

type harness struct {
	store       *memory.Store
	timesheets  *timesheet.Service
	entries     *timesheet.EntryService
	submissions *timesheet.SubmissionService
	employee    compliance.Employee
}

func newHarness(t *testing.T, dob string, school calendar.SchoolCalendar) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	emp := compliance.Employee{
		ID:          "emp-1",
		Name:        "Jordan Birch",
		DateOfBirth: date(dob),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	for _, task := range []compliance.TaskCode{
		{Code: "HARVEST", Name: "Fruit harvesting", MinimumAge: 12, Supervision: compliance.SupervisionMinors, Agricultural: true},
		{Code: "TRACTOR", Name: "Tractor operation", MinimumAge: 16, Hazardous: true, Supervision: compliance.SupervisionAlways, Agricultural: true},
	} {
		require.NoError(t, store.SaveTask(ctx, task))
	}

	return &harness{
		store:       store,
		timesheets:  timesheet.NewService(store),
		entries:     timesheet.NewEntryService(store, school),
		submissions: timesheet.NewSubmissionService(store, school, compliance.DefaultRuleSet()),
		employee:    emp,
	}
}

func (h *harness) openWeek(t *testing.T, weekStart string) *compliance.Timesheet {
	t.Helper()
	ts, err := h.timesheets.Open(context.Background(), h.employee.ID, date(weekStart))
	require.NoError(t, err)
	return ts
}

// fullDocumentFile gives the employee valid consent, permit, and training.
func (h *harness) fullDocumentFile(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	issued := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	for i, typ := range []compliance.DocumentType{
		compliance.DocParentalConsent, compliance.DocWorkPermit, compliance.DocSafetyTraining,
	} {
		require.NoError(t, h.store.SaveDocument(ctx, compliance.EmployeeDocument{
			ID:         compliance.DocumentID([]string{"doc-consent", "doc-permit", "doc-training"}[i]),
			EmployeeID: h.employee.ID,
			Type:       typ,
			IssuedAt:   issued,
		}))
	}
}

// =============================================================================
// OPENING TIMESHEETS
// =============================================================================

func TestService_Open_NormalizesToSunday(t *testing.T) {
	// GIVEN: A mid-week date
	// WHEN: Opening a timesheet for it
	// THEN: The stored week start is the preceding Sunday

	h := newHarness(t, "2009-03-01", nil)
	ts := h.openWeek(t, "2024-06-12") // a Wednesday

	assert.True(t, ts.WeekStart.Equal(date("2024-06-09")))
	assert.Equal(t, compliance.StatusOpen, ts.Status)
}

func TestService_Open_SameWeekTwice_ReturnsExisting(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)

	first := h.openWeek(t, "2024-06-09")
	second := h.openWeek(t, "2024-06-13") // different day, same week

	assert.Equal(t, first.ID, second.ID, "one timesheet per employee per week")
}

func TestService_Open_UnknownEmployee_NotFound(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)

	_, err := h.timesheets.Open(context.Background(), "emp-missing", date("2024-06-09"))
	assert.True(t, compliance.IsNotFound(err))
}

// =============================================================================
// ENTRY MUTATIONS
// =============================================================================

func TestEntryService_Create_PersistsDerivedFields(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)
	ts := h.openWeek(t, "2024-06-09")

	entry, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("11:30"),
		TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	assert.Equal(t, "3.5", entry.Hours.String())
	assert.False(t, entry.SchoolDay, "no school calendar configured")
	assert.False(t, entry.SchoolDayOverridden)

	stored, err := h.store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ts.ID, stored.TimesheetID)
}

func TestEntryService_Create_HourLimitGate_RejectsWrite(t *testing.T) {
	// GIVEN: A 13-year-old with 3.5h already logged on a non-school day
	// WHEN: Adding a 1.0h entry on the same day (projected 4.5 > 4.0)
	// THEN: The create fails hard with remediation context, nothing persisted

	h := newHarness(t, "2011-01-15", nil)
	ts := h.openWeek(t, "2024-06-09")

	_, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("11:30"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	_, err = h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("13:00"), End: clock("14:00"), TaskCode: "HARVEST",
	})

	var limitErr *compliance.HourLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "daily", limitErr.Scope)
	assert.Equal(t, "3.5", limitErr.Current.String())
	assert.Equal(t, "1", limitErr.Entry.String())
	assert.Equal(t, "4.5", limitErr.Projected.String())
	assert.Equal(t, "4", limitErr.Limit.String())

	entries, err := h.store.ListEntries(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the rejected entry must not be persisted")
}

func TestEntryService_Create_BelowMinimumAge_Rejected(t *testing.T) {
	h := newHarness(t, "2013-06-01", nil) // 11 in June 2024
	ts := h.openWeek(t, "2024-05-05")

	_, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-05-06"), Start: clock("08:00"), End: clock("09:00"), TaskCode: "HARVEST",
	})

	var ageErr *compliance.BelowMinimumAgeError
	assert.ErrorAs(t, err, &ageErr)
}

func TestEntryService_SchoolDayOverride_RequiresReason(t *testing.T) {
	term := &calendar.TermCalendar{Terms: []calendar.Term{{Start: date("2024-01-08"), End: date("2024-06-21")}}}
	h := newHarness(t, "2009-03-01", term)
	ts := h.openWeek(t, "2024-06-09")

	// Override without a reason: rejected.
	_, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("16:00"), End: clock("18:00"), TaskCode: "HARVEST",
		SchoolDay: boolPtr(false),
	})
	assert.Equal(t, compliance.CodeValidation, compliance.ErrorCode(err))

	// With a reason: the override lands and is marked.
	entry, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("16:00"), End: clock("18:00"), TaskCode: "HARVEST",
		SchoolDay: boolPtr(false), OverrideReason: "district closure day",
	})
	require.NoError(t, err)
	assert.False(t, entry.SchoolDay)
	assert.True(t, entry.SchoolDayOverridden)
	assert.Equal(t, "district closure day", entry.OverrideReason)
}

func TestEntryService_Update_ExcludesOldEntryFromGate(t *testing.T) {
	// GIVEN: A 13-year-old at exactly the 4h daily cap in one entry
	// WHEN: Editing that entry to different times of the same length
	// THEN: The edit passes; the old hours are not double-counted

	h := newHarness(t, "2011-01-15", nil)
	ts := h.openWeek(t, "2024-06-09")

	entry, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("12:00"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	updated, err := h.entries.Update(context.Background(), ts.ID, entry.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("09:00"), End: clock("13:00"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, updated.ID)
	assert.Equal(t, clock("09:00"), updated.Start)

	entries, err := h.store.ListEntries(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntryService_Delete_RemovesEntry(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)
	ts := h.openWeek(t, "2024-06-09")

	entry, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("10:00"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	require.NoError(t, h.entries.Delete(context.Background(), ts.ID, entry.ID))

	entries, err := h.store.ListEntries(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = h.entries.Delete(context.Background(), ts.ID, entry.ID)
	assert.True(t, compliance.IsNotFound(err))
}

func TestEntryService_MutationsBlockedOnceSubmitted(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)
	h.fullDocumentFile(t)
	ts := h.openWeek(t, "2024-06-09")

	entry, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("16:00"), End: clock("18:00"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	result, err := h.submissions.Submit(context.Background(), ts.ID, date("2024-06-15"))
	require.NoError(t, err)
	require.True(t, result.Passed)

	var notEditable *compliance.NotEditableError

	_, err = h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-11"), Start: clock("08:00"), End: clock("10:00"), TaskCode: "HARVEST",
	})
	assert.ErrorAs(t, err, &notEditable)

	_, err = h.entries.Update(context.Background(), ts.ID, entry.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("10:00"), TaskCode: "HARVEST",
	})
	assert.ErrorAs(t, err, &notEditable)

	err = h.entries.Delete(context.Background(), ts.ID, entry.ID)
	assert.ErrorAs(t, err, &notEditable)
}

func TestEntryService_ConcurrentCreates_CannotBothPassTheGate(t *testing.T) {
	// GIVEN: A 13-year-old with a 4h daily cap and no entries yet
	// WHEN: Two 3h creates for the same day race each other
	// THEN: Exactly one lands; the other fails the aggregate projection

	h := newHarness(t, "2011-01-15", nil)
	ts := h.openWeek(t, "2024-06-09")

	input := timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("11:00"), TaskCode: "HARVEST",
	}
	second := timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("12:00"), End: clock("15:00"), TaskCode: "HARVEST",
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, in := range []timesheet.EntryInput{input, second} {
		wg.Add(1)
		go func(i int, in timesheet.EntryInput) {
			defer wg.Done()
			_, errs[i] = h.entries.Create(context.Background(), ts.ID, in)
		}(i, in)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			var limitErr *compliance.HourLimitError
			assert.ErrorAs(t, err, &limitErr)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the racing creates must fail")

	entries, err := h.store.ListEntries(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// SUBMISSION GATE
// =============================================================================

func TestSubmissionService_Submit_PassingWeek_TransitionsAndAudits(t *testing.T) {
	// GIVEN: A compliant week for a documented 15-year-old
	// WHEN: Submitting
	// THEN: Status becomes submitted and every applicable rule is audited

	h := newHarness(t, "2009-03-01", nil)
	h.fullDocumentFile(t)
	ts := h.openWeek(t, "2024-06-09")

	_, err := h.entries.Create(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("16:00"), End: clock("19:00"), TaskCode: "HARVEST",
	})
	require.NoError(t, err)

	result, err := h.submissions.Submit(context.Background(), ts.ID, date("2024-06-15"))
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Failures())

	stored, err := h.store.GetTimesheet(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusSubmitted, stored.Status)
	require.NotNil(t, stored.SubmittedAt)

	empID := h.employee.ID
	checks, err := h.store.QueryChecks(context.Background(), compliance.CheckFilter{EmployeeID: &empID})
	require.NoError(t, err)
	assert.Equal(t, len(result.Records), len(checks), "one audit row per evaluated rule")
}

func TestSubmissionService_Submit_FailingWeek_StaysOpenButAudited(t *testing.T) {
	// GIVEN: A 15-year-old with no documents on file
	// WHEN: Submitting
	// THEN: No error, Passed is false, status stays open, the attempt is audited

	h := newHarness(t, "2009-03-01", nil)
	ts := h.openWeek(t, "2024-06-09")

	result, err := h.submissions.Submit(context.Background(), ts.ID, date("2024-06-15"))
	require.NoError(t, err, "a failed gate is a result, not an error")
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Failures())

	stored, err := h.store.GetTimesheet(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusOpen, stored.Status)

	empID := h.employee.ID
	checks, err := h.store.QueryChecks(context.Background(), compliance.CheckFilter{EmployeeID: &empID})
	require.NoError(t, err)
	assert.NotEmpty(t, checks, "failed attempts still leave an audit trail")
}

func TestSubmissionService_Submit_AlreadySubmitted_TransitionError(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)
	h.fullDocumentFile(t)
	ts := h.openWeek(t, "2024-06-09")

	_, err := h.submissions.Submit(context.Background(), ts.ID, date("2024-06-15"))
	require.NoError(t, err)

	_, err = h.submissions.Submit(context.Background(), ts.ID, date("2024-06-15"))
	var transErr *compliance.TransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestSubmissionService_ApprovalWorkflow(t *testing.T) {
	h := newHarness(t, "2009-03-01", nil)
	h.fullDocumentFile(t)
	ctx := context.Background()

	// Approve path.
	ts := h.openWeek(t, "2024-06-09")
	_, err := h.submissions.Submit(ctx, ts.ID, date("2024-06-15"))
	require.NoError(t, err)

	approved, err := h.submissions.Approve(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusApproved, approved.Status)

	// Approved is terminal.
	_, err = h.submissions.Reopen(ctx, ts.ID)
	var transErr *compliance.TransitionError
	assert.ErrorAs(t, err, &transErr)

	// Reject and reopen path.
	ts2 := h.openWeek(t, "2024-06-16")
	_, err = h.submissions.Submit(ctx, ts2.ID, date("2024-06-22"))
	require.NoError(t, err)

	rejected, err := h.submissions.Reject(ctx, ts2.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusRejected, rejected.Status)

	reopened, err := h.submissions.Reopen(ctx, ts2.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusOpen, reopened.Status)

	// Editable again after reopening.
	_, err = h.entries.Create(ctx, ts2.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-17"), Start: clock("16:00"), End: clock("18:00"), TaskCode: "HARVEST",
	})
	assert.NoError(t, err)
}

// =============================================================================
// PREVIEW PASSTHROUGH
// =============================================================================

func TestEntryService_Preview_DoesNotPersist(t *testing.T) {
	h := newHarness(t, "2011-01-15", nil)
	ts := h.openWeek(t, "2024-06-09")

	report, err := h.entries.Preview(context.Background(), ts.ID, timesheet.EntryInput{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("14:00"), TaskCode: "HARVEST",
	}, "")
	require.NoError(t, err)

	assert.False(t, report.Valid, "6h against a 4h cap")

	entries, err := h.store.ListEntries(context.Background(), ts.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
