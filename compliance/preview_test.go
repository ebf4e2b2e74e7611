package compliance_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchard/compliance-engine/compliance"
)

func findingCodes(findings []compliance.Finding) []string {
	codes := make([]string, 0, len(findings))
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func preview(t *testing.T, f *fixture, p compliance.EntryProposal) *compliance.EntryCompliancePreview {
	t.Helper()
	c, err := f.builder.BuildForEntry(ctxBg(), f.timesheet.ID, p.TaskCode, date("2024-06-15"))
	require.NoError(t, err)

	var previewer compliance.Previewer
	report, err := previewer.Preview(c, p)
	require.NoError(t, err)
	return report
}

// =============================================================================
// PREVIEW: VIOLATIONS
// =============================================================================

func TestPreview_SchoolDayShift_SchoolHoursAndDailyLimit(t *testing.T) {
	// GIVEN: A 13-year-old proposing Monday 09:00-17:30 during term time
	// WHEN: Previewing the entry
	// THEN: The report flags the school-hours overlap AND the daily overage
	//       (8.5h against a 4h limit), without returning an error

	f := newFixture(t, "2010-06-12", "2024-06-09", schoolTerm("2024-01-08", "2024-06-21"))

	report := preview(t, f, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("09:00"),
		End:      clock("17:30"),
		TaskCode: "HARVEST",
	})

	assert.False(t, report.Valid)
	assert.Equal(t, 13, report.AgeOnDate)
	assert.True(t, report.SchoolDay)
	assert.Equal(t, "8.5", report.Hours.String())

	codes := findingCodes(report.Violations)
	assert.Contains(t, codes, compliance.ViolationHourLimitDaily)
	assert.Contains(t, codes, compliance.ViolationSchoolHours)
	assert.NotContains(t, codes, compliance.ViolationHourLimitWeekly)
}

func TestPreview_CompliantShift_ValidWithRequirements(t *testing.T) {
	// GIVEN: The same employee, now 14, proposing Thursday 09:00-16:30 with a
	//        non-school-day override (term break)
	// WHEN: Previewing the entry
	// THEN: Valid, but a supervised task over 6h carries both requirements

	f := newFixture(t, "2010-06-12", "2024-06-09", schoolTerm("2024-01-08", "2024-06-21"))

	report := preview(t, f, compliance.EntryProposal{
		WorkDate:  date("2024-06-13"),
		Start:     clock("09:00"),
		End:       clock("16:30"),
		TaskCode:  "HARVEST",
		SchoolDay: boolPtr(false),
	})

	assert.True(t, report.Valid)
	assert.Equal(t, 14, report.AgeOnDate)
	assert.False(t, report.SchoolDay)
	assert.Empty(t, report.Violations)

	codes := findingCodes(report.Requirements)
	assert.Contains(t, codes, compliance.RequirementSupervisor)
	assert.Contains(t, codes, compliance.RequirementMealBreak, "7.5h shift for a minor exceeds the 6h meal-break threshold")
}

func TestPreview_UnderageForTask_FlagsBothTaskViolations(t *testing.T) {
	// GIVEN: A 15-year-old proposing tractor work (hazardous, min age 16)
	// WHEN: Previewing the entry
	// THEN: Both task findings appear in the same report

	f := newFixture(t, "2009-03-01", "2024-06-09", nil)

	report := preview(t, f, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("10:00"),
		TaskCode: "TRACTOR",
	})

	assert.False(t, report.Valid)
	codes := findingCodes(report.Violations)
	assert.Contains(t, codes, compliance.ViolationTaskAge)
	assert.Contains(t, codes, compliance.ViolationHazardousTask)

	codes = findingCodes(report.Requirements)
	assert.Contains(t, codes, compliance.RequirementSupervisor, "always-supervised task")
}

// =============================================================================
// PREVIEW: WARNINGS AND REMAINING HOURS
// =============================================================================

func TestPreview_ApproachingDailyLimit_WarnsAtEightyPercent(t *testing.T) {
	// GIVEN: A 13-year-old proposing 3.5 of an allowed 4 daily hours
	// WHEN: Previewing the entry
	// THEN: Valid, with an approaching-limit warning and 0.5h remaining

	f := newFixture(t, "2011-01-15", "2024-06-09", nil)

	report := preview(t, f, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("11:30"),
		TaskCode: "HARVEST",
	})

	assert.True(t, report.Valid)
	codes := findingCodes(report.Warnings)
	assert.Contains(t, codes, compliance.WarningDailyApproaching)

	require.NotNil(t, report.RemainingDailyHours)
	assert.Equal(t, "0.5", report.RemainingDailyHours.String())
}

func TestPreview_WellUnderLimit_NoWarnings(t *testing.T) {
	// GIVEN: A 13-year-old proposing 2 of 4 daily hours (50%)
	// WHEN: Previewing the entry
	// THEN: No warnings fire below the 80% threshold

	f := newFixture(t, "2011-01-15", "2024-06-09", nil)

	report := preview(t, f, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("10:00"),
		TaskCode: "HARVEST",
	})

	assert.True(t, report.Valid)
	assert.Empty(t, report.Warnings)
}

func TestPreview_Adult_Unrestricted(t *testing.T) {
	// GIVEN: A 25-year-old proposing a 12h day
	// WHEN: Previewing the entry
	// THEN: No hour findings and no remaining-hours context at all

	f := newFixture(t, "1999-01-15", "2024-06-09", nil)

	report := preview(t, f, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("06:00"),
		End:      clock("18:00"),
		TaskCode: "TRACTOR",
	})

	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.Warnings)
	assert.Nil(t, report.RemainingDailyHours)
	assert.Nil(t, report.RemainingWeeklyHours)
}

func TestPreview_EditExcludesReplacedEntry(t *testing.T) {
	// GIVEN: A 13-year-old with a 3h entry, editing it down to 2h
	// WHEN: Previewing with ReplacesEntryID set
	// THEN: The old entry's hours are excluded from current totals

	f := newFixture(t, "2011-01-15", "2024-06-09", nil)
	entryID := f.addEntry(t, "2024-06-10", "08:00", "11:00", "HARVEST", false)

	report := preview(t, f, compliance.EntryProposal{
		WorkDate:        date("2024-06-10"),
		Start:           clock("08:00"),
		End:             clock("10:00"),
		TaskCode:        "HARVEST",
		ReplacesEntryID: entryID,
	})

	assert.True(t, report.Valid)
	assert.Equal(t, "0", report.CurrentDailyHours.String())
	assert.Equal(t, "2", report.ProjectedDailyHours.String())
}

// =============================================================================
// PREVIEW: CONTRACT
// =============================================================================

func TestPreview_Idempotent_ByteIdenticalReports(t *testing.T) {
	// GIVEN: The same non-compliant proposal previewed twice
	// WHEN: Serializing both reports
	// THEN: The JSON is byte-identical and nothing was persisted

	f := newFixture(t, "2010-06-12", "2024-06-09", schoolTerm("2024-01-08", "2024-06-21"))
	p := compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("09:00"),
		End:      clock("17:30"),
		TaskCode: "HARVEST",
	}

	first := preview(t, f, p)
	second := preview(t, f, p)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	entries, err := f.store.ListEntries(ctxBg(), f.timesheet.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "preview must not persist anything")
}

func TestPreview_InputErrors(t *testing.T) {
	f := newFixture(t, "2011-01-15", "2024-06-09", nil)
	c, err := f.builder.Build(ctxBg(), f.timesheet.ID, date("2024-06-15"))
	require.NoError(t, err)
	var previewer compliance.Previewer

	// End before start.
	_, err = previewer.Preview(c, compliance.EntryProposal{
		WorkDate: date("2024-06-10"), Start: clock("12:00"), End: clock("09:00"), TaskCode: "HARVEST",
	})
	assert.Equal(t, compliance.CodeInvalidTimeRange, compliance.ErrorCode(err))

	// Date outside the timesheet week.
	_, err = previewer.Preview(c, compliance.EntryProposal{
		WorkDate: date("2024-06-20"), Start: clock("08:00"), End: clock("10:00"), TaskCode: "HARVEST",
	})
	assert.Equal(t, compliance.CodeDateOutsideWeek, compliance.ErrorCode(err))

	// Unknown task code.
	_, err = previewer.Preview(c, compliance.EntryProposal{
		WorkDate: date("2024-06-10"), Start: clock("08:00"), End: clock("10:00"), TaskCode: "NOPE",
	})
	assert.True(t, compliance.IsNotFound(err))
}

// =============================================================================
// HARD GATE
// =============================================================================

func TestCheckEntryHourLimits_DailyOverage_TypedError(t *testing.T) {
	// GIVEN: A 13-year-old with 3.5h logged, proposing 1 more hour
	// WHEN: Running the mutation gate
	// THEN: HourLimitError citing current, entry, projected, and limit

	f := newFixture(t, "2011-01-15", "2024-06-09", nil)
	f.addEntry(t, "2024-06-10", "08:00", "11:30", "HARVEST", false)

	c, err := f.builder.BuildForEntry(ctxBg(), f.timesheet.ID, "HARVEST", date("2024-06-15"))
	require.NoError(t, err)

	err = compliance.CheckEntryHourLimits(c, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("13:00"),
		End:      clock("14:00"),
		TaskCode: "HARVEST",
	})

	var limitErr *compliance.HourLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "daily", limitErr.Scope)
	assert.Equal(t, "3.5", limitErr.Current.String())
	assert.Equal(t, "1", limitErr.Entry.String())
	assert.Equal(t, "4.5", limitErr.Projected.String())
	assert.Equal(t, "4", limitErr.Limit.String())
	assert.Equal(t, compliance.CodeHourLimitExceeded, compliance.ErrorCode(err))
}

func TestCheckEntryHourLimits_AgreesWithPreview(t *testing.T) {
	// GIVEN: The same proposal run through both calling conventions
	// WHEN: Comparing the gate's error against the preview's findings
	// THEN: The projected and limit figures match exactly

	f := newFixture(t, "2011-01-15", "2024-06-09", nil)
	f.addEntry(t, "2024-06-10", "08:00", "11:30", "HARVEST", false)

	p := compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("13:00"),
		End:      clock("14:00"),
		TaskCode: "HARVEST",
	}

	c, err := f.builder.BuildForEntry(ctxBg(), f.timesheet.ID, "HARVEST", date("2024-06-15"))
	require.NoError(t, err)

	var previewer compliance.Previewer
	report, err := previewer.Preview(c, p)
	require.NoError(t, err)
	require.False(t, report.Valid)

	gateErr := compliance.CheckEntryHourLimits(c, p)
	var limitErr *compliance.HourLimitError
	require.ErrorAs(t, gateErr, &limitErr)

	assert.True(t, report.ProjectedDailyHours.Equal(limitErr.Projected))

	var daily *compliance.Finding
	for i := range report.Violations {
		if report.Violations[i].Code == compliance.ViolationHourLimitDaily {
			daily = &report.Violations[i]
		}
	}
	require.NotNil(t, daily)
	assert.Equal(t, limitErr.Limit.String(), daily.Details["limit"])
	assert.Equal(t, limitErr.Projected.String(), daily.Details["projected_hours"])
}

func TestCheckEntryHourLimits_BelowMinimumAge(t *testing.T) {
	// GIVEN: An 11-year-old proposing any entry at all
	// WHEN: Running the mutation gate
	// THEN: BelowMinimumAgeError before any hour math

	f := newFixture(t, "2013-01-15", "2024-06-09", nil)

	c, err := f.builder.BuildForEntry(ctxBg(), f.timesheet.ID, "HARVEST", date("2024-06-15"))
	require.NoError(t, err)

	err = compliance.CheckEntryHourLimits(c, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("09:00"),
		TaskCode: "HARVEST",
	})

	var ageErr *compliance.BelowMinimumAgeError
	require.ErrorAs(t, err, &ageErr)
	assert.Equal(t, 11, ageErr.Age)
}

func TestCheckEntryHourLimits_WithinLimits_NoError(t *testing.T) {
	f := newFixture(t, "2011-01-15", "2024-06-09", nil)

	c, err := f.builder.BuildForEntry(ctxBg(), f.timesheet.ID, "HARVEST", date("2024-06-15"))
	require.NoError(t, err)

	err = compliance.CheckEntryHourLimits(c, compliance.EntryProposal{
		WorkDate: date("2024-06-10"),
		Start:    clock("08:00"),
		End:      clock("11:00"),
		TaskCode: "HARVEST",
	})
	assert.NoError(t, err)
}
