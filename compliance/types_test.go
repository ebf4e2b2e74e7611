package compliance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchard/compliance-engine/compliance"
)

// =============================================================================
// HOURS DERIVATION
// =============================================================================

func TestComputeHours_RoundsHalfUpToTwoPlaces(t *testing.T) {
	cases := []struct {
		start, end string
		want       string
	}{
		{"09:00", "17:30", "8.5"},
		{"08:00", "12:00", "4"},
		{"08:00", "12:20", "4.33"}, // 260 min = 4.3333...
		{"08:00", "08:25", "0.42"}, // 25 min = 0.41666... rounds up
		{"08:00", "08:01", "0.02"}, // 1 min = 0.01666... rounds up
	}

	for _, tc := range cases {
		got, err := compliance.ComputeHours(clock(tc.start), clock(tc.end))
		require.NoError(t, err, "%s-%s", tc.start, tc.end)
		assert.Equal(t, tc.want, got.String(), "%s-%s", tc.start, tc.end)
	}
}

func TestComputeHours_EndNotAfterStart_Errors(t *testing.T) {
	_, err := compliance.ComputeHours(clock("12:00"), clock("12:00"))
	assert.Error(t, err)

	_, err = compliance.ComputeHours(clock("12:00"), clock("09:00"))
	assert.Error(t, err)
}

// =============================================================================
// DOCUMENT AUTHORITY
// =============================================================================

func TestLatestValidDocument_NewestNonInvalidatedWins(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2024, time.May, day, 9, 0, 0, 0, time.UTC) }
	revoked := at(20)

	docs := []compliance.EmployeeDocument{
		{ID: "d1", Type: compliance.DocParentalConsent, IssuedAt: at(1)},
		{ID: "d2", Type: compliance.DocParentalConsent, IssuedAt: at(10), InvalidatedAt: &revoked},
		{ID: "d3", Type: compliance.DocWorkPermit, IssuedAt: at(15)},
	}

	got := compliance.LatestValidDocument(docs, compliance.DocParentalConsent)
	require.NotNil(t, got)
	assert.Equal(t, compliance.DocumentID("d1"), got.ID, "the invalidated d2 is skipped even though it is newer")

	// A later valid consent takes over.
	docs = append(docs, compliance.EmployeeDocument{ID: "d4", Type: compliance.DocParentalConsent, IssuedAt: at(25)})
	got = compliance.LatestValidDocument(docs, compliance.DocParentalConsent)
	require.NotNil(t, got)
	assert.Equal(t, compliance.DocumentID("d4"), got.ID)
}

func TestLatestValidDocument_NoneOfType_Nil(t *testing.T) {
	docs := []compliance.EmployeeDocument{
		{ID: "d1", Type: compliance.DocWorkPermit, IssuedAt: time.Now()},
	}
	assert.Nil(t, compliance.LatestValidDocument(docs, compliance.DocSafetyTraining))
}

func TestLatestInvalidatedDocument_NewestRevokedWins(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2024, time.May, day, 9, 0, 0, 0, time.UTC) }
	revoked := at(20)

	docs := []compliance.EmployeeDocument{
		{ID: "d1", Type: compliance.DocParentalConsent, IssuedAt: at(1), InvalidatedAt: &revoked},
		{ID: "d2", Type: compliance.DocParentalConsent, IssuedAt: at(10), InvalidatedAt: &revoked},
		{ID: "d3", Type: compliance.DocParentalConsent, IssuedAt: at(15)},
	}

	got := compliance.LatestInvalidatedDocument(docs, compliance.DocParentalConsent)
	require.NotNil(t, got)
	assert.Equal(t, compliance.DocumentID("d2"), got.ID, "valid d3 is skipped; newest revoked wins")

	assert.Nil(t, compliance.LatestInvalidatedDocument(docs, compliance.DocWorkPermit))
}

// =============================================================================
// STATUS MACHINE
// =============================================================================

func TestTimesheetStatus_Transitions(t *testing.T) {
	allowed := []struct{ from, to compliance.TimesheetStatus }{
		{compliance.StatusOpen, compliance.StatusSubmitted},
		{compliance.StatusSubmitted, compliance.StatusApproved},
		{compliance.StatusSubmitted, compliance.StatusRejected},
		{compliance.StatusRejected, compliance.StatusOpen},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	forbidden := []struct{ from, to compliance.TimesheetStatus }{
		{compliance.StatusOpen, compliance.StatusApproved},
		{compliance.StatusOpen, compliance.StatusRejected},
		{compliance.StatusApproved, compliance.StatusOpen},
		{compliance.StatusApproved, compliance.StatusSubmitted},
		{compliance.StatusRejected, compliance.StatusApproved},
		{compliance.StatusSubmitted, compliance.StatusOpen},
	}
	for _, tc := range forbidden {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTimesheet_EditableOnlyWhenOpen(t *testing.T) {
	ts := compliance.Timesheet{Status: compliance.StatusOpen}
	assert.True(t, ts.Editable())

	for _, status := range []compliance.TimesheetStatus{
		compliance.StatusSubmitted, compliance.StatusApproved, compliance.StatusRejected,
	} {
		ts.Status = status
		assert.False(t, ts.Editable(), status)
	}
}

// =============================================================================
// ENTRY AGGREGATION
// =============================================================================

func TestSumHoursAndDistinctDates(t *testing.T) {
	mk := func(day, start, end string) compliance.TimesheetEntry {
		hours, err := compliance.ComputeHours(clock(start), clock(end))
		require.NoError(t, err)
		return compliance.TimesheetEntry{WorkDate: date(day), Start: clock(start), End: clock(end), Hours: hours}
	}

	entries := []compliance.TimesheetEntry{
		mk("2024-06-10", "08:00", "10:00"),
		mk("2024-06-10", "13:00", "15:30"),
		mk("2024-06-11", "08:00", "12:00"),
	}

	assert.Equal(t, "8.5", compliance.SumHours(entries, nil).String())

	monday := date("2024-06-10")
	assert.Equal(t, "4.5", compliance.SumHours(entries, &monday).String())

	assert.Len(t, compliance.DistinctWorkDates(entries), 2)
}
