/*
preview.go - Entry compliance preview (the non-destructive path)

PURPOSE:
  Given a single proposed entry plus the timesheet's existing entries,
  computes a structured report - violations, warnings, remaining-hours
  context, and requirements - without persisting anything.

CONTRACT:
  Preview NEVER returns an error for business-rule findings; a non-compliant
  proposal still yields a report with Valid == false. The only error returns
  are input problems (bad time range, date outside the week, unknown task).
  The mutating entry operations perform the same hour-limit computation via
  CheckEntryHourLimits and fail hard instead - both paths share
  projectEntry, so they agree bit-for-bit on identical inputs.

IDEMPOTENCE:
  The preview is a pure function of (context, proposal). Calling it twice
  with identical inputs yields byte-identical reports.
*/
package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
)

// Violation, warning, and requirement codes surfaced to the entry UI.
const (
	ViolationHourLimitDaily  = "HOUR_LIMIT_DAILY"
	ViolationHourLimitWeekly = "HOUR_LIMIT_WEEKLY"
	ViolationSchoolHours     = "SCHOOL_HOURS_VIOLATION"
	ViolationTaskAge         = "TASK_AGE_RESTRICTION"
	ViolationHazardousTask   = "HAZARDOUS_TASK_MINOR"

	WarningDailyApproaching  = "HOUR_LIMIT_DAILY_APPROACHING"
	WarningWeeklyApproaching = "HOUR_LIMIT_WEEKLY_APPROACHING"

	RequirementSupervisor = "SUPERVISOR_PRESENCE"
	RequirementMealBreak  = "MEAL_BREAK_CONFIRMATION"
)

// approachRatio is the fraction of a resolved limit at which an
// "approaching limit" warning fires. Hard-coded; no configuration surface.
var approachRatio = decimal.NewFromFloat(0.8)

// mealBreakThresholdHours: a minor's shift above this requires a meal-break
// confirmation.
var mealBreakThresholdHours = decimal.NewFromInt(6)

// =============================================================================
// PROPOSAL AND REPORT
// =============================================================================

// EntryProposal is a not-yet-persisted shift.
type EntryProposal struct {
	WorkDate calendar.Date
	Start    calendar.ClockTime
	End      calendar.ClockTime
	TaskCode string

	// SchoolDay overrides the context's resolved flag when non-nil.
	SchoolDay *bool

	// ReplacesEntryID excludes an existing entry from current totals when
	// previewing an edit.
	ReplacesEntryID EntryID
}

// Finding is one violation, warning, or requirement.
type Finding struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// EntryCompliancePreview is the report returned to the entry-creation UI.
type EntryCompliancePreview struct {
	Valid bool `json:"valid"`

	AgeOnDate int             `json:"age_on_date"`
	SchoolDay bool            `json:"school_day"`
	Limits    HourLimits      `json:"-"`
	Hours     decimal.Decimal `json:"hours"`

	CurrentDailyHours    decimal.Decimal `json:"current_daily_hours"`
	CurrentWeeklyHours   decimal.Decimal `json:"current_weekly_hours"`
	ProjectedDailyHours  decimal.Decimal `json:"projected_daily_hours"`
	ProjectedWeeklyHours decimal.Decimal `json:"projected_weekly_hours"`

	// Remaining hours under the resolved ceilings after the proposal; nil
	// when unrestricted.
	RemainingDailyHours  *decimal.Decimal `json:"remaining_daily_hours,omitempty"`
	RemainingWeeklyHours *decimal.Decimal `json:"remaining_weekly_hours,omitempty"`

	Violations   []Finding `json:"violations"`
	Warnings     []Finding `json:"warnings"`
	Requirements []Finding `json:"requirements"`
}

// =============================================================================
// SHARED PROJECTION - Both calling conventions run through here
// =============================================================================

type entryProjection struct {
	age       int
	task      TaskCode
	hours     decimal.Decimal
	schoolDay bool

	currentDaily    decimal.Decimal
	currentWeekly   decimal.Decimal
	projectedDaily  decimal.Decimal
	projectedWeekly decimal.Decimal

	limits      HourLimits
	dailyLimit  *decimal.Decimal
	weeklyLimit *decimal.Decimal
}

// projectEntry validates the proposal's inputs and computes projected
// totals and resolved limits. Input validation errors only; business
// findings are left to the caller.
func projectEntry(c *Context, p EntryProposal) (*entryProjection, error) {
	if p.End <= p.Start {
		return nil, &ValidationError{
			ErrCode: CodeInvalidTimeRange,
			Message: fmt.Sprintf("end time %s must be after start time %s", p.End, p.Start),
		}
	}
	if !calendar.InWeek(p.WorkDate, c.Timesheet.WeekStart) {
		return nil, &ValidationError{
			ErrCode: CodeDateOutsideWeek,
			Message: fmt.Sprintf("work date %s is outside the timesheet week %s - %s",
				p.WorkDate, c.Timesheet.WeekStart, c.Timesheet.WeekEnd()),
		}
	}
	task, ok := c.Tasks[p.TaskCode]
	if !ok {
		return nil, &NotFoundError{Kind: "task code", ID: p.TaskCode}
	}

	hours, err := ComputeHours(p.Start, p.End)
	if err != nil {
		return nil, &ValidationError{ErrCode: CodeInvalidTimeRange, Message: err.Error()}
	}

	proj := &entryProjection{
		age:   c.AgeOn(p.WorkDate),
		task:  task,
		hours: hours,
	}

	proj.schoolDay = c.IsSchoolDay(p.WorkDate)
	if p.SchoolDay != nil {
		proj.schoolDay = *p.SchoolDay
	}

	// Current totals, excluding the entry being replaced on edits.
	var replaced decimal.Decimal
	var replacedSameDay decimal.Decimal
	if p.ReplacesEntryID != "" {
		for _, e := range c.Entries {
			if e.ID == p.ReplacesEntryID {
				replaced = e.Hours
				if e.WorkDate.Equal(p.WorkDate) {
					replacedSameDay = e.Hours
				}
				break
			}
		}
	}

	daily, ok := c.DailyHours[p.WorkDate]
	if !ok {
		daily = decimal.Zero
	}
	proj.currentDaily = daily.Sub(replacedSameDay)
	proj.currentWeekly = c.WeeklyHours.Sub(replaced)
	proj.projectedDaily = proj.currentDaily.Add(hours)
	proj.projectedWeekly = proj.currentWeekly.Add(hours)

	proj.limits = LimitsForAge(proj.age)
	proj.dailyLimit = proj.limits.ResolveDaily(proj.schoolDay)

	schoolWeek := proj.schoolDay || c.AnySchoolDay()
	proj.weeklyLimit = WeekCeiling(c.Ages, schoolWeek)

	return proj, nil
}

// =============================================================================
// PREVIEWER - Data-returning convention
// =============================================================================

type Previewer struct{}

// Preview computes the compliance report for a proposal. Never fails for
// business findings.
func (Previewer) Preview(c *Context, p EntryProposal) (*EntryCompliancePreview, error) {
	proj, err := projectEntry(c, p)
	if err != nil {
		return nil, err
	}

	report := &EntryCompliancePreview{
		AgeOnDate:            proj.age,
		SchoolDay:            proj.schoolDay,
		Limits:               proj.limits,
		Hours:                proj.hours,
		CurrentDailyHours:    proj.currentDaily,
		CurrentWeeklyHours:   proj.currentWeekly,
		ProjectedDailyHours:  proj.projectedDaily,
		ProjectedWeeklyHours: proj.projectedWeekly,
		Violations:           []Finding{},
		Warnings:             []Finding{},
		Requirements:         []Finding{},
	}

	// Findings are appended in a fixed order so identical inputs always
	// produce byte-identical reports.
	if limit := proj.dailyLimit; limit != nil {
		remaining := limit.Sub(proj.projectedDaily)
		report.RemainingDailyHours = &remaining
		if proj.projectedDaily.GreaterThan(*limit) {
			report.Violations = append(report.Violations, Finding{
				Code: ViolationHourLimitDaily,
				Message: fmt.Sprintf("projected %sh on %s exceeds the %sh daily limit",
					proj.projectedDaily, p.WorkDate, limit),
				Details: hourDetails(proj.currentDaily, proj.hours, proj.projectedDaily, *limit),
			})
		} else if reachesThreshold(proj.projectedDaily, *limit) {
			report.Warnings = append(report.Warnings, Finding{
				Code: WarningDailyApproaching,
				Message: fmt.Sprintf("projected %sh on %s is at or above 80%% of the %sh daily limit",
					proj.projectedDaily, p.WorkDate, limit),
				Details: hourDetails(proj.currentDaily, proj.hours, proj.projectedDaily, *limit),
			})
		}
	}

	if limit := proj.weeklyLimit; limit != nil {
		remaining := limit.Sub(proj.projectedWeekly)
		report.RemainingWeeklyHours = &remaining
		if proj.projectedWeekly.GreaterThan(*limit) {
			report.Violations = append(report.Violations, Finding{
				Code: ViolationHourLimitWeekly,
				Message: fmt.Sprintf("projected %sh this week exceeds the %sh weekly limit",
					proj.projectedWeekly, limit),
				Details: hourDetails(proj.currentWeekly, proj.hours, proj.projectedWeekly, *limit),
			})
		} else if reachesThreshold(proj.projectedWeekly, *limit) {
			report.Warnings = append(report.Warnings, Finding{
				Code: WarningWeeklyApproaching,
				Message: fmt.Sprintf("projected %sh this week is at or above 80%% of the %sh weekly limit",
					proj.projectedWeekly, limit),
				Details: hourDetails(proj.currentWeekly, proj.hours, proj.projectedWeekly, *limit),
			})
		}
	}

	minor := calendar.IsMinor(proj.age)

	if minor && proj.schoolDay && calendar.RangesOverlap(p.Start, p.End, SchoolHoursStart, SchoolHoursEnd) {
		report.Violations = append(report.Violations, Finding{
			Code: ViolationSchoolHours,
			Message: fmt.Sprintf("shift %s-%s overlaps school hours %s-%s on a school day",
				p.Start, p.End, SchoolHoursStart, SchoolHoursEnd),
		})
	}

	if proj.age < proj.task.MinimumAge {
		report.Violations = append(report.Violations, Finding{
			Code: ViolationTaskAge,
			Message: fmt.Sprintf("task %s requires minimum age %d; employee is %d on %s",
				proj.task.Code, proj.task.MinimumAge, proj.age, p.WorkDate),
			Details: map[string]any{
				"task":        proj.task.Code,
				"minimum_age": proj.task.MinimumAge,
				"age":         proj.age,
			},
		})
	}

	if proj.task.Hazardous && minor {
		report.Violations = append(report.Violations, Finding{
			Code: ViolationHazardousTask,
			Message: fmt.Sprintf("task %s is classified hazardous and is forbidden to workers under 18",
				proj.task.Code),
			Details: map[string]any{"task": proj.task.Code, "age": proj.age},
		})
	}

	if proj.task.Supervision == SupervisionAlways || (proj.task.Supervision == SupervisionMinors && minor) {
		report.Requirements = append(report.Requirements, Finding{
			Code:    RequirementSupervisor,
			Message: fmt.Sprintf("task %s requires a supervisor present", proj.task.Code),
		})
	}

	if minor && proj.hours.GreaterThan(mealBreakThresholdHours) {
		report.Requirements = append(report.Requirements, Finding{
			Code:    RequirementMealBreak,
			Message: fmt.Sprintf("shift of %sh exceeds 6h; confirm a meal break for a minor", proj.hours),
		})
	}

	report.Valid = len(report.Violations) == 0
	return report, nil
}

// reachesThreshold: projected is within the limit but at or above 80% of it.
func reachesThreshold(projected, limit decimal.Decimal) bool {
	return !projected.GreaterThan(limit) && projected.GreaterThanOrEqual(limit.Mul(approachRatio))
}

func hourDetails(current, entry, projected, limit decimal.Decimal) map[string]any {
	return map[string]any{
		"current_hours":   current.String(),
		"entry_hours":     entry.String(),
		"projected_hours": projected.String(),
		"limit":           limit.String(),
	}
}

// =============================================================================
// HARD GATE - Throwing convention for mutations
// =============================================================================

// CheckEntryHourLimits performs the same hour-limit computation as Preview
// but fails hard: a typed error citing current/entry/projected hours and
// the applicable limit. Mutating operations call this; they never clamp.
func CheckEntryHourLimits(c *Context, p EntryProposal) error {
	age := c.AgeOn(p.WorkDate)
	if age < calendar.MinimumEmploymentAge {
		return &BelowMinimumAgeError{EmployeeID: c.Employee.ID, Age: age, WorkDate: p.WorkDate}
	}

	proj, err := projectEntry(c, p)
	if err != nil {
		return err
	}

	if limit := proj.dailyLimit; limit != nil && proj.projectedDaily.GreaterThan(*limit) {
		return &HourLimitError{
			Scope:     "daily",
			Date:      p.WorkDate,
			Current:   proj.currentDaily,
			Entry:     proj.hours,
			Projected: proj.projectedDaily,
			Limit:     *limit,
		}
	}
	if limit := proj.weeklyLimit; limit != nil && proj.projectedWeekly.GreaterThan(*limit) {
		return &HourLimitError{
			Scope:     "weekly",
			Date:      p.WorkDate,
			Current:   proj.currentWeekly,
			Entry:     proj.hours,
			Projected: proj.projectedWeekly,
			Limit:     *limit,
		}
	}
	return nil
}
