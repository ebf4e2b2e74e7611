/*
hourlimits.go - Hour-limit policy per age band

PURPOSE:
  Maps an age to the applicable daily/weekly hour ceilings. This is the pure
  policy table behind both the entry preview and the submission-time hour
  rules; both must resolve limits through the same functions.

THE TABLE:
  Band    Daily   Daily(school)  Weekly  Weekly(school wk)  Days/week
  12-13   4h      -              24h     -                  -
  14-15   8h      3h             40h     18h                -
  16-17   9h      -              48h     -                  6
  18+     unrestricted

RESOLUTION:
  Per day:  school-day limit only if the band defines one AND the day is
            flagged a school day; otherwise the non-school limit.
  Per week: school-week limit only if the band defines one AND at least one
            day of the week (existing or proposed) is a school day.

A nil ceiling means unrestricted.
*/
package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/orchard/compliance-engine/calendar"
)

// School hours window. Minors may not work shifts overlapping this window
// on a day flagged as a school day.
var (
	SchoolHoursStart = calendar.MustParseClock("07:00")
	SchoolHoursEnd   = calendar.MustParseClock("15:00")
)

// HourLimits is the set of ceilings applicable to one age.
type HourLimits struct {
	Band             calendar.AgeBand
	Daily            *decimal.Decimal
	DailySchoolDay   *decimal.Decimal
	Weekly           *decimal.Decimal
	WeeklySchoolWeek *decimal.Decimal
	DaysPerWeek      *int
}

func hoursPtr(h int64) *decimal.Decimal {
	d := decimal.NewFromInt(h)
	return &d
}

func intPtr(n int) *int { return &n }

// LimitsForAge returns the hour ceilings for an age. Ages below the minimum
// employment age get the most restrictive (12-13) table; callers gate the
// minimum age separately (RULE-001, entry services).
func LimitsForAge(age int) HourLimits {
	switch {
	case age <= 13:
		return HourLimits{
			Band:   calendar.Band12To13,
			Daily:  hoursPtr(4),
			Weekly: hoursPtr(24),
		}
	case age <= 15:
		return HourLimits{
			Band:             calendar.Band14To15,
			Daily:            hoursPtr(8),
			DailySchoolDay:   hoursPtr(3),
			Weekly:           hoursPtr(40),
			WeeklySchoolWeek: hoursPtr(18),
		}
	case age <= 17:
		return HourLimits{
			Band:        calendar.Band16To17,
			Daily:       hoursPtr(9),
			Weekly:      hoursPtr(48),
			DaysPerWeek: intPtr(6),
		}
	default:
		return HourLimits{Band: calendar.BandAdult}
	}
}

// Unrestricted reports whether no ceiling applies at all (18+).
func (l HourLimits) Unrestricted() bool {
	return l.Daily == nil && l.Weekly == nil && l.DaysPerWeek == nil
}

// ResolveDaily returns the daily ceiling for a day, or nil if unrestricted.
func (l HourLimits) ResolveDaily(schoolDay bool) *decimal.Decimal {
	if schoolDay && l.DailySchoolDay != nil {
		return l.DailySchoolDay
	}
	return l.Daily
}

// ResolveWeekly returns the weekly ceiling, or nil if unrestricted.
func (l HourLimits) ResolveWeekly(schoolWeek bool) *decimal.Decimal {
	if schoolWeek && l.WeeklySchoolWeek != nil {
		return l.WeeklySchoolWeek
	}
	return l.Weekly
}

// WeekCeiling resolves the weekly ceiling for a week that may span two age
// bands (birthday week): the most restrictive ceiling among the bands the
// employee occupies wins. Returns nil when every occupied band is
// unrestricted. Both the submission rule and the preview use this, so the
// two paths agree on identical inputs.
func WeekCeiling(agesByDay [7]int, schoolWeek bool) *decimal.Decimal {
	var ceiling *decimal.Decimal
	for _, age := range agesByDay {
		limit := LimitsForAge(age).ResolveWeekly(schoolWeek)
		if limit == nil {
			continue
		}
		if ceiling == nil || limit.LessThan(*ceiling) {
			v := *limit
			ceiling = &v
		}
	}
	return ceiling
}
