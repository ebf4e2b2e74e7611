/*
Package calendar provides the date arithmetic underneath minor-labor
compliance.

PURPOSE:
  Every legal threshold in this system keys off the calendar: how old a
  worker is on a given date, which age band that age falls into, and whether
  a date is a school day. This package keeps all of that as pure functions
  over a civil-date value so the compliance engine can be evaluated
  deterministically and replayed.

KEY CONCEPTS:
  - Date: a civil date (UTC midnight, day granularity)
  - AgeOnDate: integer age with the exact month/day boundary adjustment
  - AgeBand: the four statutory groupings (12-13, 14-15, 16-17, 18+)
  - WeeklyAges: per-day ages across a timesheet week; a mid-week birthday
    yields two different ages inside one week
  - ClockTime: minutes-since-midnight for shift start/end
  - SchoolCalendar: default source of the school-day flag

AGE BOUNDARY:
  AgeOnDate subtracts one year when the reference (month, day) precedes the
  birth (month, day). A February-29 birth date needs no special casing: in a
  non-leap year the comparison lands the birthday on or after March 1, which
  matches how the statute treats the anniversary.

SEE ALSO:
  - compliance/context.go: builds the per-day age maps from these functions
  - compliance/hourlimits.go: maps ages to hour ceilings
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date (day granularity, UTC)
// =============================================================================

// Date is a civil date. The zero value is the zero time.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates a time to its UTC civil date.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date { return FromTime(time.Now()) }

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is for tests and static seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int            { return d.t.Year() }
func (d Date) Month() time.Month    { return d.t.Month() }
func (d Date) Day() int             { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Time() time.Time      { return d.t }
func (d Date) IsZero() bool         { return d.t.IsZero() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// WeekStartOf returns the Sunday on or before d. Timesheet weeks always run
// Sunday through Saturday.
func WeekStartOf(d Date) Date {
	return d.AddDays(-int(d.Weekday()))
}

// InWeek reports whether d falls within the 7-day window starting at weekStart.
func InWeek(d, weekStart Date) bool {
	return d.AfterOrEqual(weekStart) && d.Before(weekStart.AddDays(7))
}

// =============================================================================
// AGE ARITHMETIC
// =============================================================================

// AgeOnDate returns the whole-year age of someone born dob as of asOf.
// The year difference is reduced by one when asOf's (month, day) precedes
// dob's (month, day).
func AgeOnDate(dob, asOf Date) int {
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}

// WeeklyAges returns the age on each of the 7 dates from weekStart through
// weekStart+6. Index 0 is weekStart itself.
func WeeklyAges(dob, weekStart Date) [7]int {
	var ages [7]int
	for i := 0; i < 7; i++ {
		ages[i] = AgeOnDate(dob, weekStart.AddDays(i))
	}
	return ages
}

// BirthdayInWeek reports whether the month/day anniversary of dob falls
// within the 7-day window starting at weekStart. Handles windows that span a
// year boundary (e.g. Dec 29 - Jan 4).
func BirthdayInWeek(dob, weekStart Date) bool {
	for i := 0; i < 7; i++ {
		d := weekStart.AddDays(i)
		if d.Month() == dob.Month() && d.Day() == dob.Day() {
			return true
		}
	}
	return false
}

// =============================================================================
// AGE BANDS
// =============================================================================

// AgeBand is one of the four statutory age groupings. Undefined below 12.
type AgeBand string

const (
	Band12To13 AgeBand = "12-13"
	Band14To15 AgeBand = "14-15"
	Band16To17 AgeBand = "16-17"
	BandAdult  AgeBand = "18+"
)

// MinimumEmploymentAge is the floor below which no band is defined and no
// work entry is legal.
const MinimumEmploymentAge = 12

// ErrBelowMinimumAge is wrapped by BandForAge for ages under 12.
type ErrBelowMinimumAge struct {
	Age int
}

func (e *ErrBelowMinimumAge) Error() string {
	return fmt.Sprintf("age %d is below minimum employment age %d", e.Age, MinimumEmploymentAge)
}

// BandForAge maps an age to its band. Total and monotonic for age >= 12.
func BandForAge(age int) (AgeBand, error) {
	switch {
	case age < MinimumEmploymentAge:
		return "", &ErrBelowMinimumAge{Age: age}
	case age <= 13:
		return Band12To13, nil
	case age <= 15:
		return Band14To15, nil
	case age <= 17:
		return Band16To17, nil
	default:
		return BandAdult, nil
	}
}

// IsMinor reports whether an age is under 18.
func IsMinor(age int) bool { return age < 18 }

// WeeklyBands returns the band on each day of the week. Days below the
// minimum employment age are reported as the empty band.
func WeeklyBands(dob, weekStart Date) [7]AgeBand {
	var bands [7]AgeBand
	ages := WeeklyAges(dob, weekStart)
	for i, age := range ages {
		band, err := BandForAge(age)
		if err != nil {
			continue // stays empty
		}
		bands[i] = band
	}
	return bands
}

// =============================================================================
// CLOCK TIME - Minutes since midnight
// =============================================================================

// ClockTime is a time of day in minutes since midnight [0, 1440).
type ClockTime int

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q (use HH:MM): %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Minutes returns the raw minute count.
func (c ClockTime) Minutes() int { return int(c) }

// RangesOverlap reports whether [aStart, aEnd) overlaps [bStart, bEnd).
func RangesOverlap(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}

// =============================================================================
// SCHOOL CALENDAR - Default source of the school-day flag
// =============================================================================

// SchoolCalendar answers whether a date is a school day. Entry-level
// overrides take precedence over the calendar default.
type SchoolCalendar interface {
	IsSchoolDay(d Date) bool
}

// Term is an inclusive date range during which school is in session.
type Term struct {
	Start Date
	End   Date
}

// TermCalendar flags weekdays inside any configured term as school days.
type TermCalendar struct {
	Terms []Term
}

func (tc *TermCalendar) IsSchoolDay(d Date) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, term := range tc.Terms {
		if d.AfterOrEqual(term.Start) && d.BeforeOrEqual(term.End) {
			return true
		}
	}
	return false
}

// NoSchoolCalendar is the no-op calendar for when terms are not configured;
// every date defaults to non-school (summer-season employer default).
type NoSchoolCalendar struct{}

func (NoSchoolCalendar) IsSchoolDay(Date) bool { return false }
