/*
rules.go - The statutory rule catalog

PURPOSE:
  Defines compliance rules as data: an ID, a name, the age bands the rule
  applies to, and a pure evaluation function over the Context. Rule IDs
  (RULE-001 ...) are externally stable identifiers referenced by audit
  filters and must never be renumbered.

RULE SET, NOT REGISTRY:
  The rule set is an explicit value constructed once and passed by
  dependency injection - there is no module-level mutable registry. Tests
  get isolation by constructing a fresh RuleSet instead of clearing shared
  state.

OUTCOMES ARE DATA:
  Every rule evaluates to exactly one of pass / fail / not_applicable with a
  details payload. A failing rule is not an error; only the submission
  orchestrator decides that any fail blocks the status transition.
*/
package compliance

import (
	"fmt"
	"sort"

	"github.com/orchard/compliance-engine/calendar"
)

// =============================================================================
// RESULTS
// =============================================================================

type Result string

const (
	ResultPass          Result = "pass"
	ResultFail          Result = "fail"
	ResultNotApplicable Result = "not_applicable"
)

// Outcome is one rule's verdict plus its reporting payload. Details stays a
// generic key/value map for audit-report compatibility.
type Outcome struct {
	Result  Result
	Details map[string]any
}

func Pass(details map[string]any) Outcome { return Outcome{Result: ResultPass, Details: details} }
func Fail(details map[string]any) Outcome { return Outcome{Result: ResultFail, Details: details} }
func NotApplicable(reason string) Outcome {
	return Outcome{Result: ResultNotApplicable, Details: map[string]any{"reason": reason}}
}

// =============================================================================
// RULE
// =============================================================================

type RuleCategory string

const (
	CategoryAge           RuleCategory = "age"
	CategoryDocumentation RuleCategory = "documentation"
	CategoryHours         RuleCategory = "hours"
	CategoryTask          RuleCategory = "task"
)

// Rule is a named, age-band-scoped predicate over the context snapshot.
// Empty AppliesTo means the rule applies to every band.
type Rule struct {
	ID        string
	Name      string
	Category  RuleCategory
	AppliesTo []calendar.AgeBand
	Evaluate  func(c *Context) Outcome
}

// =============================================================================
// RULE SET - Explicit value, no global state
// =============================================================================

type RuleSet struct {
	rules []Rule
	byID  map[string]Rule
}

func NewRuleSet() *RuleSet {
	return &RuleSet{byID: make(map[string]Rule)}
}

// Register adds a rule. Duplicate IDs are rejected - rule IDs are external
// contract.
func (rs *RuleSet) Register(r Rule) error {
	if r.ID == "" || r.Evaluate == nil {
		return fmt.Errorf("rule must have an ID and an Evaluate function")
	}
	if _, exists := rs.byID[r.ID]; exists {
		return fmt.Errorf("duplicate rule id %s", r.ID)
	}
	rs.byID[r.ID] = r
	rs.rules = append(rs.rules, r)
	return nil
}

// Rules returns the rules sorted by ID.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (rs *RuleSet) Get(id string) (Rule, bool) {
	r, ok := rs.byID[id]
	return r, ok
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

// =============================================================================
// CATALOG
// =============================================================================

var minorBands = []calendar.AgeBand{calendar.Band12To13, calendar.Band14To15, calendar.Band16To17}
var permitBands = []calendar.AgeBand{calendar.Band14To15, calendar.Band16To17}

// DefaultRuleSet constructs the fixed statutory catalog.
func DefaultRuleSet() *RuleSet {
	rs := NewRuleSet()
	for _, r := range []Rule{
		minimumEmploymentAgeRule(),
		parentalConsentRequiredRule(),
		parentalConsentNotRevokedRule(),
		workPermitRequiredRule(),
		workPermitNotExpiredRule(),
		safetyTrainingRequiredRule(),
		dailyHourLimitRule(),
		weeklyHourLimitRule(),
		schoolHoursRule(),
		weeklyDayCapRule(),
		hazardousTaskRule(),
		taskMinimumAgeRule(),
	} {
		if err := rs.Register(r); err != nil {
			panic(err) // catalog is static; a duplicate is a programming error
		}
	}
	return rs
}

// RULE-001: No work below the minimum employment age on any day of the week.
func minimumEmploymentAgeRule() Rule {
	return Rule{
		ID:       "RULE-001",
		Name:     "Minimum employment age",
		Category: CategoryAge,
		Evaluate: func(c *Context) Outcome {
			min := c.MinWeeklyAge()
			if min < calendar.MinimumEmploymentAge {
				return Fail(map[string]any{
					"message":     fmt.Sprintf("employee is %d during the week, below minimum employment age %d", min, calendar.MinimumEmploymentAge),
					"age":         min,
					"minimum_age": calendar.MinimumEmploymentAge,
				})
			}
			return Pass(map[string]any{"age": min})
		},
	}
}

// RULE-002: Minors need a non-invalidated parental consent on file.
func parentalConsentRequiredRule() Rule {
	return Rule{
		ID:        "RULE-002",
		Name:      "Parental consent required",
		Category:  CategoryDocumentation,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			if !c.HasMinorBand() {
				return NotApplicable("employee is 18 or older all week")
			}
			if doc := LatestValidDocument(c.Documents, DocParentalConsent); doc != nil {
				return Pass(map[string]any{"document_id": string(doc.ID)})
			}
			return Fail(map[string]any{
				"message": "no valid parental consent on file for a minor",
			})
		},
	}
}

// RULE-003: A revoked consent must have a later non-invalidated replacement.
func parentalConsentNotRevokedRule() Rule {
	return Rule{
		ID:        "RULE-003",
		Name:      "Parental consent not revoked",
		Category:  CategoryDocumentation,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			if !c.HasMinorBand() {
				return NotApplicable("employee is 18 or older all week")
			}
			revoked := LatestInvalidatedDocument(c.Documents, DocParentalConsent)
			if revoked == nil {
				return Pass(map[string]any{"message": "no consent revocation on record"})
			}
			// Only a consent issued after the revoked one counts as a
			// replacement; an earlier consent that happens to survive does
			// not restore permission the parent withdrew.
			doc := LatestValidDocument(c.Documents, DocParentalConsent)
			if doc != nil && doc.IssuedAt.After(revoked.IssuedAt) {
				return Pass(map[string]any{
					"message":     "revoked consent replaced by a later valid consent",
					"document_id": string(doc.ID),
				})
			}
			return Fail(map[string]any{
				"message": "parental consent was revoked and not replaced",
			})
		},
	}
}

// RULE-004: 14-17 year olds need a non-invalidated work permit.
func workPermitRequiredRule() Rule {
	return Rule{
		ID:        "RULE-004",
		Name:      "Work permit required",
		Category:  CategoryDocumentation,
		AppliesTo: permitBands,
		Evaluate: func(c *Context) Outcome {
			if !c.HasBand(calendar.Band14To15) && !c.HasBand(calendar.Band16To17) {
				return NotApplicable("work permits apply to ages 14-17 only")
			}
			if doc := LatestValidDocument(c.Documents, DocWorkPermit); doc != nil {
				return Pass(map[string]any{"document_id": string(doc.ID)})
			}
			return Fail(map[string]any{
				"message": "no valid work permit on file",
			})
		},
	}
}

// RULE-005: A permit on file must not be expired as of the check date.
func workPermitNotExpiredRule() Rule {
	return Rule{
		ID:        "RULE-005",
		Name:      "Work permit not expired",
		Category:  CategoryDocumentation,
		AppliesTo: permitBands,
		Evaluate: func(c *Context) Outcome {
			permit := LatestValidDocument(c.Documents, DocWorkPermit)
			if permit == nil {
				return NotApplicable("no work permit on file")
			}
			if permit.ExpiresOn == nil || permit.ExpiresOn.AfterOrEqual(c.CheckDate) {
				return Pass(map[string]any{"document_id": string(permit.ID)})
			}
			return Fail(map[string]any{
				"message":     fmt.Sprintf("work permit expired on %s", permit.ExpiresOn),
				"document_id": string(permit.ID),
				"expires_on":  permit.ExpiresOn.String(),
			})
		},
	}
}

// RULE-006: Minors need a non-invalidated safety training record.
func safetyTrainingRequiredRule() Rule {
	return Rule{
		ID:        "RULE-006",
		Name:      "Safety training required",
		Category:  CategoryDocumentation,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			if !c.HasMinorBand() {
				return NotApplicable("employee is 18 or older all week")
			}
			if doc := LatestValidDocument(c.Documents, DocSafetyTraining); doc != nil {
				return Pass(map[string]any{"document_id": string(doc.ID)})
			}
			return Fail(map[string]any{
				"message": "no valid safety training record on file",
			})
		},
	}
}

// RULE-007: Logged entries must respect the resolved daily ceilings,
// re-checked per day with that day's age and school flag.
func dailyHourLimitRule() Rule {
	return Rule{
		ID:        "RULE-007",
		Name:      "Daily hour limit",
		Category:  CategoryHours,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			var overages []map[string]any
			for date, total := range c.DailyHours {
				age := c.AgeOn(date)
				limit := LimitsForAge(age).ResolveDaily(c.IsSchoolDay(date))
				if limit != nil && total.GreaterThan(*limit) {
					overages = append(overages, map[string]any{
						"date":  date.String(),
						"hours": total.String(),
						"limit": limit.String(),
					})
				}
			}
			if len(overages) > 0 {
				sort.Slice(overages, func(i, j int) bool {
					return overages[i]["date"].(string) < overages[j]["date"].(string)
				})
				return Fail(map[string]any{
					"message": "daily hour limit exceeded",
					"days":    overages,
				})
			}
			return Pass(nil)
		},
	}
}

// RULE-008: The weekly total must respect the week ceiling; in a birthday
// week the most restrictive occupied band wins.
func weeklyHourLimitRule() Rule {
	return Rule{
		ID:        "RULE-008",
		Name:      "Weekly hour limit",
		Category:  CategoryHours,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			limit := WeekCeiling(c.Ages, c.AnySchoolDay())
			if limit == nil {
				return NotApplicable("no weekly ceiling for the occupied bands")
			}
			if c.WeeklyHours.GreaterThan(*limit) {
				return Fail(map[string]any{
					"message": "weekly hour limit exceeded",
					"hours":   c.WeeklyHours.String(),
					"limit":   limit.String(),
				})
			}
			return Pass(map[string]any{
				"hours": c.WeeklyHours.String(),
				"limit": limit.String(),
			})
		},
	}
}

// RULE-009: Minors may not work during school hours on a school day.
func schoolHoursRule() Rule {
	return Rule{
		ID:        "RULE-009",
		Name:      "No work during school hours",
		Category:  CategoryHours,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			var conflicts []map[string]any
			for _, e := range c.Entries {
				if !calendar.IsMinor(c.AgeOn(e.WorkDate)) || !c.IsSchoolDay(e.WorkDate) {
					continue
				}
				if calendar.RangesOverlap(e.Start, e.End, SchoolHoursStart, SchoolHoursEnd) {
					conflicts = append(conflicts, map[string]any{
						"date":  e.WorkDate.String(),
						"start": e.Start.String(),
						"end":   e.End.String(),
					})
				}
			}
			if len(conflicts) > 0 {
				sort.Slice(conflicts, func(i, j int) bool {
					return conflicts[i]["date"].(string) < conflicts[j]["date"].(string)
				})
				return Fail(map[string]any{
					"message": fmt.Sprintf("work scheduled during school hours (%s-%s)", SchoolHoursStart, SchoolHoursEnd),
					"entries": conflicts,
				})
			}
			return Pass(nil)
		},
	}
}

// RULE-010: 16-17 year olds may work at most 6 days per week.
func weeklyDayCapRule() Rule {
	return Rule{
		ID:        "RULE-010",
		Name:      "Days worked per week cap",
		Category:  CategoryHours,
		AppliesTo: []calendar.AgeBand{calendar.Band16To17},
		Evaluate: func(c *Context) Outcome {
			if !c.HasBand(calendar.Band16To17) {
				return NotApplicable("day cap applies to ages 16-17 only")
			}
			cap := LimitsForAge(16).DaysPerWeek
			days := len(DistinctWorkDates(c.Entries))
			if days > *cap {
				return Fail(map[string]any{
					"message":     fmt.Sprintf("worked %d days, cap is %d", days, *cap),
					"days_worked": days,
					"limit":       *cap,
				})
			}
			return Pass(map[string]any{"days_worked": days, "limit": *cap})
		},
	}
}

// RULE-011: Hazardous tasks are forbidden to all workers under 18,
// regardless of documents.
func hazardousTaskRule() Rule {
	return Rule{
		ID:        "RULE-011",
		Name:      "Hazardous task prohibition for minors",
		Category:  CategoryTask,
		AppliesTo: minorBands,
		Evaluate: func(c *Context) Outcome {
			var hits []map[string]any
			for _, e := range c.Entries {
				task, ok := c.Tasks[e.TaskCode]
				if !ok || !task.Hazardous {
					continue
				}
				if calendar.IsMinor(c.AgeOn(e.WorkDate)) {
					hits = append(hits, map[string]any{
						"date": e.WorkDate.String(),
						"task": task.Code,
					})
				}
			}
			if len(hits) > 0 {
				sort.Slice(hits, func(i, j int) bool {
					return hits[i]["date"].(string) < hits[j]["date"].(string)
				})
				return Fail(map[string]any{
					"message": "hazardous task assigned to a minor",
					"entries": hits,
				})
			}
			return Pass(nil)
		},
	}
}

// RULE-012: Every entry must meet the task's minimum age on the work date.
func taskMinimumAgeRule() Rule {
	return Rule{
		ID:       "RULE-012",
		Name:     "Task minimum age",
		Category: CategoryTask,
		Evaluate: func(c *Context) Outcome {
			var hits []map[string]any
			for _, e := range c.Entries {
				task, ok := c.Tasks[e.TaskCode]
				if !ok {
					continue
				}
				if age := c.AgeOn(e.WorkDate); age < task.MinimumAge {
					hits = append(hits, map[string]any{
						"date":        e.WorkDate.String(),
						"task":        task.Code,
						"age":         age,
						"minimum_age": task.MinimumAge,
					})
				}
			}
			if len(hits) > 0 {
				sort.Slice(hits, func(i, j int) bool {
					return hits[i]["date"].(string) < hits[j]["date"].(string)
				})
				return Fail(map[string]any{
					"message": "task minimum age not met",
					"entries": hits,
				})
			}
			return Pass(nil)
		},
	}
}
