/*
engine.go - Rule filtering and evaluation

PURPOSE:
  Runs the applicable subset of a RuleSet against one Context and returns
  structured CheckRecords, one per evaluated rule (including
  not-applicable), in stable rule-ID order. The engine itself never writes;
  the submission service persists the records atomically with the gate.

APPLICABILITY:
  A rule with a non-empty AppliesTo set is applicable iff that set
  intersects the UNION of age bands the employee occupies on any day of the
  week - never merely the band on the reference date. In a birthday week,
  rules for both the pre- and post-birthday bands are evaluated.
*/
package compliance

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// FilterApplicable returns the rules whose band scope intersects the bands
// occupied during the context's week. Empty AppliesTo means always
// applicable.
func FilterApplicable(rules []Rule, c *Context) []Rule {
	var out []Rule
	for _, r := range rules {
		if len(r.AppliesTo) == 0 {
			out = append(out, r)
			continue
		}
		for _, band := range r.AppliesTo {
			if c.HasBand(band) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Engine evaluates rule sets against contexts.
type Engine struct {
	Rules *RuleSet

	// Now is injectable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func NewEngine(rules *RuleSet) *Engine {
	return &Engine{Rules: rules, Now: time.Now}
}

// Evaluate runs every applicable rule and returns one record per rule.
// Each rule is a pure function of the same immutable context, so evaluation
// order cannot matter; records are returned sorted by rule ID so the audit
// log ordering is stable regardless.
func (e *Engine) Evaluate(c *Context) []CheckRecord {
	now := e.Now()
	if now.IsZero() {
		now = time.Now()
	}
	ageOnCheck := c.Employee.AgeOn(c.CheckDate)

	applicable := FilterApplicable(e.Rules.Rules(), c)
	records := make([]CheckRecord, 0, len(applicable))
	for _, rule := range applicable {
		outcome := rule.Evaluate(c)
		records = append(records, CheckRecord{
			ID:             uuid.NewString(),
			EmployeeID:     c.Employee.ID,
			TimesheetID:    c.Timesheet.ID,
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			Result:         outcome.Result,
			Details:        outcome.Details,
			AgeOnCheckDate: ageOnCheck,
			CheckDate:      c.CheckDate,
			CheckedAt:      now,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].RuleID < records[j].RuleID })
	return records
}

// AnyFailure reports whether any record failed. The submission orchestrator
// uses this to decide whether the status transition is blocked.
func AnyFailure(records []CheckRecord) bool {
	for _, r := range records {
		if r.Result == ResultFail {
			return true
		}
	}
	return false
}

// Failures returns only the failing records.
func Failures(records []CheckRecord) []CheckRecord {
	var out []CheckRecord
	for _, r := range records {
		if r.Result == ResultFail {
			out = append(out, r)
		}
	}
	return out
}
