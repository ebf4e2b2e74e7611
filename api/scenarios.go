/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees, documents,
	the task catalog, and timesheet entries that demonstrate specific
	compliance behavior.

AVAILABLE SCENARIOS:

	summer-harvest:    Crew across all age bands, full documents, clean week
	missing-documents: Minor with no permit and revoked consent (gate fails)
	permit-expiring:   Permit inside the expiry-warning window

HOW SCENARIOS WORK:
 1. Reset database (clear all data) when the store supports it
 2. Seed the task catalog
 3. Create employees and documents
 4. Open the current week and add entries through the entry service,
    so every seeded shift passed the same gate real shifts do

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "summer-harvest"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/tasks.go: The default task catalog
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
	"github.com/orchard/compliance-engine/timesheet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "summer-harvest",
		Name:        "Summer Harvest Crew",
		Description: "Employees in every age band with full documents and a compliant week",
	},
	{
		ID:          "missing-documents",
		Name:        "Missing Documents",
		Description: "A 15-year-old with no work permit and revoked parental consent",
	},
	{
		ID:          "permit-expiring",
		Name:        "Permit Expiring",
		Description: "A 16-year-old whose work permit expires within the warning window",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.resetStore(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "summer-harvest":
		err = h.loadSummerHarvest(ctx)
	case "missing-documents":
		err = h.loadMissingDocuments(ctx)
	case "permit-expiring":
		err = h.loadPermitExpiring(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	if h.Watcher != nil {
		h.Watcher.Scan(ctx)
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// resetter is implemented by stores that can wipe all data.
type resetter interface {
	Reset(ctx context.Context) error
}

func (h *Handler) resetStore(ctx context.Context) error {
	if r, ok := h.Store.(resetter); ok {
		return r.Reset(ctx)
	}
	return nil
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) seedCatalog(ctx context.Context) error {
	for _, task := range h.TaskFactory.DefaultCatalog() {
		if err := h.Store.SaveTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) seedEmployee(ctx context.Context, id, name string, dob calendar.Date, supervisor bool) error {
	return h.Store.SaveEmployee(ctx, compliance.Employee{
		ID:          compliance.EmployeeID(id),
		Name:        name,
		DateOfBirth: dob,
		Supervisor:  supervisor,
		CreatedAt:   h.Clock(),
	})
}

func (h *Handler) seedDocument(ctx context.Context, employeeID string, typ compliance.DocumentType, expiresOn *calendar.Date) (compliance.DocumentID, error) {
	doc := compliance.EmployeeDocument{
		ID:         compliance.DocumentID(uuid.NewString()),
		EmployeeID: compliance.EmployeeID(employeeID),
		Type:       typ,
		IssuedAt:   h.Clock(),
		ExpiresOn:  expiresOn,
	}
	return doc.ID, h.Store.SaveDocument(ctx, doc)
}

// seedFullDocuments issues the complete minor file: consent, permit
// (expiring after the season), and safety training.
func (h *Handler) seedFullDocuments(ctx context.Context, employeeID string) error {
	seasonEnd := h.Now().AddDays(180)
	if _, err := h.seedDocument(ctx, employeeID, compliance.DocParentalConsent, nil); err != nil {
		return err
	}
	if _, err := h.seedDocument(ctx, employeeID, compliance.DocWorkPermit, &seasonEnd); err != nil {
		return err
	}
	_, err := h.seedDocument(ctx, employeeID, compliance.DocSafetyTraining, nil)
	return err
}

// seedShift opens the current week if needed and adds one entry through
// the entry service, so the seeded data passed the same gate real
// entries do.
func (h *Handler) seedShift(ctx context.Context, employeeID, day, start, end, taskCode string) error {
	workDate := calendar.MustParseDate(day)
	ts, err := h.Timesheets.Open(ctx, compliance.EmployeeID(employeeID), workDate)
	if err != nil {
		return err
	}
	_, err = h.Entries.Create(ctx, ts.ID, timesheet.EntryInput{
		WorkDate: workDate,
		Start:    calendar.MustParseClock(start),
		End:      calendar.MustParseClock(end),
		TaskCode: taskCode,
	})
	return err
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSummerHarvest(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	today := h.Now()
	weekStart := calendar.WeekStartOf(today)
	dob := func(age int) calendar.Date { return today.AddDays(-(age*365 + 200)) }

	crew := []struct {
		id, name   string
		age        int
		supervisor bool
	}{
		{"emp-dana", "Dana Holt", 34, true},
		{"emp-ruby", "Ruby Tran", 13, false},
		{"emp-miles", "Miles Okafor", 15, false},
		{"emp-june", "June Castillo", 17, false},
	}
	for _, c := range crew {
		if err := h.seedEmployee(ctx, c.id, c.name, dob(c.age), c.supervisor); err != nil {
			return err
		}
		if c.age < 18 {
			if err := h.seedFullDocuments(ctx, c.id); err != nil {
				return err
			}
		}
	}

	// Afternoon shifts clear of the school-hours window either way.
	monday := weekStart.AddDays(1).String()
	tuesday := weekStart.AddDays(2).String()
	shifts := []struct {
		employee, day, start, end, task string
	}{
		{"emp-dana", monday, "08:00", "16:00", "TRACTOR"},
		{"emp-ruby", monday, "15:30", "18:30", "HARVEST"},
		{"emp-miles", monday, "15:30", "18:30", "STAND"},
		{"emp-june", monday, "15:30", "20:30", "IRRIGATION"},
		{"emp-ruby", tuesday, "15:30", "18:00", "WEEDING"},
	}
	for _, s := range shifts {
		if err := h.seedShift(ctx, s.employee, s.day, s.start, s.end, s.task); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMissingDocuments(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	today := h.Now()
	if err := h.seedEmployee(ctx, "emp-sam", "Sam Whitfield", today.AddDays(-(15*365 + 100)), false); err != nil {
		return err
	}

	// Consent was granted, then revoked. No permit was ever issued, so
	// a submission fails RULE-002/003/004 together.
	consentID, err := h.seedDocument(ctx, "emp-sam", compliance.DocParentalConsent, nil)
	if err != nil {
		return err
	}
	if err := h.Store.InvalidateDocument(ctx, consentID, h.Clock()); err != nil {
		return err
	}

	weekStart := calendar.WeekStartOf(today)
	return h.seedShift(ctx, "emp-sam", weekStart.AddDays(1).String(), "15:30", "18:30", "HARVEST")
}

func (h *Handler) loadPermitExpiring(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	today := h.Now()
	if err := h.seedEmployee(ctx, "emp-theo", "Theo Marsh", today.AddDays(-(16*365 + 300)), false); err != nil {
		return err
	}

	if _, err := h.seedDocument(ctx, "emp-theo", compliance.DocParentalConsent, nil); err != nil {
		return err
	}
	expires := today.AddDays(10)
	if _, err := h.seedDocument(ctx, "emp-theo", compliance.DocWorkPermit, &expires); err != nil {
		return err
	}
	if _, err := h.seedDocument(ctx, "emp-theo", compliance.DocSafetyTraining, nil); err != nil {
		return err
	}

	weekStart := calendar.WeekStartOf(today)
	return h.seedShift(ctx, "emp-theo", weekStart.AddDays(1).String(), "15:30", "19:30", "MAINTENANCE")
}
