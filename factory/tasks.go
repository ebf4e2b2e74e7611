/*
Package factory provides JSON to Go task-catalog conversion.

PURPOSE:
  Converts JSON task definitions into compliance.TaskCode values. This
  enables catalog configuration without code changes - farm managers can
  define the season's task list in JSON, and the factory creates the
  proper Go structs.

WHY JSON?
  - Non-developers can modify the catalog between seasons
  - Easy integration with an admin UI
  - Version control for task definitions
  - Database storage of catalog configs

JSON SCHEMA:
  {
    "tasks": [
      {
        "code": "TRACTOR",
        "name": "Tractor operation",
        "minimum_age": 16,
        "hazardous": true,
        "supervision": "always",
        "agricultural": true
      }
    ]
  }

KEY FEATURES:
  - Validates codes and rejects duplicates
  - Sets sensible defaults (hazardous tasks require constant supervision)
  - Ships a default seasonal-farm catalog

USAGE:
  factory := NewTaskFactory()

  // From JSON string
  tasks, err := factory.ParseCatalog(jsonString)

  // Built-in seasonal catalog (recommended starting point)
  tasks := factory.DefaultCatalog()

  // Seed the store
  for _, task := range tasks {
      store.SaveTask(ctx, task)
  }

SEE ALSO:
  - compliance/types.go: TaskCode type definition
  - compliance/rules.go: RULE-011/RULE-012 consume MinimumAge and Hazardous
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orchard/compliance-engine/compliance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a task catalog.
type CatalogJSON struct {
	Tasks []TaskJSON `json:"tasks"`
}

// TaskJSON is the JSON representation of a single task code.
type TaskJSON struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	MinimumAge   int    `json:"minimum_age,omitempty"`
	Hazardous    bool   `json:"hazardous,omitempty"`
	Supervision  string `json:"supervision,omitempty"`  // none, minors, always
	Agricultural *bool  `json:"agricultural,omitempty"` // default true
}

// =============================================================================
// TASK FACTORY
// =============================================================================

// TaskFactory converts JSON task catalogs to Go structs.
type TaskFactory struct{}

// NewTaskFactory creates a new task factory.
func NewTaskFactory() *TaskFactory {
	return &TaskFactory{}
}

// ParseCatalog parses a JSON string into a slice of task codes.
func (f *TaskFactory) ParseCatalog(jsonStr string) ([]compliance.TaskCode, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	return f.FromJSON(cj)
}

// FromJSON converts CatalogJSON to task codes, applying defaults and
// validating the set as a whole.
func (f *TaskFactory) FromJSON(cj CatalogJSON) ([]compliance.TaskCode, error) {
	seen := make(map[string]bool, len(cj.Tasks))
	tasks := make([]compliance.TaskCode, 0, len(cj.Tasks))

	for i, tj := range cj.Tasks {
		task, err := f.fromTaskJSON(tj)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if seen[task.Code] {
			return nil, fmt.Errorf("duplicate task code %q", task.Code)
		}
		seen[task.Code] = true
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (f *TaskFactory) fromTaskJSON(tj TaskJSON) (compliance.TaskCode, error) {
	code := strings.ToUpper(strings.TrimSpace(tj.Code))
	if code == "" {
		return compliance.TaskCode{}, fmt.Errorf("task code is required")
	}
	if tj.Name == "" {
		return compliance.TaskCode{}, fmt.Errorf("task %q: name is required", code)
	}
	if tj.MinimumAge < 0 {
		return compliance.TaskCode{}, fmt.Errorf("task %q: minimum_age must not be negative", code)
	}

	supervision, err := parseSupervision(tj.Supervision)
	if err != nil {
		return compliance.TaskCode{}, fmt.Errorf("task %q: %w", code, err)
	}

	// Hazardous work is never left unsupervised regardless of what the
	// JSON says.
	if tj.Hazardous && supervision == compliance.SupervisionNone {
		supervision = compliance.SupervisionAlways
	}

	agricultural := true
	if tj.Agricultural != nil {
		agricultural = *tj.Agricultural
	}

	return compliance.TaskCode{
		Code:         code,
		Name:         tj.Name,
		MinimumAge:   tj.MinimumAge,
		Hazardous:    tj.Hazardous,
		Supervision:  supervision,
		Agricultural: agricultural,
	}, nil
}

// ToJSON converts task codes back to their JSON representation.
func (f *TaskFactory) ToJSON(tasks []compliance.TaskCode) CatalogJSON {
	cj := CatalogJSON{Tasks: make([]TaskJSON, 0, len(tasks))}
	for _, task := range tasks {
		agricultural := task.Agricultural
		cj.Tasks = append(cj.Tasks, TaskJSON{
			Code:         task.Code,
			Name:         task.Name,
			MinimumAge:   task.MinimumAge,
			Hazardous:    task.Hazardous,
			Supervision:  string(task.Supervision),
			Agricultural: &agricultural,
		})
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSupervision(s string) (compliance.SupervisionLevel, error) {
	switch s {
	case "", "none":
		return compliance.SupervisionNone, nil
	case "minors":
		return compliance.SupervisionMinors, nil
	case "always":
		return compliance.SupervisionAlways, nil
	default:
		return "", fmt.Errorf("unknown supervision level: %s", s)
	}
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

// DefaultCatalog returns the built-in seasonal-farm task list. Callers
// that want a custom catalog should parse their own JSON instead.
func (f *TaskFactory) DefaultCatalog() []compliance.TaskCode {
	tasks, err := f.FromJSON(defaultCatalog)
	if err != nil {
		// The default catalog is a compile-time constant; a parse error
		// here is a programming bug.
		panic(fmt.Sprintf("invalid default catalog: %v", err))
	}
	return tasks
}

var defaultCatalog = CatalogJSON{
	Tasks: []TaskJSON{
		{Code: "HARVEST", Name: "Fruit and vegetable harvesting", MinimumAge: 12, Supervision: "minors"},
		{Code: "WEEDING", Name: "Hand weeding and hoeing", MinimumAge: 12, Supervision: "minors"},
		{Code: "STAND", Name: "Farm stand sales", MinimumAge: 14},
		{Code: "PACKING", Name: "Produce washing and packing", MinimumAge: 14, Supervision: "minors"},
		{Code: "IRRIGATION", Name: "Irrigation line moving", MinimumAge: 16, Supervision: "minors"},
		{Code: "TRACTOR", Name: "Tractor and machinery operation", MinimumAge: 16, Hazardous: true, Supervision: "always"},
		{Code: "PESTICIDE", Name: "Pesticide handling and application", MinimumAge: 18, Hazardous: true, Supervision: "always"},
		{Code: "LADDER", Name: "Orchard ladder work above six feet", MinimumAge: 16, Hazardous: true, Supervision: "always"},
		{Code: "MAINTENANCE", Name: "Equipment cleaning and maintenance", MinimumAge: 16, Supervision: "minors"},
		{Code: "DELIVERY", Name: "Market delivery driving", MinimumAge: 18, Agricultural: boolPtrFalse()},
	},
}

func boolPtrFalse() *bool { b := false; return &b }
