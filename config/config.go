/*
Package config loads server configuration from a YAML file.

PURPOSE:
  Centralizes the knobs the server binary needs: HTTP address, database
  path, CORS origins, and the school-term calendar that drives the
  school-day defaulting and school-hours rules.

FILE FORMAT:
  port: 8080
  db_path: compliance.db
  cors_origins:
    - http://localhost:3000
  school_terms:
    - start: 2024-09-03
      end: 2024-12-20
    - start: 2025-01-06
      end: 2025-06-13

DEFAULTS:
  A missing file is not an error: Load returns Default() so the server
  can run with flags alone. Missing school_terms means no school days,
  which is the right default for a summer-season deployment.

SEE ALSO:
  - cmd/server/main.go: flag overrides layered on top of the file
  - calendar/calendar.go: TermCalendar consumed via SchoolCalendar()
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orchard/compliance-engine/calendar"
)

// Config holds the server configuration.
type Config struct {
	Port        int        `yaml:"port"`
	DBPath      string     `yaml:"db_path"`
	CORSOrigins []string   `yaml:"cors_origins"`
	SchoolTerms []TermYAML `yaml:"school_terms"`
}

// TermYAML is one school term in the config file. Dates are YYYY-MM-DD.
type TermYAML struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:        8080,
		DBPath:      "compliance.db",
		CORSOrigins: []string{"http://localhost:3000"},
	}
}

// Load reads the YAML file at path. A missing file yields Default();
// a malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	for i, term := range c.SchoolTerms {
		start, err := calendar.ParseDate(term.Start)
		if err != nil {
			return fmt.Errorf("school_terms[%d].start: %w", i, err)
		}
		end, err := calendar.ParseDate(term.End)
		if err != nil {
			return fmt.Errorf("school_terms[%d].end: %w", i, err)
		}
		if end.Before(start) {
			return fmt.Errorf("school_terms[%d]: end %s precedes start %s", i, term.End, term.Start)
		}
	}
	return nil
}

// SchoolCalendar builds the school calendar from the configured terms.
// With no terms configured every day is a non-school day.
func (c Config) SchoolCalendar() calendar.SchoolCalendar {
	if len(c.SchoolTerms) == 0 {
		return calendar.NoSchoolCalendar{}
	}

	terms := make([]calendar.Term, 0, len(c.SchoolTerms))
	for _, t := range c.SchoolTerms {
		// validate() has already vetted these.
		terms = append(terms, calendar.Term{
			Start: calendar.MustParseDate(t.Start),
			End:   calendar.MustParseDate(t.End),
		})
	}
	return &calendar.TermCalendar{Terms: terms}
}
