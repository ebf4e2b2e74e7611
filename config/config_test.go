package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
port: 9090
db_path: /var/lib/orchard/compliance.db
cors_origins:
  - https://portal.example.com
school_terms:
  - start: 2024-09-03
    end: 2024-12-20
  - start: 2025-01-06
    end: 2025-06-13
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/orchard/compliance.db", cfg.DBPath)
	assert.Equal(t, []string{"https://portal.example.com"}, cfg.CORSOrigins)
	require.Len(t, cfg.SchoolTerms, 2)

	cal := cfg.SchoolCalendar()
	assert.True(t, cal.IsSchoolDay(calendar.MustParseDate("2024-10-15")), "Tuesday in term")
	assert.False(t, cal.IsSchoolDay(calendar.MustParseDate("2024-12-25")), "winter break")
	assert.False(t, cal.IsSchoolDay(calendar.MustParseDate("2025-07-01")), "summer")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.False(t, cfg.SchoolCalendar().IsSchoolDay(calendar.MustParseDate("2024-10-15")),
		"no configured terms means no school days")
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "db_path: season.db\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "season.db", cfg.DBPath)
	assert.Equal(t, config.Default().Port, cfg.Port)
}

func TestLoad_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed YAML", "port: [\n"},
		{"port out of range", "port: 70000\n"},
		{"empty db path", "db_path: \"\"\n"},
		{"bad term date", "school_terms:\n  - start: not-a-date\n    end: 2025-06-13\n"},
		{"reversed term", "school_terms:\n  - start: 2025-06-13\n    end: 2025-01-06\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}
