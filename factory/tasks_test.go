package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchard/compliance-engine/compliance"
	"github.com/orchard/compliance-engine/factory"
)

func TestParseCatalog_AppliesDefaults(t *testing.T) {
	// GIVEN: A minimal JSON catalog omitting optional fields
	// WHEN: It is parsed
	// THEN: Defaults fill in supervision and the agricultural flag

	f := factory.NewTaskFactory()

	tasks, err := f.ParseCatalog(`{
		"tasks": [
			{"code": "harvest", "name": "Harvesting", "minimum_age": 12},
			{"code": "TRACTOR", "name": "Tractor operation", "minimum_age": 16, "hazardous": true}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "HARVEST", tasks[0].Code, "codes normalize to upper case")
	assert.Equal(t, compliance.SupervisionNone, tasks[0].Supervision)
	assert.True(t, tasks[0].Agricultural)

	assert.Equal(t, compliance.SupervisionAlways, tasks[1].Supervision,
		"hazardous tasks default to constant supervision")
}

func TestParseCatalog_Rejections(t *testing.T) {
	f := factory.NewTaskFactory()

	cases := []struct {
		name string
		json string
	}{
		{"malformed JSON", `{"tasks": [`},
		{"missing code", `{"tasks": [{"name": "Mystery work"}]}`},
		{"missing name", `{"tasks": [{"code": "X"}]}`},
		{"negative minimum age", `{"tasks": [{"code": "X", "name": "X", "minimum_age": -1}]}`},
		{"unknown supervision", `{"tasks": [{"code": "X", "name": "X", "supervision": "sometimes"}]}`},
		{"duplicate code", `{"tasks": [
			{"code": "STAND", "name": "Stand"},
			{"code": "stand", "name": "Stand again"}
		]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseCatalog(tc.json)
			assert.Error(t, err)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	f := factory.NewTaskFactory()
	tasks := f.DefaultCatalog()
	require.NotEmpty(t, tasks)

	byCode := make(map[string]compliance.TaskCode, len(tasks))
	for _, task := range tasks {
		byCode[task.Code] = task
	}

	harvest, ok := byCode["HARVEST"]
	require.True(t, ok)
	assert.Equal(t, 12, harvest.MinimumAge)
	assert.True(t, harvest.Agricultural)

	tractor, ok := byCode["TRACTOR"]
	require.True(t, ok)
	assert.True(t, tractor.Hazardous)
	assert.Equal(t, compliance.SupervisionAlways, tractor.Supervision)

	pesticide, ok := byCode["PESTICIDE"]
	require.True(t, ok)
	assert.Equal(t, 18, pesticide.MinimumAge)

	delivery, ok := byCode["DELIVERY"]
	require.True(t, ok)
	assert.False(t, delivery.Agricultural, "road driving is not agricultural work for payroll")
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewTaskFactory()
	original := f.DefaultCatalog()

	back, err := f.FromJSON(f.ToJSON(original))
	require.NoError(t, err)
	assert.Equal(t, original, back)
}
