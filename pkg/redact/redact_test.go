package redact

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestStripRemovesDeniedKeysAtAnyDepth(t *testing.T) {
	in := map[string]any{
		"sessionId": "s1",
		"fuelLevel": 42.5,
		"cars": []any{
			map[string]any{
				"carId":    1,
				"speed":    212.4,
				"tireWear": map[string]any{"lf": 0.9},
				"_debug":   "internal",
			},
		},
		"strategy": map[string]any{"pitPlanned": true},
		"nested": map[string]any{
			"annotations": []any{"a"},
			"keep":        "yes",
		},
	}
	want := map[string]any{
		"sessionId": "s1",
		"cars": []any{
			map[string]any{
				"carId": 1,
				"speed": 212.4,
			},
		},
		"nested": map[string]any{
			"keep": "yes",
		},
	}
	got := Strip(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Strip mismatch (-want +got):\n%s", diff)
	}
}

func TestStripDoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"fuel": 10.0,
		"keep": map[string]any{"damage": 1.0, "lap": 3},
	}
	Strip(in)
	assert.Contains(t, in, "fuel")
	assert.Contains(t, in["keep"], "damage")
}

func TestStripPassesScalarsThrough(t *testing.T) {
	assert.Equal(t, 42, Strip(42))
	assert.Equal(t, "text", Strip("text"))
	assert.Nil(t, Strip(nil))
}

func TestThinFrameKeepsOnlyAllowListedFields(t *testing.T) {
	in := map[string]any{
		"sessionId":     "s1",
		"sessionTimeMs": 1000.0,
		"entries": []any{
			map[string]any{
				"carId":      1,
				"driverName": "A. Driver",
				"position":   2,
				"speed":      244.1,
				"fuelPct":    0.44,
				"tireTemps":  map[string]any{"lf": 92.0},
			},
		},
		"stewardNotes": "note",
	}
	want := map[string]any{
		"sessionId":     "s1",
		"sessionTimeMs": 1000.0,
		"entries": []any{
			map[string]any{
				"carId":      1,
				"driverName": "A. Driver",
				"position":   2,
				"speed":      244.1,
			},
		},
	}
	got := ThinFrame(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ThinFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestThinIncidentDropsFaultAndReasoning(t *testing.T) {
	in := map[string]any{
		"id":        "i1",
		"sessionId": "s1",
		"type":      "contact",
		"severity":  "medium",
		"involvedDrivers": []any{
			map[string]any{
				"driverId":         "d1",
				"name":             "A. Driver",
				"role":             "at_fault",
				"faultProbability": 0.8,
			},
		},
		"aiReasoning":  "rear-end contact",
		"aiConfidence": 0.7,
	}
	got := ThinIncident(in)
	assert.NotContains(t, got, "aiReasoning")
	assert.NotContains(t, got, "aiConfidence")
	drivers, ok := got["involvedDrivers"].([]any)
	if assert.True(t, ok) && assert.Len(t, drivers, 1) {
		driver := drivers[0].(map[string]any)
		assert.NotContains(t, driver, "faultProbability")
		assert.NotContains(t, driver, "role")
		assert.Equal(t, "A. Driver", driver["name"])
	}
}
