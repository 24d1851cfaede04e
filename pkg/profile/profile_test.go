package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFallsBackToRoad(t *testing.T) {
	s := NewStore()
	assert.Equal(t, DisciplineOval, s.For(DisciplineOval).Name)
	assert.Equal(t, DisciplineRoad, s.For("unknown-discipline").Name)
}

func TestLoadOverridesBuiltins(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.yml")
	content := `
profiles:
  - name: road
    lightContactSpeedDelta: 12
    mediumContactSpeedDelta: 28
    heavyContactSpeedDelta: 60
    dangerousClosingSpeed: 40
    offTrackDistance: 3.5
    spinDurationMs: 1600
    overlapRatio: 0.45
  - name: kart
    lightContactSpeedDelta: 3
    mediumContactSpeedDelta: 8
    heavyContactSpeedDelta: 20
    dangerousClosingSpeed: 15
    offTrackDistance: 1
    spinDurationMs: 800
    overlapRatio: 0.7
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	s := NewStore()
	require.NoError(t, s.Load(file))

	assert.InDelta(t, 28, s.For(DisciplineRoad).MediumContactSpeedDelta, 0.001)
	assert.InDelta(t, 8, s.For("kart").MediumContactSpeedDelta, 0.001)
	// untouched built-ins survive
	assert.InDelta(t, 45, s.For(DisciplineOval).MediumContactSpeedDelta, 0.001)
}

func TestLoadRejectsUnnamedProfiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.yml")
	require.NoError(t, os.WriteFile(file,
		[]byte("profiles:\n  - lightContactSpeedDelta: 5\n"), 0o600))

	assert.Error(t, NewStore().Load(file))
}

func TestInferDiscipline(t *testing.T) {
	tests := []struct {
		track    string
		category string
		want     string
	}{
		{"Thunder Valley Speedway", "", DisciplineOval},
		{"Eldora dirt oval", "", DisciplineDirtOval},
		{"Hell RX Circuit", "", DisciplineRallycross},
		{"Road Atlanta", "", DisciplineRoad},
		{"Anywhere", "open_wheel", DisciplineOpenWheel},
		{"Thunder Valley Speedway", "endurance", DisciplineEndurance},
	}
	for _, tt := range tests {
		t.Run(tt.track+"/"+tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDiscipline(tt.track, tt.category))
		})
	}
}
