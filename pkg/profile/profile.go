// Package profile holds the per-discipline calibration used by the
// classification engine. Contact that would be race-ending in open
// wheel is routine in rallycross; the thresholds here encode that.
package profile

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile is one discipline's calibration. Speed values are km/h,
// distances meters.
type Profile struct {
	Name                    string  `yaml:"name"                    json:"name"`
	LightContactSpeedDelta  float64 `yaml:"lightContactSpeedDelta"  json:"lightContactSpeedDelta"`
	MediumContactSpeedDelta float64 `yaml:"mediumContactSpeedDelta" json:"mediumContactSpeedDelta"`
	HeavyContactSpeedDelta  float64 `yaml:"heavyContactSpeedDelta"  json:"heavyContactSpeedDelta"`
	DangerousClosingSpeed   float64 `yaml:"dangerousClosingSpeed"   json:"dangerousClosingSpeed"`
	OffTrackDistance        float64 `yaml:"offTrackDistance"        json:"offTrackDistance"`
	SpinDurationMs          float64 `yaml:"spinDurationMs"          json:"spinDurationMs"`
	OverlapRatio            float64 `yaml:"overlapRatio"            json:"overlapRatio"`
}

const (
	DisciplineRoad       = "road"
	DisciplineOval       = "oval"
	DisciplineDirtOval   = "dirt_oval"
	DisciplineRallycross = "rallycross"
	DisciplineEndurance  = "endurance"
	DisciplineOpenWheel  = "open_wheel"
)

// Source resolves the profile for a discipline.
type Source interface {
	For(discipline string) Profile
}

func builtins() map[string]Profile {
	return map[string]Profile{
		DisciplineRoad: {
			Name:                    DisciplineRoad,
			LightContactSpeedDelta:  10,
			MediumContactSpeedDelta: 25,
			HeavyContactSpeedDelta:  55,
			DangerousClosingSpeed:   35,
			OffTrackDistance:        3.0,
			SpinDurationMs:          1500,
			OverlapRatio:            0.5,
		},
		DisciplineOval: {
			Name:                    DisciplineOval,
			LightContactSpeedDelta:  15,
			MediumContactSpeedDelta: 45,
			HeavyContactSpeedDelta:  80,
			DangerousClosingSpeed:   50,
			OffTrackDistance:        2.0,
			SpinDurationMs:          1200,
			OverlapRatio:            0.33,
		},
		DisciplineDirtOval: {
			Name:                    DisciplineDirtOval,
			LightContactSpeedDelta:  20,
			MediumContactSpeedDelta: 50,
			HeavyContactSpeedDelta:  85,
			DangerousClosingSpeed:   55,
			OffTrackDistance:        4.0,
			SpinDurationMs:          2000,
			OverlapRatio:            0.33,
		},
		DisciplineRallycross: {
			Name:                    DisciplineRallycross,
			LightContactSpeedDelta:  25,
			MediumContactSpeedDelta: 55,
			HeavyContactSpeedDelta:  90,
			DangerousClosingSpeed:   60,
			OffTrackDistance:        6.0,
			SpinDurationMs:          2500,
			OverlapRatio:            0.4,
		},
		DisciplineEndurance: {
			Name:                    DisciplineEndurance,
			LightContactSpeedDelta:  8,
			MediumContactSpeedDelta: 20,
			HeavyContactSpeedDelta:  50,
			DangerousClosingSpeed:   30,
			OffTrackDistance:        3.0,
			SpinDurationMs:          1500,
			OverlapRatio:            0.5,
		},
		DisciplineOpenWheel: {
			Name:                    DisciplineOpenWheel,
			LightContactSpeedDelta:  5,
			MediumContactSpeedDelta: 15,
			HeavyContactSpeedDelta:  40,
			DangerousClosingSpeed:   25,
			OffTrackDistance:        2.5,
			SpinDurationMs:          1000,
			OverlapRatio:            0.6,
		},
	}
}

// Store is a Source backed by the built-in profiles, optionally
// overridden from a YAML file.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStore() *Store {
	return &Store{profiles: builtins()}
}

// Load merges profiles from a YAML file into the store. File entries
// override built-ins of the same name; unknown names become new
// disciplines.
func (s *Store) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var data struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range data.Profiles {
		p := data.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profile entry %d in %s has no name", i, path)
		}
		s.profiles[p.Name] = p
	}
	return nil
}

// For returns the profile for a discipline, falling back to road for
// unknown names.
func (s *Store) For(discipline string) Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[discipline]; ok {
		return p
	}
	return s.profiles[DisciplineRoad]
}

// InferDiscipline derives the discipline from session metadata. An
// explicit category wins; otherwise the track name is matched against
// well-known keywords, defaulting to road.
func InferDiscipline(trackName, category string) string {
	if category != "" {
		return strings.ToLower(category)
	}
	track := strings.ToLower(trackName)
	switch {
	case strings.Contains(track, "dirt"):
		return DisciplineDirtOval
	case strings.Contains(track, "oval") || strings.Contains(track, "speedway"):
		return DisciplineOval
	case strings.Contains(track, "rallycross") || strings.Contains(track, " rx"):
		return DisciplineRallycross
	default:
		return DisciplineRoad
	}
}
