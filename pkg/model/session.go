package model

import "time"

type SessionType string

const (
	SessionPractice   SessionType = "practice"
	SessionQualifying SessionType = "qualifying"
	SessionRace       SessionType = "race"
)

// StrategySnapshot holds restricted per-car data. It is part of the
// team/official feeds only; the redaction layer strips it from anything
// crossing into the public audience.
type StrategySnapshot struct {
	FuelLevel  float64            `json:"fuelLevel,omitempty"`
	FuelPct    float64            `json:"fuelPct,omitempty"`
	TireWear   map[string]float64 `json:"tireWear,omitempty"`
	TireTemps  map[string]float64 `json:"tireTemps,omitempty"`
	Damage     float64            `json:"damage,omitempty"`
	PitPlanned bool               `json:"pitPlanned,omitempty"`
}

// DriverState is the per-car state within a session. It lives and dies
// with its session and is mutated only through the session registry.
type DriverState struct {
	CarID      int              `json:"carId"`
	DriverID   string           `json:"driverId"`
	DriverName string           `json:"driverName"`
	CarNumber  string           `json:"carNumber"`
	Position   int              `json:"position"`
	Lap        int              `json:"lap"`
	LapDistPct float64          `json:"lapDistPct"`
	Speed      float64          `json:"speed"`
	Strategy   StrategySnapshot `json:"strategy"`
	LastUpdate time.Time        `json:"lastUpdate"`
}
