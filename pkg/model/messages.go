package model

// Wire messages exchanged with the capture agent. The structured
// telemetry frame and the trigger message arrive as JSON on their
// relay subjects; the compact binary frame has its own codec in
// pkg/ingest.

type TelemetryFrame struct {
	SessionID     string     `json:"sessionId"`
	SessionTimeMs float64    `json:"sessionTimeMs"`
	Cars          []CarFrame `json:"cars"`
}

type CarFrame struct {
	CarID      int                `json:"carId"`
	DriverID   string             `json:"driverId,omitempty"`
	DriverName string             `json:"driverName,omitempty"`
	CarNumber  string             `json:"carNumber,omitempty"`
	Position   int                `json:"position,omitempty"`
	Lap        int                `json:"lap,omitempty"`
	LapDistPct float64            `json:"lapDistPct,omitempty"`
	Speed      float64            `json:"speed,omitempty"`
	Fuel       *float64           `json:"fuel,omitempty"`
	FuelPct    *float64           `json:"fuelPct,omitempty"`
	TireWear   map[string]float64 `json:"tireWear,omitempty"`
	TireTemps  map[string]float64 `json:"tireTemps,omitempty"`
}

// DelayControl sets the broadcast delay for a session.
// DelayMs must be one of the allowed discrete values.
type DelayControl struct {
	SessionID string `json:"sessionId"`
	DelayMs   int64  `json:"delayMs"`
}

// SessionMetadata announces track and session info for a session.
// Category feeds the discipline profile used by severity scoring.
type SessionMetadata struct {
	SessionID   string      `json:"sessionId"`
	TrackName   string      `json:"trackName"`
	SessionType SessionType `json:"sessionType"`
	Category    string      `json:"category,omitempty"`
	MultiClass  bool        `json:"multiClass,omitempty"`
	DelayMs     int64       `json:"delayMs,omitempty"`
}
