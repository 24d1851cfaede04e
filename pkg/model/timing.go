package model

import "time"

// TimingSnapshot is the normalized form of one telemetry frame.
// It is derived, ephemeral and exists only to be dispatched.
type TimingSnapshot struct {
	SessionID     string        `json:"sessionId"`
	SessionTimeMs float64       `json:"sessionTimeMs"`
	Timestamp     time.Time     `json:"timestamp"`
	Entries       []TimingEntry `json:"entries"`
}

type TimingEntry struct {
	CarID      int     `json:"carId"`
	DriverID   string  `json:"driverId,omitempty"`
	DriverName string  `json:"driverName,omitempty"`
	CarNumber  string  `json:"carNumber,omitempty"`
	Position   int     `json:"position"`
	Lap        int     `json:"lap"`
	LapDistPct float64 `json:"lapDistPct"`
	Speed      float64 `json:"speed"`
	Gap        float64 `json:"gap,omitempty"`
}
