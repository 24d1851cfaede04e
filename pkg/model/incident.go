package model

import "time"

type (
	IncidentType   string
	ContactType    string
	Severity       string
	DriverRole     string
	IncidentStatus string
	TriggerType    string
)

const (
	IncidentContact       IncidentType = "contact"
	IncidentOffTrack      IncidentType = "off_track"
	IncidentSpin          IncidentType = "spin"
	IncidentLossOfControl IncidentType = "loss_of_control"
)

const (
	ContactRearEnd  ContactType = "rear_end"
	ContactSide     ContactType = "side"
	ContactDivebomb ContactType = "divebomb"
)

const (
	SeverityLight  Severity = "light"
	SeverityMedium Severity = "medium"
	SeverityHeavy  Severity = "heavy"
)

const (
	RoleInvolved DriverRole = "involved"
	RoleAtFault  DriverRole = "at_fault"
)

const (
	StatusPending   IncidentStatus = "pending"
	StatusReviewed  IncidentStatus = "reviewed"
	StatusDismissed IncidentStatus = "dismissed"
)

const (
	TriggerIncidentCountIncrease TriggerType = "incident_count_increase"
	TriggerSuddenDeceleration    TriggerType = "sudden_deceleration"
	TriggerOffTrackDetected      TriggerType = "off_track_detected"
	TriggerSpinDetected          TriggerType = "spin_detected"
	TriggerContactProximity      TriggerType = "contact_proximity"
	TriggerErraticTrajectory     TriggerType = "erratic_trajectory"
)

// TriggerData carries the trigger-specific payload. Which fields are
// populated depends on the trigger type; the severity scorer treats
// missing values as zero.
type TriggerData struct {
	LapNumber        int     `json:"lapNumber,omitempty"`
	TrackPosition    float64 `json:"trackPosition,omitempty"`
	SpeedDelta       float64 `json:"speedDelta,omitempty"`
	ClosingSpeed     float64 `json:"closingSpeed,omitempty"`
	OffTrackDistance float64 `json:"offTrackDistance,omitempty"`
	SpinDurationMs   float64 `json:"spinDurationMs,omitempty"`
	OverlapRatio     float64 `json:"overlapRatio,omitempty"`
	IncidentDelta    int     `json:"incidentDelta,omitempty"`
}

// IncidentTrigger is a raw anomaly signal. It is consumed exactly once
// by the classification engine.
type IncidentTrigger struct {
	Type            TriggerType `json:"type"`
	SessionID       string      `json:"sessionId"`
	PrimaryDriverID string      `json:"primaryDriverId"`
	NearbyDriverIDs []string    `json:"nearbyDriverIds"`
	SessionTimeMs   float64     `json:"sessionTimeMs"`
	Data            TriggerData `json:"triggerData"`
}

type InvolvedDriver struct {
	DriverID         string     `json:"driverId"`
	Name             string     `json:"name,omitempty"`
	CarNumber        string     `json:"carNumber,omitempty"`
	Role             DriverRole `json:"role"`
	FaultProbability *float64   `json:"faultProbability,omitempty"`
}

// Incident is the persisted result of a classified trigger.
// The id is immutable once created; status transitions
// (pending -> reviewed|dismissed) happen under steward action.
type Incident struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"sessionId"`
	Type          IncidentType     `json:"type"`
	ContactType   ContactType      `json:"contactType,omitempty"`
	Severity      Severity         `json:"severity"`
	SeverityScore float64          `json:"severityScore"`
	LapNumber     int              `json:"lapNumber"`
	SessionTimeMs float64          `json:"sessionTimeMs"`
	TrackPosition float64          `json:"trackPosition"`
	CornerName    string           `json:"cornerName,omitempty"`
	Involved      []InvolvedDriver `json:"involvedDrivers"`
	Status        IncidentStatus   `json:"status"`
	Reasoning     string           `json:"aiReasoning,omitempty"`
	Confidence    float64          `json:"aiConfidence,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ResponsibilityEstimate is one driver's share of a responsibility
// prediction. Probabilities are independent per-driver confidences,
// not a normalized distribution.
type ResponsibilityEstimate struct {
	DriverID    string     `json:"driverId"`
	Probability float64    `json:"probability"`
	Role        DriverRole `json:"role"`
}
