package model

// EventType identifies an outbound event category. Each (session, type)
// pair has its own queue in the delay buffer.
type EventType string

const (
	EventTimingUpdate   EventType = "timing-update"
	EventFrame          EventType = "frame"
	EventIncidentNew    EventType = "incident-new"
	EventStateUpdate    EventType = "state-update"
	EventStrategyUpdate EventType = "strategy-update"
	EventEngineerUpdate EventType = "engineer-update"
)

// BufferedEventTypes lists the event types that pass through the
// delay buffer on their way to the public audience.
func BufferedEventTypes() []EventType {
	return []EventType{
		EventTimingUpdate,
		EventFrame,
		EventIncidentNew,
		EventStateUpdate,
	}
}

// Audience describes a consumer class with its own visibility rules.
type Audience string

const (
	AudienceTeam     Audience = "team"
	AudienceOfficial Audience = "official"
	AudiencePublic   Audience = "public"
)
