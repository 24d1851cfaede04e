// Package classify turns raw incident triggers into classified,
// persisted incidents. Classification is deterministic and profile
// driven; responsibility prediction and explanation are best-effort
// and never block an incident from being recorded.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/profile"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

// IncidentStore persists classified incidents.
type IncidentStore interface {
	Create(ctx context.Context, incident *model.Incident) error
}

// SnapshotSource provides the timing history around a trigger.
type SnapshotSource interface {
	Recent(sessionID string, n int) []*model.TimingSnapshot
	Around(sessionID string, sessionTimeMs, windowMs float64) []*model.TimingSnapshot
}

// Predictor estimates per-driver responsibility. Estimates are
// independent confidences, not a normalized distribution.
type Predictor interface {
	Predict(
		ctx context.Context,
		incident *model.Incident,
		trigger *model.IncidentTrigger,
	) ([]model.ResponsibilityEstimate, error)
}

// Explainer produces a steward-facing explanation with a confidence.
type Explainer interface {
	Explain(
		ctx context.Context,
		incident *model.Incident,
		trigger *model.IncidentTrigger,
	) (string, float64, error)
}

type Engine struct {
	store     IncidentStore
	snaps     SnapshotSource
	profiles  profile.Source
	predictor Predictor
	explainer Explainer
	l         *log.Logger
	now       func() time.Time
}

type Option func(*Engine)

func WithLogger(arg *log.Logger) Option {
	return func(e *Engine) {
		e.l = arg
	}
}

// WithNow replaces the time source (used in tests).
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithPredictor(arg Predictor) Option {
	return func(e *Engine) {
		e.predictor = arg
	}
}

func WithExplainer(arg Explainer) Option {
	return func(e *Engine) {
		e.explainer = arg
	}
}

func NewEngine(
	store IncidentStore,
	snaps SnapshotSource,
	profiles profile.Source,
	opts ...Option,
) *Engine {
	ret := &Engine{
		store:     store,
		snaps:     snaps,
		profiles:  profiles,
		predictor: &heuristicPredictor{},
		explainer: &templateExplainer{},
		l:         log.Default().Named("classify"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Classify processes one trigger. Returns the persisted incident, or
// nil with an error when classification or persistence failed; a
// failed trigger is consumed either way.
//
//nolint:funlen // single classification pass
func (e *Engine) Classify(
	ctx context.Context,
	sess *session.Session,
	trigger *model.IncidentTrigger,
) (ret *model.Incident, err error) {
	defer func() {
		if r := recover(); r != nil {
			ret = nil
			err = fmt.Errorf("classification panic: %v", r)
			e.l.Error("classification panicked",
				log.String("sessionId", trigger.SessionID),
				log.String("trigger", string(trigger.Type)),
				log.Any("panic", r))
		}
	}()

	prof := e.profiles.For(profile.InferDiscipline(sess.TrackName(), sess.Category()))
	incidentType := mapTriggerType(trigger)

	now := e.now()
	incident := &model.Incident{
		ID:            uuid.NewString(),
		SessionID:     trigger.SessionID,
		Type:          incidentType,
		LapNumber:     trigger.Data.LapNumber,
		SessionTimeMs: trigger.SessionTimeMs,
		TrackPosition: trigger.Data.TrackPosition,
		CornerName:    CornerName(trigger.Data.TrackPosition),
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// contact analysis needs another car; a contact trigger without
	// nearby drivers keeps an unresolved contact type
	if incidentType == model.IncidentContact && len(trigger.NearbyDriverIDs) > 0 {
		incident.ContactType = e.contactType(trigger, prof)
	}
	incident.SeverityScore, incident.Severity = scoreSeverity(trigger, incidentType, prof)
	incident.Involved = e.involvedDrivers(sess, trigger)

	// responsibility is only meaningful between drivers
	if len(incident.Involved) > 1 {
		e.bestEffort("responsibility", incident, func() {
			e.applyResponsibility(ctx, incident, trigger)
		})
	}
	e.bestEffort("explanation", incident, func() {
		e.applyExplanation(ctx, incident, trigger)
	})

	if err := e.store.Create(ctx, incident); err != nil {
		e.l.Error("incident persistence failed",
			log.String("sessionId", trigger.SessionID),
			log.String("incidentId", incident.ID),
			log.ErrorField(err))
		return nil, err
	}
	e.l.Info("incident classified",
		log.String("sessionId", trigger.SessionID),
		log.String("incidentId", incident.ID),
		log.String("type", string(incident.Type)),
		log.String("severity", string(incident.Severity)),
		log.Float64("score", incident.SeverityScore))
	return incident, nil
}

// mapTriggerType resolves the incident type. Ambiguous triggers are
// context-sensitive: a sudden deceleration with traffic around the car
// reads as contact, the same signal on an empty track as a loss of
// control.
func mapTriggerType(trigger *model.IncidentTrigger) model.IncidentType {
	switch trigger.Type {
	case model.TriggerContactProximity:
		return model.IncidentContact
	case model.TriggerOffTrackDetected:
		return model.IncidentOffTrack
	case model.TriggerSpinDetected:
		return model.IncidentSpin
	case model.TriggerErraticTrajectory:
		return model.IncidentLossOfControl
	case model.TriggerSuddenDeceleration:
		if len(trigger.NearbyDriverIDs) > 0 {
			return model.IncidentContact
		}
		return model.IncidentLossOfControl
	case model.TriggerIncidentCountIncrease:
		if len(trigger.NearbyDriverIDs) > 0 {
			return model.IncidentContact
		}
		return model.IncidentOffTrack
	default:
		// unknown trigger types classify conservatively as contact
		return model.IncidentContact
	}
}

func (e *Engine) involvedDrivers(
	sess *session.Session,
	trigger *model.IncidentTrigger,
) []model.InvolvedDriver {
	ids := append([]string{trigger.PrimaryDriverID}, trigger.NearbyDriverIDs...)
	ret := make([]model.InvolvedDriver, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		inv := model.InvolvedDriver{DriverID: id, Role: model.RoleInvolved}
		if ds, ok := sess.DriverByID(id); ok {
			inv.Name = ds.DriverName
			inv.CarNumber = ds.CarNumber
		}
		ret = append(ret, inv)
	}
	return ret
}

// bestEffort isolates an enrichment step. A panic inside an injected
// predictor or explainer must not cost the incident itself.
func (e *Engine) bestEffort(step string, incident *model.Incident, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.l.Error("enrichment step panicked",
				log.String("step", step),
				log.String("incidentId", incident.ID),
				log.Any("panic", r))
		}
	}()
	fn()
}

func (e *Engine) applyResponsibility(
	ctx context.Context,
	incident *model.Incident,
	trigger *model.IncidentTrigger,
) {
	estimates, err := e.predictor.Predict(ctx, incident, trigger)
	if err != nil {
		e.l.Warn("responsibility prediction failed",
			log.String("incidentId", incident.ID),
			log.ErrorField(err))
		return
	}
	byDriver := make(map[string]model.ResponsibilityEstimate, len(estimates))
	for _, est := range estimates {
		byDriver[est.DriverID] = est
	}
	for i := range incident.Involved {
		if est, ok := byDriver[incident.Involved[i].DriverID]; ok {
			p := est.Probability
			incident.Involved[i].FaultProbability = &p
			incident.Involved[i].Role = est.Role
		}
	}
}

func (e *Engine) applyExplanation(
	ctx context.Context,
	incident *model.Incident,
	trigger *model.IncidentTrigger,
) {
	reasoning, confidence, err := e.explainer.Explain(ctx, incident, trigger)
	if err != nil {
		e.l.Warn("explanation failed",
			log.String("incidentId", incident.ID),
			log.ErrorField(err))
		return
	}
	incident.Reasoning = reasoning
	incident.Confidence = confidence
}

// CornerName maps a normalized track position to an estimated corner
// label, assuming twelve corners per lap.
func CornerName(trackPosition float64) string {
	if trackPosition < 0 {
		trackPosition = 0
	}
	if trackPosition >= 1 {
		trackPosition = 0.999
	}
	return fmt.Sprintf("Turn %d", int(trackPosition*12)+1)
}
