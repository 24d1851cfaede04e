// Package dispatch routes classified events to their audiences.
// Team and official feeds receive everything immediately and
// unredacted; the public feed sees redacted payloads, held back by the
// session's delay buffer when a delay is active.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/redact"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

// Publisher delivers one event to one audience feed.
type Publisher interface {
	Publish(sessionID string, audience model.Audience, event model.EventType, payload any) error
}

// events that never cross into the public audience, regardless of
// redaction: they exist only for pit wall and race control consumers.
var internalOnly = map[model.EventType]struct{}{
	model.EventStrategyUpdate: {},
	model.EventEngineerUpdate: {},
}

type Dispatcher struct {
	pub       Publisher
	l         *log.Logger
	published metric.Int64Counter
}

type Option func(*Dispatcher)

func WithLogger(arg *log.Logger) Option {
	return func(d *Dispatcher) {
		d.l = arg
	}
}

func NewDispatcher(pub Publisher, opts ...Option) *Dispatcher {
	ret := &Dispatcher{
		pub: pub,
		l:   log.Default().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	meter := otel.GetMeterProvider().Meter("csm.dispatch")
	counter, err := meter.Int64Counter("csm.dispatch.published",
		metric.WithDescription("Number of published events"),
		metric.WithUnit("{count}"))
	if err != nil {
		ret.l.Error("failed to register metric", log.ErrorField(err))
	} else {
		ret.published = counter
	}
	return ret
}

// Dispatch fans one event out to all audiences of a session. Internal
// audiences are served synchronously; the public copy is redacted and
// either published right away (delay 0) or handed to the session's
// delay buffer.
func (d *Dispatcher) Dispatch(sess *session.Session, event model.EventType, payload any) {
	d.publish(sess.ID(), model.AudienceTeam, event, payload)
	d.publish(sess.ID(), model.AudienceOfficial, event, payload)

	if _, ok := internalOnly[event]; ok {
		return
	}
	public, err := PublicView(event, payload)
	if err != nil {
		d.l.Error("could not build public view",
			log.String("sessionId", sess.ID()),
			log.String("event", string(event)),
			log.ErrorField(err))
		return
	}
	if sess.Buffer().Delay() == 0 {
		d.publish(sess.ID(), model.AudiencePublic, event, public)
		return
	}
	sess.Buffer().Enqueue(event, public)
}

// DispatchDelayed releases all due entries from the session's delay
// buffer onto the public feed. Called by the flusher; entries were
// redacted before buffering.
func (d *Dispatcher) DispatchDelayed(sess *session.Session, now time.Time) int {
	entries := sess.Buffer().Flush(now)
	for i := range entries {
		d.publish(sess.ID(), model.AudiencePublic, entries[i].Type, entries[i].Payload)
	}
	return len(entries)
}

func (d *Dispatcher) publish(
	sessionID string,
	audience model.Audience,
	event model.EventType,
	payload any,
) {
	if err := d.pub.Publish(sessionID, audience, event, payload); err != nil {
		d.l.Error("publish failed",
			log.String("sessionId", sessionID),
			log.String("audience", string(audience)),
			log.String("event", string(event)),
			log.ErrorField(err))
		return
	}
	if d.published != nil {
		d.published.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("audience", string(audience)),
				attribute.String("event", string(event))))
	}
}

// PublicView converts a payload to its public form: high-frequency
// timing events get the thin allow-listed shape, incidents the thin
// incident shape, everything else the generic deny-list strip.
func PublicView(event model.EventType, payload any) (any, error) {
	m, err := asMap(payload)
	if err != nil {
		return nil, err
	}
	switch event {
	case model.EventTimingUpdate, model.EventFrame:
		return redact.ThinFrame(m), nil
	case model.EventIncidentNew:
		return redact.ThinIncident(m), nil
	default:
		return redact.Strip(m), nil
	}
}

func asMap(payload any) (map[string]any, error) {
	if m, ok := payload.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var ret map[string]any
	if err := json.Unmarshal(raw, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}
