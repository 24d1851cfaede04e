package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/dispatch"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/ingest"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/pipeline"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/processing/classify"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/processing/spotter"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

// inbound subjects from the capture agents
const (
	subjectTelemetry       = "relay.telemetry"
	subjectBinaryTelemetry = "relay.telemetry.binary.*"
	subjectTrigger         = "relay.trigger"
	subjectDelayControl    = "relay.control.delay"
	subjectMetadata        = "relay.session.metadata"

	binaryPrefix = "relay.telemetry.binary."
)

type relayHandler struct {
	registry   *session.Registry
	engine     *classify.Engine
	dispatcher *dispatch.Dispatcher
	ingester   *ingest.Ingester
	spotter    *spotter.Spotter
	executor   *pipeline.ShardedExecutor
	l          *log.Logger
}

func (h *relayHandler) subscribe(nc *nats.Conn) ([]*nats.Subscription, error) {
	ret := make([]*nats.Subscription, 0, 5)
	for subject, handler := range map[string]nats.MsgHandler{
		subjectTelemetry:       h.onTelemetry,
		subjectBinaryTelemetry: h.onBinaryTelemetry,
		subjectTrigger:         h.onTrigger,
		subjectDelayControl:    h.onDelayControl,
		subjectMetadata:        h.onMetadata,
	} {
		sub, err := nc.Subscribe(subject, handler)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sub)
	}
	return ret, nil
}

// onTelemetry handles one structured JSON frame. Malformed frames are
// dropped without disturbing the stream.
func (h *relayHandler) onTelemetry(msg *nats.Msg) {
	if appConfig.PrintMessage {
		h.l.Debug("telemetry message", log.String("payload", string(msg.Data)))
	}
	var frame model.TelemetryFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		h.l.Debug("dropping malformed telemetry frame", log.ErrorField(err))
		return
	}
	if frame.SessionID == "" {
		h.l.Debug("dropping frame without session id")
		return
	}
	h.executor.Submit(frame.SessionID, func() {
		if err := h.ingester.ProcessFrame(&frame); err != nil {
			h.l.Debug("frame not processed", log.ErrorField(err))
		}
	})
}

// onBinaryTelemetry handles one compact binary frame. The session id
// is the last subject token.
func (h *relayHandler) onBinaryTelemetry(msg *nats.Msg) {
	sessionID := strings.TrimPrefix(msg.Subject, binaryPrefix)
	if sessionID == "" || sessionID == msg.Subject {
		h.l.Debug("dropping binary frame without session id",
			log.String("subject", msg.Subject))
		return
	}
	data := msg.Data
	h.executor.Submit(sessionID, func() {
		if err := h.ingester.ProcessBinary(sessionID, data); err != nil {
			h.l.Debug("binary frame not processed",
				log.String("sessionId", sessionID),
				log.ErrorField(err))
		}
	})
}

func (h *relayHandler) onTrigger(msg *nats.Msg) {
	var trigger model.IncidentTrigger
	if err := json.Unmarshal(msg.Data, &trigger); err != nil {
		h.l.Warn("dropping malformed trigger", log.ErrorField(err))
		return
	}
	if trigger.SessionID == "" {
		h.l.Warn("dropping trigger without session id")
		return
	}
	h.executor.Submit(trigger.SessionID, func() {
		sess := h.registry.GetOrCreate(trigger.SessionID)
		h.spotter.TriggerNotice(sess, &trigger)
		inc, err := h.engine.Classify(context.Background(), sess, &trigger)
		if err != nil {
			// trigger is consumed, the incident is lost
			h.l.Error("trigger not classified",
				log.String("sessionId", trigger.SessionID),
				log.String("trigger", string(trigger.Type)),
				log.ErrorField(err))
			return
		}
		h.dispatcher.Dispatch(sess, model.EventIncidentNew, inc)
	})
}

func (h *relayHandler) onDelayControl(msg *nats.Msg) {
	var ctrl model.DelayControl
	if err := json.Unmarshal(msg.Data, &ctrl); err != nil {
		h.l.Warn("dropping malformed delay control", log.ErrorField(err))
		return
	}
	if ctrl.SessionID == "" {
		return
	}
	if h.registry.SetDelay(ctrl.SessionID, ctrl.DelayMs) {
		h.l.Info("broadcast delay set",
			log.String("sessionId", ctrl.SessionID),
			log.Int64("delayMs", ctrl.DelayMs))
	}
}

func (h *relayHandler) onMetadata(msg *nats.Msg) {
	var md model.SessionMetadata
	if err := json.Unmarshal(msg.Data, &md); err != nil {
		h.l.Warn("dropping malformed session metadata", log.ErrorField(err))
		return
	}
	if md.SessionID == "" {
		return
	}
	h.executor.Submit(md.SessionID, func() {
		sess := h.registry.GetOrCreate(md.SessionID)
		sess.ApplyMetadata(&md)
		if md.DelayMs != 0 {
			h.registry.SetDelay(md.SessionID, md.DelayMs)
		}
		h.dispatcher.Dispatch(sess, model.EventStateUpdate, &md)
	})
}
