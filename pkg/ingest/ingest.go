// Package ingest normalizes inbound telemetry. Structured JSON frames
// and compact binary frames both end up as timing snapshots on the
// session registry and the dispatcher.
package ingest

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/dispatch"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

// one diagnostic log line per this many frames
const frameSampleRate = 60

var ErrMissingSession = errors.New("frame without session id")

// SnapshotRecorder receives every normalized snapshot. The
// classification engine uses the recorded history for contact analysis.
type SnapshotRecorder interface {
	Record(snap *model.TimingSnapshot)
}

// Observer gets each snapshot after it is dispatched. The spotter feed
// hangs off this hook.
type Observer interface {
	Observe(sess *session.Session, snap *model.TimingSnapshot)
}

type strategyUpdate struct {
	SessionID string                 `json:"sessionId"`
	CarID     int                    `json:"carId"`
	Strategy  model.StrategySnapshot `json:"strategy"`
}

type Ingester struct {
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	recorder   SnapshotRecorder
	observer   Observer
	l          *log.Logger
	now        func() time.Time
	frames     atomic.Uint64
}

type Option func(*Ingester)

func WithLogger(arg *log.Logger) Option {
	return func(i *Ingester) {
		i.l = arg
	}
}

// WithNow replaces the time source (used in tests).
func WithNow(now func() time.Time) Option {
	return func(i *Ingester) {
		i.now = now
	}
}

func WithSnapshotRecorder(arg SnapshotRecorder) Option {
	return func(i *Ingester) {
		i.recorder = arg
	}
}

func WithObserver(arg Observer) Option {
	return func(i *Ingester) {
		i.observer = arg
	}
}

func NewIngester(
	registry *session.Registry,
	dispatcher *dispatch.Dispatcher,
	opts ...Option,
) *Ingester {
	ret := &Ingester{
		registry:   registry,
		dispatcher: dispatcher,
		l:          log.Default().Named("ingest"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ProcessStructured handles one JSON telemetry frame. Malformed frames
// and frames without a session id are dropped; the error return exists
// for the caller's diagnostics only.
func (i *Ingester) ProcessStructured(data []byte) error {
	var frame model.TelemetryFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	return i.ProcessFrame(&frame)
}

// ProcessFrame applies an already decoded structured frame.
func (i *Ingester) ProcessFrame(frame *model.TelemetryFrame) error {
	if frame.SessionID == "" {
		return ErrMissingSession
	}
	now := i.now()
	sess := i.registry.GetOrCreate(frame.SessionID)
	sess.Touch(now)

	var stratUpdates []strategyUpdate
	entries := make([]model.TimingEntry, 0, len(frame.Cars))
	for idx := range frame.Cars {
		car := &frame.Cars[idx]
		entry := model.TimingEntry{
			CarID:      car.CarID,
			DriverID:   car.DriverID,
			DriverName: car.DriverName,
			CarNumber:  car.CarNumber,
			Position:   car.Position,
			Lap:        car.Lap,
			LapDistPct: car.LapDistPct,
			Speed:      car.Speed,
		}
		sess.UpdateDriverTiming(entry, now)
		if strat, ok := strategyFromCar(car); ok {
			sess.UpdateStrategy(car.CarID, strat)
			stratUpdates = append(stratUpdates, strategyUpdate{
				SessionID: frame.SessionID,
				CarID:     car.CarID,
				Strategy:  strat,
			})
		}
		// identity may have been resolved by an earlier frame
		if ds, ok := sess.Driver(car.CarID); ok {
			entry.DriverID = ds.DriverID
			entry.DriverName = ds.DriverName
			entry.CarNumber = ds.CarNumber
		}
		entries = append(entries, entry)
	}

	snap := &model.TimingSnapshot{
		SessionID:     frame.SessionID,
		SessionTimeMs: frame.SessionTimeMs,
		Timestamp:     now,
		Entries:       entries,
	}
	if i.recorder != nil {
		i.recorder.Record(snap)
	}
	i.dispatcher.Dispatch(sess, model.EventTimingUpdate, snap)
	for idx := range stratUpdates {
		i.dispatcher.Dispatch(sess, model.EventStrategyUpdate, &stratUpdates[idx])
	}
	if i.observer != nil {
		i.observer.Observe(sess, snap)
	}
	i.sample(frame.SessionID, len(entries), frame.SessionTimeMs)
	return nil
}

// ProcessBinary handles one compact binary frame. The session id comes
// from the transport (subject suffix), not the payload. Truncated
// payloads yield the records that fit.
func (i *Ingester) ProcessBinary(sessionID string, payload []byte) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	frame, err := DecodeBinaryFrame(payload)
	if err != nil {
		return err
	}
	now := i.now()
	sess := i.registry.GetOrCreate(sessionID)
	sess.Touch(now)

	entries := make([]model.TimingEntry, 0, len(frame.Cars))
	for idx := range frame.Cars {
		car := &frame.Cars[idx]
		entry := model.TimingEntry{
			CarID:      int(car.CarID),
			Position:   int(car.Position),
			Lap:        int(car.Lap),
			LapDistPct: float64(car.LapDistPct),
			Speed:      float64(car.Speed),
		}
		sess.UpdateDriverTiming(entry, now)
		// binary frames carry no identity; merge what the session knows
		if ds, ok := sess.Driver(entry.CarID); ok {
			entry.DriverID = ds.DriverID
			entry.DriverName = ds.DriverName
			entry.CarNumber = ds.CarNumber
		}
		entries = append(entries, entry)
	}

	snap := &model.TimingSnapshot{
		SessionID:     sessionID,
		SessionTimeMs: frame.Timestamp * 1000,
		Timestamp:     now,
		Entries:       entries,
	}
	if i.recorder != nil {
		i.recorder.Record(snap)
	}
	i.dispatcher.Dispatch(sess, model.EventTimingUpdate, snap)
	if i.observer != nil {
		i.observer.Observe(sess, snap)
	}
	i.sample(sessionID, len(entries), snap.SessionTimeMs)
	return nil
}

func strategyFromCar(car *model.CarFrame) (model.StrategySnapshot, bool) {
	if car.Fuel == nil && car.FuelPct == nil &&
		len(car.TireWear) == 0 && len(car.TireTemps) == 0 {
		return model.StrategySnapshot{}, false
	}
	ret := model.StrategySnapshot{
		TireWear:  car.TireWear,
		TireTemps: car.TireTemps,
	}
	if car.Fuel != nil {
		ret.FuelLevel = *car.Fuel
	}
	if car.FuelPct != nil {
		ret.FuelPct = *car.FuelPct
	}
	return ret, true
}

func (i *Ingester) sample(sessionID string, cars int, sessionTimeMs float64) {
	if i.frames.Add(1)%frameSampleRate != 0 {
		return
	}
	i.l.Debug("telemetry frame",
		log.String("sessionId", sessionID),
		log.Int("cars", cars),
		log.Float64("sessionTimeMs", sessionTimeMs))
}
