// Package spotter produces best-effort engineer-update events for the
// pit wall: cars running side by side, three wide packs, off-track
// excursions and rejoins into traffic. Every kind has a per-session
// cooldown so the feed stays readable under churn; a suppressed
// announcement is simply gone.
package spotter

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

type Kind string

const (
	KindOverlap      Kind = "overlap"
	KindThreeWide    Kind = "three_wide"
	KindOffTrack     Kind = "offtrack"
	KindUnsafeRejoin Kind = "unsafe_rejoin"
)

var cooldowns = map[Kind]time.Duration{
	KindOverlap:      500 * time.Millisecond,
	KindThreeWide:    2 * time.Second,
	KindOffTrack:     5 * time.Second,
	KindUnsafeRejoin: 3 * time.Second,
}

// cars within this much of a lap of each other count as side by side
const proximityWindow = 0.005

// Update is the engineer-update payload.
type Update struct {
	SessionID     string  `json:"sessionId"`
	Kind          Kind    `json:"kind"`
	CarIDs        []int   `json:"carIds"`
	Message       string  `json:"message"`
	SessionTimeMs float64 `json:"sessionTimeMs"`
}

// Dispatcher is the outbound fan-out dependency.
type Dispatcher interface {
	Dispatch(sess *session.Session, event model.EventType, payload any)
}

type Spotter struct {
	dispatcher Dispatcher
	l          *log.Logger
	now        func() time.Time
	mu         sync.Mutex
	last       map[string]time.Time
}

type Option func(*Spotter)

func WithLogger(arg *log.Logger) Option {
	return func(s *Spotter) {
		s.l = arg
	}
}

// WithNow replaces the time source (used in tests).
func WithNow(now func() time.Time) Option {
	return func(s *Spotter) {
		s.now = now
	}
}

func NewSpotter(dispatcher Dispatcher, opts ...Option) *Spotter {
	ret := &Spotter{
		dispatcher: dispatcher,
		l:          log.Default().Named("spotter"),
		now:        time.Now,
		last:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Observe inspects one timing snapshot for proximity situations.
func (s *Spotter) Observe(sess *session.Session, snap *model.TimingSnapshot) {
	entries := make([]model.TimingEntry, len(snap.Entries))
	copy(entries, snap.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LapDistPct < entries[j].LapDistPct
	})

	// group cars running within the proximity window of each other
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) &&
			entries[end].LapDistPct-entries[start].LapDistPct <= proximityWindow {
			end++
		}
		if size := end - start; size >= 2 {
			ids := make([]int, 0, size)
			for _, e := range entries[start:end] {
				ids = append(ids, e.CarID)
			}
			kind := KindOverlap
			msg := fmt.Sprintf("cars %v side by side", ids)
			if size >= 3 {
				kind = KindThreeWide
				msg = fmt.Sprintf("three wide: cars %v", ids)
			}
			s.announce(sess, Update{
				SessionID:     snap.SessionID,
				Kind:          kind,
				CarIDs:        ids,
				Message:       msg,
				SessionTimeMs: snap.SessionTimeMs,
			})
		}
		start = end
	}
}

// TriggerNotice translates off-track triggers into spotter calls. An
// off-track excursion with traffic around the car reads as an unsafe
// rejoin risk.
func (s *Spotter) TriggerNotice(sess *session.Session, trigger *model.IncidentTrigger) {
	if trigger.Type != model.TriggerOffTrackDetected {
		return
	}
	kind := KindOffTrack
	msg := fmt.Sprintf("driver %s off track", trigger.PrimaryDriverID)
	if len(trigger.NearbyDriverIDs) > 0 {
		kind = KindUnsafeRejoin
		msg = fmt.Sprintf("driver %s rejoining into traffic", trigger.PrimaryDriverID)
	}
	s.announce(sess, Update{
		SessionID:     trigger.SessionID,
		Kind:          kind,
		Message:       msg,
		SessionTimeMs: trigger.SessionTimeMs,
	})
}

func (s *Spotter) announce(sess *session.Session, update Update) {
	if !s.clearCooldown(update.SessionID, update.Kind) {
		return
	}
	s.l.Debug("engineer update",
		log.String("sessionId", update.SessionID),
		log.String("kind", string(update.Kind)))
	s.dispatcher.Dispatch(sess, model.EventEngineerUpdate, &update)
}

// clearCooldown reports whether the kind may fire for the session and
// arms the cooldown if so.
func (s *Spotter) clearCooldown(sessionID string, kind Kind) bool {
	now := s.now()
	key := sessionID + "|" + string(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.last[key]; ok && now.Sub(last) < cooldowns[kind] {
		return false
	}
	s.last[key] = now
	return true
}

// Drop discards cooldown state of a session. Called on session removal.
func (s *Spotter) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.last {
		if len(key) > len(sessionID) && key[:len(sessionID)+1] == sessionID+"|" {
			delete(s.last, key)
		}
	}
}
