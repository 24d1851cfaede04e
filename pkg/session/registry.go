// Package session holds the authoritative registry of live sessions.
// Sessions are created lazily on first touch and removed by a periodic
// sweep once no data has arrived for the configured stale duration.
package session

import (
	"sync"
	"time"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
)

type Registry struct {
	mu     sync.RWMutex
	lookup map[string]*Session
	l      *log.Logger
	now    func() time.Time
}

type Option func(*Registry)

// WithNow replaces the time source (used in tests).
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(r *Registry) {
		r.l = arg
	}
}

func NewRegistry(opts ...Option) *Registry {
	ret := &Registry{
		lookup: make(map[string]*Session),
		l:      log.Default().Named("session"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// GetOrCreate returns the session for the given id, creating it with
// defaults (unknown track, type race, delay 0) on first touch.
func (r *Registry) GetOrCreate(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.lookup[sessionID]; ok {
		return s
	}
	s := newSession(sessionID, r.now())
	r.lookup[sessionID] = s
	r.l.Debug("session created", log.String("sessionId", sessionID))
	return s
}

// Get returns the session if it exists, without creating one.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.lookup[sessionID]
	return s, ok
}

func (r *Registry) Touch(sessionID string) {
	if s, ok := r.Get(sessionID); ok {
		s.Touch(r.now())
	}
}

// SetDelay validates the delay against the allowed discrete set and
// applies it to the session's buffer. Returns false (leaving state
// unchanged) for out-of-set values.
func (r *Registry) SetDelay(sessionID string, delayMs int64) bool {
	s := r.GetOrCreate(sessionID)
	ok := s.Buffer().SetDelay(delayMs)
	if !ok {
		r.l.Warn("rejected delay value",
			log.String("sessionId", sessionID),
			log.Int64("delayMs", delayMs))
	}
	return ok
}

// Sessions returns the currently live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]*Session, 0, len(r.lookup))
	for _, s := range r.lookup {
		ret = append(ret, s)
	}
	return ret
}

// Remove deletes the session and clears its delay buffer. Idempotent.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	s, ok := r.lookup[sessionID]
	delete(r.lookup, sessionID)
	r.mu.Unlock()
	if ok {
		s.Buffer().Clear()
		r.l.Info("session removed", log.String("sessionId", sessionID))
	}
}

// Sweep removes sessions whose last update is older than the given
// inactivity threshold. Returns the ids of the removed sessions so
// callers can drop dependent state.
func (r *Registry) Sweep(inactivity time.Duration) []string {
	cutoff := r.now().Add(-inactivity)
	stale := make([]string, 0)
	r.mu.RLock()
	for id, s := range r.lookup {
		if s.LastUpdate().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()
	for _, id := range stale {
		r.Remove(id)
	}
	return stale
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.lookup {
		s.Buffer().Clear()
	}
	r.lookup = make(map[string]*Session)
}
