// Package snapshots keeps a short per-session history of normalized
// timing snapshots. The classification engine reads this history to
// reconstruct what happened around a trigger.
package snapshots

import (
	"math"
	"slices"
	"sync"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// DefaultCapacity covers roughly two minutes at 1 Hz.
const DefaultCapacity = 120

type Ring struct {
	mu        sync.RWMutex
	capacity  int
	bySession map[string][]*model.TimingSnapshot
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		capacity:  capacity,
		bySession: make(map[string][]*model.TimingSnapshot),
	}
}

// Record appends a snapshot, evicting the oldest when the per-session
// capacity is reached.
func (r *Ring) Record(snap *model.TimingSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := append(r.bySession[snap.SessionID], snap)
	if overflow := len(q) - r.capacity; overflow > 0 {
		q = slices.Delete(q, 0, overflow)
	}
	r.bySession[snap.SessionID] = q
}

// Recent returns up to n of the newest snapshots in chronological
// order.
func (r *Ring) Recent(sessionID string, n int) []*model.TimingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := r.bySession[sessionID]
	if n > len(q) {
		n = len(q)
	}
	return slices.Clone(q[len(q)-n:])
}

// Around returns snapshots whose session time lies within windowMs of
// the given instant, in chronological order.
func (r *Ring) Around(sessionID string, sessionTimeMs, windowMs float64) []*model.TimingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ret []*model.TimingSnapshot
	for _, snap := range r.bySession[sessionID] {
		if math.Abs(snap.SessionTimeMs-sessionTimeMs) <= windowMs {
			ret = append(ret, snap)
		}
	}
	return ret
}

// Drop discards the history of a session. Called on session removal.
func (r *Ring) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySession, sessionID)
}
