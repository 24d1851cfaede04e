// Package delay implements the per-session broadcast delay buffer.
// Events are held per (session, event-type) queue until they reach the
// configured age, then released in producer order by the flusher.
package delay

import (
	"slices"
	"sync"
	"time"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// MaxQueueDepth limits each (session, event-type) queue. On overflow the
// oldest entries are evicted; delayed feeds favor recency over
// completeness under load.
const MaxQueueDepth = 1000

// the discrete set of permitted broadcast delays
var allowedDelays = []int64{0, 10000, 30000, 60000, 120000}

func AllowedDelay(ms int64) bool {
	return slices.Contains(allowedDelays, ms)
}

// Entry is one buffered event. Seq increases monotonically per buffer
// and breaks ties between entries with identical arrival timestamps.
type Entry struct {
	Type    model.EventType
	Payload any
	Arrived time.Time
	Seq     uint64
}

// State is a diagnostic view of a buffer (depths, drops, last flush).
type State struct {
	DelayMs   int64
	Depths    map[model.EventType]int
	Dropped   uint64
	LastFlush time.Time
}

type Buffer struct {
	mu        sync.Mutex
	delayMs   int64
	queues    map[model.EventType][]Entry
	seq       uint64
	dropped   uint64
	lastFlush time.Time
	now       func() time.Time
}

type Option func(*Buffer)

// WithNow replaces the time source (used in tests).
func WithNow(now func() time.Time) Option {
	return func(b *Buffer) {
		b.now = now
	}
}

func NewBuffer(opts ...Option) *Buffer {
	ret := &Buffer{
		queues: make(map[model.EventType][]Entry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SetDelay accepts only values from the allowed discrete set.
// Invalid values leave the current delay unchanged.
func (b *Buffer) SetDelay(ms int64) bool {
	if !AllowedDelay(ms) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delayMs = ms
	return true
}

func (b *Buffer) Delay() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delayMs
}

// Enqueue appends the payload to the queue for the given event type.
// At delay 0 this is a no-op: the zero-delay path dispatches at the
// call site and must not pay for buffering.
func (b *Buffer) Enqueue(eventType model.EventType, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.delayMs == 0 {
		return
	}
	b.seq++
	q := append(b.queues[eventType], Entry{
		Type:    eventType,
		Payload: payload,
		Arrived: b.now(),
		Seq:     b.seq,
	})
	if overflow := len(q) - MaxQueueDepth; overflow > 0 {
		q = slices.Delete(q, 0, overflow)
		b.dropped += uint64(overflow)
	}
	b.queues[eventType] = q
}

// Flush removes all entries older than now-delay from every queue and
// returns them sorted by arrival time ascending. Entries of different
// types interleave in the order their producers generated them.
func (b *Buffer) Flush(now time.Time) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFlush = now
	threshold := now.Add(-time.Duration(b.delayMs) * time.Millisecond)

	var ready []Entry
	for eventType, q := range b.queues {
		idx := 0
		for idx < len(q) && !q[idx].Arrived.After(threshold) {
			idx++
		}
		if idx == 0 {
			continue
		}
		ready = append(ready, q[:idx]...)
		b.queues[eventType] = slices.Clone(q[idx:])
	}
	slices.SortFunc(ready, func(a, e Entry) int {
		if c := a.Arrived.Compare(e.Arrived); c != 0 {
			return c
		}
		if a.Seq < e.Seq {
			return -1
		}
		return 1
	})
	return ready
}

// Clear drops all queued entries and resets the drop counter.
// Used on session teardown; safe to call repeatedly.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = make(map[model.EventType][]Entry)
	b.dropped = 0
}

// State reports the buffer's diagnostic view. Every buffered event
// type appears in Depths, idle queues included.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	depths := make(map[model.EventType]int, len(b.queues))
	for _, eventType := range model.BufferedEventTypes() {
		depths[eventType] = len(b.queues[eventType])
	}
	for eventType, q := range b.queues {
		depths[eventType] = len(q)
	}
	return State{
		DelayMs:   b.delayMs,
		Depths:    depths,
		Dropped:   b.dropped,
		LastFlush: b.lastFlush,
	}
}
