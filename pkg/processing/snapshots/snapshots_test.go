package snapshots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

func snap(sessionID string, timeMs float64) *model.TimingSnapshot {
	return &model.TimingSnapshot{SessionID: sessionID, SessionTimeMs: timeMs}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Record(snap("s1", float64(i*1000)))
	}
	got := r.Recent("s1", 10)
	require.Len(t, got, 3)
	assert.InDelta(t, 2000, got[0].SessionTimeMs, 0.001)
	assert.InDelta(t, 4000, got[2].SessionTimeMs, 0.001)
}

func TestRingRecentReturnsNewestInOrder(t *testing.T) {
	r := NewRing(10)
	r.Record(snap("s1", 1000))
	r.Record(snap("s1", 2000))
	r.Record(snap("s1", 3000))

	got := r.Recent("s1", 2)
	require.Len(t, got, 2)
	assert.InDelta(t, 2000, got[0].SessionTimeMs, 0.001)
	assert.InDelta(t, 3000, got[1].SessionTimeMs, 0.001)
}

func TestRingAround(t *testing.T) {
	r := NewRing(10)
	for _, ms := range []float64{1000, 5000, 9000, 14000} {
		r.Record(snap("s1", ms))
	}
	got := r.Around("s1", 7000, 3000)
	require.Len(t, got, 2)
	assert.InDelta(t, 5000, got[0].SessionTimeMs, 0.001)
	assert.InDelta(t, 9000, got[1].SessionTimeMs, 0.001)
}

func TestRingSessionsAreIsolated(t *testing.T) {
	r := NewRing(10)
	r.Record(snap("s1", 1000))
	r.Record(snap("s2", 2000))

	assert.Len(t, r.Recent("s1", 10), 1)
	assert.Len(t, r.Recent("s2", 10), 1)

	r.Drop("s1")
	assert.Empty(t, r.Recent("s1", 10))
	assert.Len(t, r.Recent("s2", 10), 1)
}
