package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

var base = time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)

func TestGetOrCreateUsesDefaults(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, "unknown", s.TrackName())
	assert.Equal(t, model.SessionRace, s.Type())
	assert.Equal(t, int64(0), s.Buffer().Delay())

	// second call returns the same instance
	assert.Same(t, s, r.GetOrCreate("s1"))
}

func TestApplyMetadataKeepsExistingOnEmptyFields(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")
	s.ApplyMetadata(&model.SessionMetadata{
		SessionID:   "s1",
		TrackName:   "Thunder Valley Speedway",
		SessionType: model.SessionQualifying,
		Category:    "oval",
	})
	s.ApplyMetadata(&model.SessionMetadata{SessionID: "s1"})
	assert.Equal(t, "Thunder Valley Speedway", s.TrackName())
	assert.Equal(t, model.SessionQualifying, s.Type())
	assert.Equal(t, "oval", s.Category())
}

func TestDriverIdentityLastWriteWins(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")

	// first sighting without identity gets a placeholder
	s.UpdateDriverTiming(model.TimingEntry{CarID: 7, Position: 3}, base)
	ds, ok := s.Driver(7)
	require.True(t, ok)
	assert.Equal(t, PlaceholderName(7), ds.DriverName)

	// real identity arrives
	s.UpdateDriverTiming(model.TimingEntry{
		CarID: 7, DriverID: "d7", DriverName: "A. Driver", CarNumber: "07",
	}, base)

	// later frames without identity must not erase it
	s.UpdateDriverTiming(model.TimingEntry{CarID: 7, Position: 2, Speed: 241}, base)
	ds, _ = s.Driver(7)
	assert.Equal(t, "A. Driver", ds.DriverName)
	assert.Equal(t, "d7", ds.DriverID)
	assert.Equal(t, "07", ds.CarNumber)
	assert.Equal(t, 2, ds.Position)

	// a driver swap overwrites
	s.UpdateDriverTiming(model.TimingEntry{
		CarID: 7, DriverID: "d8", DriverName: "B. Driver",
	}, base)
	ds, _ = s.Driver(7)
	assert.Equal(t, "B. Driver", ds.DriverName)
}

func TestDriversSortedByPosition(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")
	s.UpdateDriverTiming(model.TimingEntry{CarID: 1, Position: 3}, base)
	s.UpdateDriverTiming(model.TimingEntry{CarID: 2, Position: 1}, base)
	s.UpdateDriverTiming(model.TimingEntry{CarID: 3, Position: 2}, base)

	got := s.Drivers()
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{got[0].CarID, got[1].CarID, got[2].CarID})
}

func TestDriverByID(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")
	s.UpdateDriverTiming(model.TimingEntry{CarID: 7, DriverID: "d7"}, base)

	_, ok := s.DriverByID("d7")
	assert.True(t, ok)
	_, ok = s.DriverByID("unknown")
	assert.False(t, ok)
}

func TestSetDelayValidation(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.SetDelay("s1", 30000))
	s, _ := r.Get("s1")
	assert.Equal(t, int64(30000), s.Buffer().Delay())

	assert.False(t, r.SetDelay("s1", 12345))
	assert.Equal(t, int64(30000), s.Buffer().Delay())
}

func TestRemoveClearsBuffer(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("s1")
	s.Buffer().SetDelay(10000)
	s.Buffer().Enqueue(model.EventTimingUpdate, "payload")

	r.Remove("s1")
	_, ok := r.Get("s1")
	assert.False(t, ok)
	assert.Empty(t, s.Buffer().State().Depths)

	// idempotent
	r.Remove("s1")
}

func TestSweepRemovesStaleSessions(t *testing.T) {
	now := base
	r := NewRegistry(WithNow(func() time.Time { return now }))
	r.GetOrCreate("stale")
	now = now.Add(10 * time.Minute)
	r.GetOrCreate("fresh")

	removed := r.Sweep(5 * time.Minute)
	assert.Equal(t, []string{"stale"}, removed)
	_, ok := r.Get("fresh")
	assert.True(t, ok)
	_, ok = r.Get("stale")
	assert.False(t, ok)
}
