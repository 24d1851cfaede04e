package spotter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
)

type captured struct {
	event   model.EventType
	payload any
}

type fakeDispatcher struct {
	events []captured
}

func (f *fakeDispatcher) Dispatch(
	sess *session.Session, event model.EventType, payload any,
) {
	f.events = append(f.events, captured{event: event, payload: payload})
}

func testClock(start time.Time) (func() time.Time, func(d time.Duration)) {
	cur := start
	return func() time.Time { return cur },
		func(d time.Duration) { cur = cur.Add(d) }
}

func snapshot(sessionID string, pcts ...float64) *model.TimingSnapshot {
	entries := make([]model.TimingEntry, 0, len(pcts))
	for i, pct := range pcts {
		entries = append(entries, model.TimingEntry{
			CarID:      i + 1,
			LapDistPct: pct,
			Lap:        5,
		})
	}
	return &model.TimingSnapshot{
		SessionID:     sessionID,
		SessionTimeMs: 90000,
		Entries:       entries,
	}
}

func TestObserveDetectsOverlap(t *testing.T) {
	fake := &fakeDispatcher{}
	sess := session.NewRegistry().GetOrCreate("s1")
	s := NewSpotter(fake)

	s.Observe(sess, snapshot("s1", 0.500, 0.503, 0.700))

	require.Len(t, fake.events, 1)
	assert.Equal(t, model.EventEngineerUpdate, fake.events[0].event)
	update := fake.events[0].payload.(*Update)
	assert.Equal(t, KindOverlap, update.Kind)
	assert.Equal(t, []int{1, 2}, update.CarIDs)
	assert.InDelta(t, 90000, update.SessionTimeMs, 0.001)
}

func TestObserveDetectsThreeWide(t *testing.T) {
	fake := &fakeDispatcher{}
	sess := session.NewRegistry().GetOrCreate("s1")
	s := NewSpotter(fake)

	s.Observe(sess, snapshot("s1", 0.501, 0.500, 0.504))

	require.Len(t, fake.events, 1)
	update := fake.events[0].payload.(*Update)
	assert.Equal(t, KindThreeWide, update.Kind)
	assert.Len(t, update.CarIDs, 3)
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	fake := &fakeDispatcher{}
	sess := session.NewRegistry().GetOrCreate("s1")
	now, advance := testClock(time.Now())
	s := NewSpotter(fake, WithNow(now))

	s.Observe(sess, snapshot("s1", 0.500, 0.503))
	advance(100 * time.Millisecond)
	s.Observe(sess, snapshot("s1", 0.510, 0.513))
	require.Len(t, fake.events, 1, "second overlap within cooldown")

	advance(500 * time.Millisecond)
	s.Observe(sess, snapshot("s1", 0.520, 0.523))
	assert.Len(t, fake.events, 2)
}

func TestCooldownIsPerSession(t *testing.T) {
	fake := &fakeDispatcher{}
	reg := session.NewRegistry()
	now, _ := testClock(time.Now())
	s := NewSpotter(fake, WithNow(now))

	s.Observe(reg.GetOrCreate("s1"), snapshot("s1", 0.500, 0.503))
	s.Observe(reg.GetOrCreate("s2"), snapshot("s2", 0.500, 0.503))
	assert.Len(t, fake.events, 2)
}

func TestTriggerNotice(t *testing.T) {
	tests := []struct {
		name    string
		trigger model.IncidentTrigger
		want    Kind
		none    bool
	}{
		{
			name: "offtrack alone",
			trigger: model.IncidentTrigger{
				SessionID:       "s1",
				Type:            model.TriggerOffTrackDetected,
				PrimaryDriverID: "d1",
			},
			want: KindOffTrack,
		},
		{
			name: "offtrack with traffic",
			trigger: model.IncidentTrigger{
				SessionID:       "s1",
				Type:            model.TriggerOffTrackDetected,
				PrimaryDriverID: "d1",
				NearbyDriverIDs: []string{"d2"},
			},
			want: KindUnsafeRejoin,
		},
		{
			name: "spin is not a spotter call",
			trigger: model.IncidentTrigger{
				SessionID:       "s1",
				Type:            model.TriggerSpinDetected,
				PrimaryDriverID: "d1",
			},
			none: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDispatcher{}
			sess := session.NewRegistry().GetOrCreate("s1")
			s := NewSpotter(fake)

			s.TriggerNotice(sess, &tt.trigger)

			if tt.none {
				assert.Empty(t, fake.events)
				return
			}
			require.Len(t, fake.events, 1)
			update := fake.events[0].payload.(*Update)
			assert.Equal(t, tt.want, update.Kind)
		})
	}
}

func TestDropResetsCooldowns(t *testing.T) {
	fake := &fakeDispatcher{}
	sess := session.NewRegistry().GetOrCreate("s1")
	now, _ := testClock(time.Now())
	s := NewSpotter(fake, WithNow(now))

	s.Observe(sess, snapshot("s1", 0.500, 0.503))
	s.Observe(sess, snapshot("s1", 0.500, 0.503))
	require.Len(t, fake.events, 1)

	s.Drop("s1")
	s.Observe(sess, snapshot("s1", 0.500, 0.503))
	assert.Len(t, fake.events, 2)
}
