package delay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

var base = time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)

func newTestBuffer(delayMs int64) (*Buffer, *time.Time) {
	now := base
	b := NewBuffer(WithNow(func() time.Time { return now }))
	b.SetDelay(delayMs)
	return b, &now
}

func TestBufferSetDelay(t *testing.T) {
	b := NewBuffer()
	for _, ms := range []int64{0, 10000, 30000, 60000, 120000} {
		assert.True(t, b.SetDelay(ms), "delay %d should be accepted", ms)
		assert.Equal(t, ms, b.Delay())
	}
	b.SetDelay(30000)
	for _, ms := range []int64{-1, 1, 15000, 45000, 240000} {
		assert.False(t, b.SetDelay(ms), "delay %d should be rejected", ms)
		assert.Equal(t, int64(30000), b.Delay(), "rejected delay must not change state")
	}
}

func TestBufferHoldsUntilDue(t *testing.T) {
	b, now := newTestBuffer(30000)
	b.Enqueue(model.EventTimingUpdate, "payload")

	// 29s later: not yet due
	got := b.Flush(base.Add(29 * time.Second))
	assert.Empty(t, got)

	// 31s later: released
	got = b.Flush(base.Add(31 * time.Second))
	if assert.Len(t, got, 1) {
		assert.Equal(t, model.EventTimingUpdate, got[0].Type)
		assert.Equal(t, "payload", got[0].Payload)
	}
	_ = now
}

func TestBufferZeroDelayIsNoop(t *testing.T) {
	b, _ := newTestBuffer(0)
	b.Enqueue(model.EventTimingUpdate, "payload")
	assert.Equal(t, 0, b.State().Depths[model.EventTimingUpdate])
	assert.Empty(t, b.Flush(base.Add(time.Hour)))
}

func TestBufferInterleavesTypesInProducerOrder(t *testing.T) {
	b, now := newTestBuffer(10000)
	b.Enqueue(model.EventTimingUpdate, 1)
	*now = base.Add(100 * time.Millisecond)
	b.Enqueue(model.EventIncidentNew, 2)
	*now = base.Add(200 * time.Millisecond)
	b.Enqueue(model.EventTimingUpdate, 3)

	got := b.Flush(base.Add(15 * time.Second))
	if assert.Len(t, got, 3) {
		assert.Equal(t, []any{1, 2, 3},
			[]any{got[0].Payload, got[1].Payload, got[2].Payload})
	}
}

func TestBufferFlushKeepsRemainder(t *testing.T) {
	b, now := newTestBuffer(10000)
	b.Enqueue(model.EventTimingUpdate, "old")
	*now = base.Add(8 * time.Second)
	b.Enqueue(model.EventTimingUpdate, "young")

	got := b.Flush(base.Add(11 * time.Second))
	if assert.Len(t, got, 1) {
		assert.Equal(t, "old", got[0].Payload)
	}
	assert.Equal(t, 1, b.State().Depths[model.EventTimingUpdate])

	got = b.Flush(base.Add(20 * time.Second))
	if assert.Len(t, got, 1) {
		assert.Equal(t, "young", got[0].Payload)
	}
}

func TestBufferOverflowEvictsOldest(t *testing.T) {
	b, _ := newTestBuffer(120000)
	for i := 0; i < MaxQueueDepth+5; i++ {
		b.Enqueue(model.EventTimingUpdate, i)
	}
	state := b.State()
	assert.Equal(t, MaxQueueDepth, state.Depths[model.EventTimingUpdate])
	assert.Equal(t, uint64(5), state.Dropped)

	got := b.Flush(base.Add(3 * time.Minute))
	if assert.Len(t, got, MaxQueueDepth) {
		// entries 0..4 were evicted
		assert.Equal(t, 5, got[0].Payload)
		assert.Equal(t, MaxQueueDepth+4, got[len(got)-1].Payload)
	}
}

func TestBufferClear(t *testing.T) {
	b, _ := newTestBuffer(10000)
	b.Enqueue(model.EventTimingUpdate, "payload")
	b.Clear()
	assert.Equal(t, 0, b.State().Depths[model.EventTimingUpdate])
	assert.Empty(t, b.Flush(base.Add(time.Hour)))
	b.Clear()
}

func TestBufferStateListsAllBufferedTypes(t *testing.T) {
	b, _ := newTestBuffer(10000)
	b.Enqueue(model.EventIncidentNew, "payload")

	state := b.State()
	for _, eventType := range model.BufferedEventTypes() {
		assert.Contains(t, state.Depths, eventType)
	}
	assert.Equal(t, 1, state.Depths[model.EventIncidentNew])
	assert.Equal(t, 0, state.Depths[model.EventTimingUpdate])
}

func TestAllowedDelay(t *testing.T) {
	assert.True(t, AllowedDelay(0))
	assert.True(t, AllowedDelay(120000))
	assert.False(t, AllowedDelay(5000))
}
