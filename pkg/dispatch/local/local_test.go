package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	sub := p.Subscribe(model.AudienceTeam)
	require.NoError(t, p.Publish("s1", model.AudienceTeam,
		model.EventTimingUpdate, "payload"))

	ev := receive(t, sub)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, model.EventTimingUpdate, ev.Type)
	assert.Equal(t, "payload", ev.Payload)
}

func TestAllSubscribersOfAnAudienceReceive(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	first := p.Subscribe(model.AudienceOfficial)
	second := p.Subscribe(model.AudienceOfficial)
	require.NoError(t, p.Publish("s1", model.AudienceOfficial,
		model.EventIncidentNew, 42))

	assert.Equal(t, 42, receive(t, first).Payload)
	assert.Equal(t, 42, receive(t, second).Payload)
}

func TestAudiencesAreIsolated(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	team := p.Subscribe(model.AudienceTeam)
	public := p.Subscribe(model.AudiencePublic)
	require.NoError(t, p.Publish("s1", model.AudiencePublic,
		model.EventFrame, "pub"))

	assert.Equal(t, "pub", receive(t, public).Payload)
	select {
	case ev := <-team:
		t.Fatalf("team must not see public events, got %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelSubscriptionClosesChannel(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	sub := p.Subscribe(model.AudienceTeam)
	p.CancelSubscription(model.AudienceTeam, sub)

	select {
	case _, ok := <-sub:
		assert.False(t, ok, "channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
