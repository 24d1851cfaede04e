package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/profile"
)

type fixedSnaps struct {
	snaps []*model.TimingSnapshot
}

func (s fixedSnaps) Recent(string, int) []*model.TimingSnapshot { return s.snaps }

func (s fixedSnaps) Around(string, float64, float64) []*model.TimingSnapshot {
	return s.snaps
}

func TestContactTypeFromTimingHistory(t *testing.T) {
	// the trigger carries no closing speed, the history shows a 50 km/h
	// speed difference between the drivers shortly before the trigger
	snaps := fixedSnaps{snaps: []*model.TimingSnapshot{
		{
			SessionID:     "s1",
			SessionTimeMs: 60000,
			Entries: []model.TimingEntry{
				{CarID: 1, DriverID: "d1", Speed: 250},
				{CarID: 2, DriverID: "d2", Speed: 200},
			},
		},
	}}
	e := NewEngine(&memStore{}, snaps, profile.NewStore())

	inc, err := e.Classify(context.Background(),
		testSession(profile.DisciplineRoad), contactTrigger(10, "d2"))
	require.NoError(t, err)
	assert.Equal(t, model.ContactDivebomb, inc.ContactType)
}

func TestContactTypeSideFromOverlap(t *testing.T) {
	e := NewEngine(&memStore{}, noSnaps{}, profile.NewStore())
	trigger := contactTrigger(10, "d2")
	trigger.Data.OverlapRatio = 0.6 // road profile overlap threshold is 0.5

	inc, err := e.Classify(context.Background(),
		testSession(profile.DisciplineRoad), trigger)
	require.NoError(t, err)
	assert.Equal(t, model.ContactSide, inc.ContactType)
}
