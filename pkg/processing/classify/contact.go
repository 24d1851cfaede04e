package classify

import (
	"math"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/profile"
)

// window of timing history consulted around a contact trigger
const contactWindowMs = 3000

// contactType derives the kind of contact from the trigger data,
// falling back to the timing history when the trigger carries no
// closing speed.
func (e *Engine) contactType(
	trigger *model.IncidentTrigger,
	prof profile.Profile,
) model.ContactType {
	closing := trigger.Data.ClosingSpeed
	if closing == 0 {
		closing = e.closingSpeedFromHistory(trigger)
	}
	switch {
	case closing >= prof.DangerousClosingSpeed:
		return model.ContactDivebomb
	case trigger.Data.OverlapRatio >= prof.OverlapRatio:
		return model.ContactSide
	default:
		return model.ContactRearEnd
	}
}

// closingSpeedFromHistory reconstructs the closing speed between the
// primary and the nearest involved driver from the snapshots around
// the trigger time. Returns 0 when the history is insufficient.
func (e *Engine) closingSpeedFromHistory(trigger *model.IncidentTrigger) float64 {
	if len(trigger.NearbyDriverIDs) == 0 {
		return 0
	}
	snaps := e.snaps.Around(trigger.SessionID, trigger.SessionTimeMs, contactWindowMs)
	var best float64
	for _, snap := range snaps {
		primary, ok := entryByDriver(snap, trigger.PrimaryDriverID)
		if !ok {
			continue
		}
		for _, id := range trigger.NearbyDriverIDs {
			other, ok := entryByDriver(snap, id)
			if !ok {
				continue
			}
			if delta := math.Abs(primary.Speed - other.Speed); delta > best {
				best = delta
			}
		}
	}
	return best
}

func entryByDriver(snap *model.TimingSnapshot, driverID string) (model.TimingEntry, bool) {
	for i := range snap.Entries {
		if snap.Entries[i].DriverID == driverID {
			return snap.Entries[i], true
		}
	}
	return model.TimingEntry{}, false
}
