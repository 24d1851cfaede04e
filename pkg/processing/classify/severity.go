package classify

import (
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/profile"
)

// base score per incident type; trigger data adds on top
var severityBase = map[model.IncidentType]float64{
	model.IncidentContact:       30,
	model.IncidentLossOfControl: 25,
	model.IncidentSpin:          20,
	model.IncidentOffTrack:      10,
}

// scoreSeverity computes the 0-100 severity score and its category.
// The score is a weighted sum of trigger measurements relative to the
// discipline profile; the category for contact follows the profile's
// speed-delta bands directly so that the same delta can be medium in
// one discipline and light in another.
func scoreSeverity(
	trigger *model.IncidentTrigger,
	incidentType model.IncidentType,
	prof profile.Profile,
) (float64, model.Severity) {
	score := severityBase[incidentType]
	score += ratio(trigger.Data.SpeedDelta, prof.HeavyContactSpeedDelta, 1.25) * 40
	score += ratio(trigger.Data.ClosingSpeed, prof.DangerousClosingSpeed, 1.25) * 15
	score += ratio(trigger.Data.OffTrackDistance, prof.OffTrackDistance, 1.5) * 10
	score += ratio(trigger.Data.SpinDurationMs, prof.SpinDurationMs, 1.5) * 10
	if bump := float64(trigger.Data.IncidentDelta) * 2; bump > 0 {
		if bump > 10 {
			bump = 10
		}
		score += bump
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, category(trigger, incidentType, prof, score)
}

func category(
	trigger *model.IncidentTrigger,
	incidentType model.IncidentType,
	prof profile.Profile,
	score float64,
) model.Severity {
	if incidentType == model.IncidentContact && trigger.Data.SpeedDelta > 0 {
		switch {
		case trigger.Data.SpeedDelta >= prof.HeavyContactSpeedDelta:
			return model.SeverityHeavy
		case trigger.Data.SpeedDelta >= prof.MediumContactSpeedDelta:
			return model.SeverityMedium
		default:
			return model.SeverityLight
		}
	}
	switch {
	case score >= 70:
		return model.SeverityHeavy
	case score >= 40:
		return model.SeverityMedium
	default:
		return model.SeverityLight
	}
}

func ratio(value, reference, limit float64) float64 {
	if value <= 0 || reference <= 0 {
		return 0
	}
	r := value / reference
	if r > limit {
		r = limit
	}
	return r
}
