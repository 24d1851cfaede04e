package classify

import (
	"context"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// heuristicPredictor is the built-in responsibility model. It assigns
// independent per-driver confidences from the contact geometry; a
// driver crosses into the at_fault role at probability 0.5.
type heuristicPredictor struct{}

const atFaultThreshold = 0.5

//nolint:cyclop // one branch per contact geometry
func (p *heuristicPredictor) Predict(
	_ context.Context,
	incident *model.Incident,
	trigger *model.IncidentTrigger,
) ([]model.ResponsibilityEstimate, error) {
	ret := make([]model.ResponsibilityEstimate, 0, len(incident.Involved))
	primary := trigger.PrimaryDriverID

	var primaryProb, otherProb float64
	switch incident.Type {
	case model.IncidentContact:
		switch incident.ContactType {
		case model.ContactDivebomb:
			primaryProb, otherProb = 0.85, 0.15
		case model.ContactRearEnd:
			primaryProb, otherProb = 0.8, 0.2
		case model.ContactSide:
			primaryProb, otherProb = 0.5, 0.5
		default:
			primaryProb, otherProb = 0.6, 0.3
		}
	case model.IncidentOffTrack, model.IncidentSpin, model.IncidentLossOfControl:
		// solo incidents: the primary driver owns it
		primaryProb, otherProb = 0.9, 0.1
	default:
		primaryProb, otherProb = 0.5, 0.25
	}

	for i := range incident.Involved {
		prob := otherProb
		if incident.Involved[i].DriverID == primary {
			prob = primaryProb
		}
		role := model.RoleInvolved
		if prob >= atFaultThreshold {
			role = model.RoleAtFault
		}
		ret = append(ret, model.ResponsibilityEstimate{
			DriverID:    incident.Involved[i].DriverID,
			Probability: prob,
			Role:        role,
		})
	}
	return ret, nil
}
