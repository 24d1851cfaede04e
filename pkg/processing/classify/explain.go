package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// templateExplainer is the built-in explainer. It renders a short
// steward-facing summary from the classified facts; confidence is the
// share of those facts that were actually measured rather than
// defaulted.
type templateExplainer struct{}

func (e *templateExplainer) Explain(
	_ context.Context,
	incident *model.Incident,
	trigger *model.IncidentTrigger,
) (string, float64, error) {
	var sb strings.Builder
	subject := "car"
	if len(incident.Involved) > 0 && incident.Involved[0].Name != "" {
		subject = incident.Involved[0].Name
	}

	switch incident.Type {
	case model.IncidentContact:
		fmt.Fprintf(&sb, "%s contact involving %s", contactLabel(incident.ContactType), subject)
		if trigger.Data.SpeedDelta > 0 {
			fmt.Fprintf(&sb, " with a speed delta of %.0f km/h", trigger.Data.SpeedDelta)
		}
	case model.IncidentOffTrack:
		fmt.Fprintf(&sb, "%s left the track", subject)
		if trigger.Data.OffTrackDistance > 0 {
			fmt.Fprintf(&sb, " by %.1f m", trigger.Data.OffTrackDistance)
		}
	case model.IncidentSpin:
		fmt.Fprintf(&sb, "%s spun", subject)
		if trigger.Data.SpinDurationMs > 0 {
			fmt.Fprintf(&sb, " for %.1f s", trigger.Data.SpinDurationMs/1000)
		}
	default:
		fmt.Fprintf(&sb, "%s lost control", subject)
	}
	if incident.CornerName != "" {
		fmt.Fprintf(&sb, " at %s", incident.CornerName)
	}
	fmt.Fprintf(&sb, " on lap %d (%s severity, score %.0f).",
		incident.LapNumber, incident.Severity, incident.SeverityScore)

	return sb.String(), explainConfidence(trigger), nil
}

func contactLabel(ct model.ContactType) string {
	switch ct {
	case model.ContactRearEnd:
		return "Rear-end"
	case model.ContactSide:
		return "Side-by-side"
	case model.ContactDivebomb:
		return "Divebomb"
	default:
		return "Unclassified"
	}
}

func explainConfidence(trigger *model.IncidentTrigger) float64 {
	measured, total := 0, 0
	for _, v := range []float64{
		trigger.Data.SpeedDelta,
		trigger.Data.ClosingSpeed,
		trigger.Data.OffTrackDistance,
		trigger.Data.SpinDurationMs,
		trigger.Data.OverlapRatio,
	} {
		total++
		if v > 0 {
			measured++
		}
	}
	// baseline 0.4 even with no measurements, the trigger itself is a signal
	return 0.4 + 0.6*float64(measured)/float64(total)
}
