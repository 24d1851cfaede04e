// Package redact strips restricted fields from payloads crossing into
// the public/broadcast audience. Internal audiences (team, official)
// bypass this package entirely.
package redact

import (
	"strings"

	"github.com/samber/lo"
)

// deny-list for the generic strip: competitively sensitive data and
// steward/AI annotations. Keys are matched case-insensitively; keys
// starting with '_' are internal-only and always dropped.
var deniedKeys = map[string]struct{}{
	"fuel":             {},
	"fuellevel":        {},
	"fuelpct":          {},
	"fuelperlap":       {},
	"tirewear":         {},
	"tiretemps":        {},
	"tirepressure":     {},
	"strategy":         {},
	"pitplanned":       {},
	"pitstrategy":      {},
	"pitwindow":        {},
	"damage":           {},
	"stewardnotes":     {},
	"aireasoning":      {},
	"aiconfidence":     {},
	"annotations":      {},
	"faultprobability": {},
}

func denied(key string) bool {
	if strings.HasPrefix(key, "_") {
		return true
	}
	_, ok := deniedKeys[strings.ToLower(key)]
	return ok
}

// Strip returns a deep copy of value with all denied keys removed at
// any nesting depth. Scalars pass through unchanged; the input is
// never mutated.
func Strip(value any) any {
	switch v := value.(type) {
	case map[string]any:
		ret := make(map[string]any, len(v))
		for key, inner := range v {
			if denied(key) {
				continue
			}
			ret[key] = Strip(inner)
		}
		return ret
	case []any:
		return lo.Map(v, func(item any, _ int) any { return Strip(item) })
	default:
		return value
	}
}

// allow-list for the thin broadcast frame: bounds payload size for the
// highest-frequency public feed, not just sensitivity.
var thinFrameKeys = map[string]struct{}{
	"sessionid":     {},
	"sessiontimems": {},
	"timestamp":     {},
	"flags":         {},
	"entries":       {},
	"cars":          {},
	"carid":         {},
	"driverid":      {},
	"drivername":    {},
	"carnumber":     {},
	"position":      {},
	"lap":           {},
	"lapdistpct":    {},
	"speed":         {},
	"gap":           {},
}

// ThinFrame reduces a timing frame to the small fixed field set allowed
// on the public feed.
func ThinFrame(frame map[string]any) map[string]any {
	return allowListed(frame, thinFrameKeys)
}

// allow-list for public incident events: identity, type, severity and
// location survive; fault attribution (probabilities, roles) and
// reasoning do not.
var thinIncidentKeys = map[string]struct{}{
	"id":              {},
	"sessionid":       {},
	"type":            {},
	"contacttype":     {},
	"severity":        {},
	"severityscore":   {},
	"lapnumber":       {},
	"sessiontimems":   {},
	"trackposition":   {},
	"cornername":      {},
	"status":          {},
	"involveddrivers": {},
	"driverid":        {},
	"name":            {},
	"carnumber":       {},
	"createdat":       {},
}

// ThinIncident reduces an incident payload for the public feed.
func ThinIncident(incident map[string]any) map[string]any {
	return allowListed(incident, thinIncidentKeys)
}

func allowListed(value map[string]any, allowed map[string]struct{}) map[string]any {
	ret := make(map[string]any, len(value))
	for key, inner := range value {
		if _, ok := allowed[strings.ToLower(key)]; !ok {
			continue
		}
		switch v := inner.(type) {
		case map[string]any:
			ret[key] = allowListed(v, allowed)
		case []any:
			ret[key] = lo.Map(v, func(item any, _ int) any {
				if m, ok := item.(map[string]any); ok {
					return allowListed(m, allowed)
				}
				return item
			})
		default:
			ret[key] = inner
		}
	}
	return ret
}
