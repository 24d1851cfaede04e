package natspub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "live.public.s1.timing-update",
		Subject("s1", model.AudiencePublic, model.EventTimingUpdate))
	assert.Equal(t, "live.team.s1.incident-new",
		Subject("s1", model.AudienceTeam, model.EventIncidentNew))
}
