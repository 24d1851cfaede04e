//nolint:errcheck // ok for this test code
package incident

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	tcpg "github.com/controlbox-racing/controlbox-service-manager-go/testsupport/tcpostgres"
)

func initTestDb() *pgxpool.Pool {
	pool := tcpg.SetupTestDb()
	tcpg.ClearAllTables(pool)
	return pool
}

func sampleIncident(sessionID string) *model.Incident {
	prob := 0.8
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Incident{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Type:          model.IncidentContact,
		ContactType:   model.ContactRearEnd,
		Severity:      model.SeverityMedium,
		SeverityScore: 52,
		LapNumber:     4,
		SessionTimeMs: 61000,
		TrackPosition: 0.31,
		CornerName:    "Turn 4",
		Involved: []model.InvolvedDriver{
			{
				DriverID:         "d1",
				Name:             "A. Driver",
				CarNumber:        "01",
				Role:             model.RoleAtFault,
				FaultProbability: &prob,
			},
			{DriverID: "d2", Name: "B. Driver", Role: model.RoleInvolved},
		},
		Status:     model.StatusPending,
		Reasoning:  "Rear-end contact involving A. Driver at Turn 4 on lap 4",
		Confidence: 0.7,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCreateAndLoad(t *testing.T) {
	pool := initTestDb()

	want := sampleIncident("s1")
	require.NoError(t, Create(context.Background(), pool, want))

	got, err := LoadByID(context.Background(), pool, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.ContactType, got.ContactType)
	assert.Equal(t, want.Severity, got.Severity)
	assert.Equal(t, want.CornerName, got.CornerName)
	assert.Equal(t, want.Reasoning, got.Reasoning)
	require.Len(t, got.Involved, 2)
	assert.Equal(t, model.RoleAtFault, got.Involved[0].Role)
	require.NotNil(t, got.Involved[0].FaultProbability)
	assert.InDelta(t, 0.8, *got.Involved[0].FaultProbability, 0.001)
}

func TestLoadBySessionOrderedBySessionTime(t *testing.T) {
	pool := initTestDb()

	second := sampleIncident("s1")
	second.SessionTimeMs = 120000
	first := sampleIncident("s1")
	first.SessionTimeMs = 30000
	other := sampleIncident("s2")

	for _, inc := range []*model.Incident{second, first, other} {
		require.NoError(t, Create(context.Background(), pool, inc))
	}

	got, err := LoadBySessionID(context.Background(), pool, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	pool := initTestDb()

	inc := sampleIncident("s1")
	require.NoError(t, Create(context.Background(), pool, inc))

	num, err := UpdateStatus(context.Background(), pool, inc.ID, model.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, 1, num)

	got, err := LoadByID(context.Background(), pool, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, got.Status)

	num, err = UpdateStatus(context.Background(), pool,
		uuid.NewString(), model.StatusDismissed)
	require.NoError(t, err)
	assert.Equal(t, 0, num)
}

func TestDeleteBySessionID(t *testing.T) {
	pool := initTestDb()

	require.NoError(t, Create(context.Background(), pool, sampleIncident("s1")))
	require.NoError(t, Create(context.Background(), pool, sampleIncident("s1")))
	require.NoError(t, Create(context.Background(), pool, sampleIncident("s2")))

	num, err := DeleteBySessionID(context.Background(), pool, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, num)

	got, err := LoadBySessionID(context.Background(), pool, "s2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
