package incident

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, inc *model.Incident) error {
	involved, err := json.Marshal(inc.Involved)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `
	insert into incident (
		id, session_id, incident_type, contact_type, severity, severity_score,
		lap_number, session_time_ms, track_position, corner_name, involved,
		status, ai_reasoning, ai_confidence, created_at, updated_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		inc.ID, inc.SessionID, inc.Type, nullIfEmpty(string(inc.ContactType)),
		inc.Severity, inc.SeverityScore, inc.LapNumber, inc.SessionTimeMs,
		inc.TrackPosition, nullIfEmpty(inc.CornerName), involved,
		inc.Status, nullIfEmpty(inc.Reasoning), inc.Confidence,
		inc.CreatedAt, inc.UpdatedAt)
	return err
}

func LoadByID(ctx context.Context, conn repository.Querier, id string) (*model.Incident, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", selector), id)
	var inc model.Incident
	if err := scan(&inc, row); err != nil {
		return nil, err
	}
	return &inc, nil
}

func LoadBySessionID(
	ctx context.Context,
	conn repository.Querier,
	sessionID string,
) ([]*model.Incident, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where session_id=$1 order by session_time_ms asc", selector),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Incident, 0)
	for rows.Next() {
		var inc model.Incident
		if err := scan(&inc, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &inc)
	}
	return ret, rows.Err()
}

// UpdateStatus moves an incident through the steward workflow
// (pending -> reviewed|dismissed). Returns the number of updated rows.
func UpdateStatus(
	ctx context.Context,
	conn repository.Querier,
	id string,
	status model.IncidentStatus,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, `
	update incident set status=$2, updated_at=now() where id=$1`,
		id, status)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// deletes all incidents of a session, returns number of rows deleted.
func DeleteBySessionID(
	ctx context.Context,
	conn repository.Querier,
	sessionID string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from incident where session_id=$1", sessionID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`
select id, session_id, incident_type, coalesce(contact_type,''), severity,
severity_score, lap_number, session_time_ms, track_position,
coalesce(corner_name,''), involved, status, coalesce(ai_reasoning,''),
coalesce(ai_confidence,0), created_at, updated_at from incident
`)

func scan(inc *model.Incident, row pgx.Row) error {
	var involved []byte
	if err := row.Scan(&inc.ID, &inc.SessionID, &inc.Type, &inc.ContactType,
		&inc.Severity, &inc.SeverityScore, &inc.LapNumber, &inc.SessionTimeMs,
		&inc.TrackPosition, &inc.CornerName, &involved, &inc.Status,
		&inc.Reasoning, &inc.Confidence, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
		return err
	}
	return json.Unmarshal(involved, &inc.Involved)
}

func nullIfEmpty(arg string) any {
	if arg == "" {
		return nil
	}
	return arg
}
