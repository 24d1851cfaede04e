package incident

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// Store binds the repository functions to a pool. It satisfies the
// classification engine's persistence dependency.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, inc *model.Incident) error {
	return Create(ctx, s.pool, inc)
}

func (s *Store) LoadBySessionID(ctx context.Context, sessionID string) ([]*model.Incident, error) {
	return LoadBySessionID(ctx, s.pool, sessionID)
}

func (s *Store) UpdateStatus(
	ctx context.Context,
	id string,
	status model.IncidentStatus,
) (int, error) {
	return UpdateStatus(ctx, s.pool, id, status)
}
