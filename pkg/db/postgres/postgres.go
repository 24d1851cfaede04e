package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

// WithTracer logs every statement at debug level.
func WithTracer(logger *log.Logger) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = &queryTracer{log: logger}
	}
}

// InitWithURL creates a pgx pool for the given connection string and
// verifies connectivity with a ping.
func InitWithURL(url string, opts ...PoolConfigOption) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(dbConfig)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type queryTracer struct {
	log *log.Logger
}

func (tracer *queryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	tracer.log.Debug("executing",
		log.String("sql", data.SQL),
		log.Any("args", data.Args))
	return ctx
}

func (tracer *queryTracer) TraceQueryEnd(
	_ context.Context,
	_ *pgx.Conn,
	_ pgx.TraceQueryEndData,
) {
}
