package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/controlbox-racing/controlbox-service-manager-go/testsupport/tcpostgres"
)

func InitTestDb() *pgxpool.Pool {
	var pool *pgxpool.Pool

	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
