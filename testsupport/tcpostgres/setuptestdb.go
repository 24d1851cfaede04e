//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/db/migrate"
	database "github.com/controlbox-racing/controlbox-service-manager-go/pkg/db/postgres"
)

// SetupTestDb spins up a postgres container, applies the embedded
// migrations and returns a connection pool for it.
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("controlbox-service-manager-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return initPool(dbURL)
}

// SetupExternalTestDb connects to the database named by TESTDB_URL
// instead of starting a container.
func SetupExternalTestDb() *pgxpool.Pool {
	return initPool(os.Getenv("TESTDB_URL"))
}

func initPool(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDB(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearIncidentTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from incident")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearIncidentTable(pool)
}
