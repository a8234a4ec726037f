package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testPoolErr  error
)

// getSharedTestDatabase returns a pool on a container shared by every test in
// the package. Tests isolate themselves with unique table names.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPoolErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			testPoolErr = fmt.Errorf("connection string: %w", err)
			return
		}

		testPool, testPoolErr = pgxpool.New(ctx, connectionStr)
	})

	require.NoError(t, testPoolErr)
	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func uniqueTables(t *testing.T) photoshelf.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return photoshelf.Tables{
		Accounts: "accounts_" + suffix,
		Projects: "projects_" + suffix,
		Photos:   "photos_" + suffix,
	}
}

// getDSN extracts the DSN from the pool config.
func getDSN(pool *pgxpool.Pool) string {
	return pool.Config().ConnString()
}

// setupTestRepo migrates a fresh set of tables and drops them after the test.
func setupTestRepo(t *testing.T) photoshelf.MetadataRepo {
	t.Helper()
	ctx := context.Background()
	pool := getSharedTestDatabase(t)
	tables := uniqueTables(t)

	require.NoError(t, postgres.Migrate(ctx, pool, tables), "failed to migrate")
	t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

	repo, err := postgres.NewRepo(pool, tables)
	require.NoError(t, err)
	return repo
}
