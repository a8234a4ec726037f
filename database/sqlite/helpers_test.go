package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// uniqueTables returns table names that do not collide between tests.
func uniqueTables(t *testing.T) photoshelf.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return photoshelf.Tables{
		Accounts: "accounts_" + suffix,
		Projects: "projects_" + suffix,
		Photos:   "photos_" + suffix,
	}
}

// setupTestRepo returns a migrated repo on a fresh in-memory database.
func setupTestRepo(t *testing.T) photoshelf.MetadataRepo {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", uniqueTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")
	return db.GetRepo()
}
