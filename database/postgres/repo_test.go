package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/internal/repotest"
	"github.com/sagarc03/photoshelf/database/postgres"
)

func TestRepo(t *testing.T) {
	repotest.Run(t, setupTestRepo)
}

// TestRepo_CascadeDeleteHarvestsPendingInsert holds a photo insert open while
// a cascade delete starts. The delete must wait for it and return its key.
func TestRepo_CascadeDeleteHarvestsPendingInsert(t *testing.T) {
	tests := []struct {
		name   string
		delete func(ctx context.Context, repo *postgres.Repo, account photoshelf.Account, project photoshelf.Project) ([]string, error)
	}{
		{
			name: "project",
			delete: func(ctx context.Context, repo *postgres.Repo, account photoshelf.Account, project photoshelf.Project) ([]string, error) {
				return repo.DeleteProject(ctx, account.ID, project.ID)
			},
		},
		{
			name: "account",
			delete: func(ctx context.Context, repo *postgres.Repo, account photoshelf.Account, _ photoshelf.Project) ([]string, error) {
				return repo.DeleteAccount(ctx, account.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			pool := getSharedTestDatabase(t)
			tables := uniqueTables(t)

			require.NoError(t, postgres.Migrate(ctx, pool, tables))
			t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

			repo, err := postgres.NewRepo(pool, tables)
			require.NoError(t, err)

			account, err := repo.CreateAccount(ctx, photoshelf.NewAccount{
				Name: "owner", Email: getRandomString(t) + "@example.com", PasswordHash: "x",
			})
			require.NoError(t, err)
			project, err := repo.CreateProject(ctx, photoshelf.NewProject{AccountID: account.ID, Name: "p"})
			require.NoError(t, err)

			committed, err := repo.CreatePhoto(ctx, photoshelf.NewPhoto{
				BlobKey: "photos/" + uuid.NewString() + ".jpg", OriginalName: "a.jpg", MimeType: "image/jpeg",
				SizeBytes: 1, AccountID: account.ID, ProjectID: project.ID,
			})
			require.NoError(t, err)

			tx, err := pool.Begin(ctx)
			require.NoError(t, err)
			defer func() { _ = tx.Rollback(ctx) }()

			pendingKey := "photos/" + uuid.NewString() + ".png"
			_, err = tx.Exec(ctx, fmt.Sprintf(
				`INSERT INTO "%s" (id, blob_key, original_name, mime_type, size_bytes, account_id, project_id)
				VALUES ($1, $2, 'b.png', 'image/png', 1, $3, $4)`, tables.Photos),
				uuid.New(), pendingKey, account.ID, project.ID)
			require.NoError(t, err)

			type result struct {
				keys []string
				err  error
			}
			done := make(chan result, 1)
			go func() {
				keys, err := tt.delete(ctx, repo, account, project)
				done <- result{keys, err}
			}()

			require.Eventually(t, func() bool {
				var waiting int
				err := pool.QueryRow(ctx,
					`SELECT count(*) FROM pg_stat_activity WHERE wait_event_type = 'Lock' AND query LIKE '%FOR UPDATE%'`,
				).Scan(&waiting)
				return err == nil && waiting > 0
			}, 5*time.Second, 20*time.Millisecond, "delete should wait on the pending insert")

			require.NoError(t, tx.Commit(ctx))

			select {
			case res := <-done:
				require.NoError(t, res.err)
				assert.ElementsMatch(t, []string{committed.BlobKey, pendingKey}, res.keys)
			case <-time.After(10 * time.Second):
				t.Fatal("delete did not finish")
			}

			var left int
			require.NoError(t, pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM "%s"`, tables.Photos)).Scan(&left))
			assert.Zero(t, left)
		})
	}
}
