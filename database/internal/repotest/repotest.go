// Package repotest is a behavioural test suite every photoshelf.MetadataRepo
// backend runs against itself.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
)

// Factory returns an empty, migrated repo.
type Factory func(t *testing.T) photoshelf.MetadataRepo

type fixture struct {
	repo photoshelf.MetadataRepo
	ctx  context.Context
}

func (f fixture) account(t *testing.T, email string) photoshelf.Account {
	t.Helper()
	a, err := f.repo.CreateAccount(f.ctx, photoshelf.NewAccount{Name: "n", Email: email, PasswordHash: "h"})
	require.NoError(t, err)
	return a
}

func (f fixture) project(t *testing.T, owner uuid.UUID, name string) photoshelf.Project {
	t.Helper()
	p, err := f.repo.CreateProject(f.ctx, photoshelf.NewProject{AccountID: owner, Name: name})
	require.NoError(t, err)
	return p
}

func (f fixture) photo(t *testing.T, p photoshelf.Project) photoshelf.Photo {
	t.Helper()
	id := uuid.New()
	ph, err := f.repo.CreatePhoto(f.ctx, photoshelf.NewPhoto{
		ID:           id,
		BlobKey:      photoshelf.NewBlobKey(id, "img.jpg"),
		OriginalName: "img.jpg",
		MimeType:     "image/jpeg",
		SizeBytes:    42,
		AccountID:    p.AccountID,
		ProjectID:    p.ID,
	})
	require.NoError(t, err)
	return ph
}

// Run executes the whole suite.
func Run(t *testing.T, newRepo Factory) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newRepo) })
	t.Run("projects", func(t *testing.T) { testProjects(t, newRepo) })
	t.Run("photos", func(t *testing.T) { testPhotos(t, newRepo) })
	t.Run("cascades", func(t *testing.T) { testCascades(t, newRepo) })
}

func testAccounts(t *testing.T, newRepo Factory) {
	f := fixture{repo: newRepo(t), ctx: context.Background()}

	a := f.account(t, "ana@example.com")
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	t.Run("success - get by id and email", func(t *testing.T) {
		got, err := f.repo.GetAccount(f.ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Email, got.Email)
		assert.Equal(t, "h", got.PasswordHash)

		got, err = f.repo.GetAccountByEmail(f.ctx, "ana@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("error - duplicate email", func(t *testing.T) {
		_, err := f.repo.CreateAccount(f.ctx, photoshelf.NewAccount{Name: "x", Email: "ana@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, photoshelf.ErrConflict)
	})

	t.Run("error - missing", func(t *testing.T) {
		_, err := f.repo.GetAccount(f.ctx, uuid.New())
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		_, err = f.repo.GetAccountByEmail(f.ctx, "nobody@example.com")
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
	})
}

func testProjects(t *testing.T, newRepo Factory) {
	f := fixture{repo: newRepo(t), ctx: context.Background()}
	owner := f.account(t, "owner@example.com")
	other := f.account(t, "other@example.com")

	desc := "holiday"
	p, err := f.repo.CreateProject(f.ctx, photoshelf.NewProject{AccountID: owner.ID, Name: "Trip", Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, p.Description)
	assert.Equal(t, "holiday", *p.Description)

	t.Run("success - get scoped to owner", func(t *testing.T) {
		got, err := f.repo.GetProject(f.ctx, owner.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Trip", got.Name)
		require.NotNil(t, got.Description)
		assert.Equal(t, "holiday", *got.Description)
	})

	t.Run("error - other account sees not found", func(t *testing.T) {
		_, err := f.repo.GetProject(f.ctx, other.ID, p.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
	})

	t.Run("error - unknown account", func(t *testing.T) {
		_, err := f.repo.CreateProject(f.ctx, photoshelf.NewProject{AccountID: uuid.New(), Name: "x"})
		assert.Error(t, err)
	})

	t.Run("success - list newest first with counts", func(t *testing.T) {
		f := fixture{repo: newRepo(t), ctx: context.Background()}
		acc := f.account(t, "list@example.com")

		var projects []photoshelf.Project
		for i := range 3 {
			projects = append(projects, f.project(t, acc.ID, fmt.Sprintf("p%d", i)))
			time.Sleep(2 * time.Millisecond)
		}
		f.photo(t, projects[1])
		f.photo(t, projects[1])

		items, err := f.repo.ListProjects(f.ctx, acc.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "p2", items[0].Name)
		assert.Equal(t, "p1", items[1].Name)
		assert.Equal(t, int64(2), items[1].PhotoCount)
		assert.Equal(t, int64(0), items[2].PhotoCount)

		page, err := f.repo.ListProjects(f.ctx, acc.ID, photoshelf.Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "p0", page[0].Name)

		stranger := f.account(t, "stranger@example.com")
		none, err := f.repo.ListProjects(f.ctx, stranger.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("success - partial update", func(t *testing.T) {
		name := "Renamed"
		got, err := f.repo.UpdateProject(f.ctx, owner.ID, p.ID, photoshelf.ProjectUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		require.NotNil(t, got.Description, "description untouched")

		empty := ""
		got, err = f.repo.UpdateProject(f.ctx, owner.ID, p.ID, photoshelf.ProjectUpdate{Description: &empty})
		require.NoError(t, err)
		assert.Nil(t, got.Description, "empty description clears it")
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("error - update by other account", func(t *testing.T) {
		name := "Hijacked"
		_, err := f.repo.UpdateProject(f.ctx, other.ID, p.ID, photoshelf.ProjectUpdate{Name: &name})
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		got, err := f.repo.GetProject(f.ctx, owner.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("error - delete by other account", func(t *testing.T) {
		_, err := f.repo.DeleteProject(f.ctx, other.ID, p.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		_, err = f.repo.GetProject(f.ctx, owner.ID, p.ID)
		assert.NoError(t, err)
	})
}

func testPhotos(t *testing.T, newRepo Factory) {
	f := fixture{repo: newRepo(t), ctx: context.Background()}
	owner := f.account(t, "owner@example.com")
	other := f.account(t, "other@example.com")
	p := f.project(t, owner.ID, "album")
	q := f.project(t, owner.ID, "second")
	foreign := f.project(t, other.ID, "theirs")

	ph := f.photo(t, p)

	t.Run("success - get requires the full chain", func(t *testing.T) {
		got, err := f.repo.GetPhoto(f.ctx, owner.ID, p.ID, ph.ID)
		require.NoError(t, err)
		assert.Equal(t, ph.BlobKey, got.BlobKey)
		assert.Equal(t, int64(42), got.SizeBytes)
		assert.Equal(t, "image/jpeg", got.MimeType)

		_, err = f.repo.GetPhoto(f.ctx, owner.ID, q.ID, ph.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound, "wrong project")

		_, err = f.repo.GetPhoto(f.ctx, other.ID, p.ID, ph.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound, "wrong account")
	})

	t.Run("error - photo account must own the project", func(t *testing.T) {
		id := uuid.New()
		_, err := f.repo.CreatePhoto(f.ctx, photoshelf.NewPhoto{
			ID:           id,
			BlobKey:      photoshelf.NewBlobKey(id, "x.png"),
			OriginalName: "x.png",
			MimeType:     "image/png",
			SizeBytes:    1,
			AccountID:    owner.ID,
			ProjectID:    foreign.ID,
		})
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
	})

	t.Run("error - duplicate blob key", func(t *testing.T) {
		_, err := f.repo.CreatePhoto(f.ctx, photoshelf.NewPhoto{
			ID:           uuid.New(),
			BlobKey:      ph.BlobKey,
			OriginalName: "dup.jpg",
			MimeType:     "image/jpeg",
			SizeBytes:    1,
			AccountID:    owner.ID,
			ProjectID:    p.ID,
		})
		assert.ErrorIs(t, err, photoshelf.ErrConflict)
	})

	t.Run("success - list is scoped to the project", func(t *testing.T) {
		time.Sleep(2 * time.Millisecond)
		newer := f.photo(t, p)
		f.photo(t, q)

		items, err := f.repo.ListPhotos(f.ctx, owner.ID, p.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, newer.ID, items[0].ID)
		assert.Equal(t, ph.ID, items[1].ID)

		items, err = f.repo.ListPhotos(f.ctx, other.ID, p.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("delete photo", func(t *testing.T) {
		err := f.repo.DeletePhoto(f.ctx, other.ID, ph.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound, "other account cannot delete")

		require.NoError(t, f.repo.DeletePhoto(f.ctx, owner.ID, ph.ID))

		_, err = f.repo.GetPhoto(f.ctx, owner.ID, p.ID, ph.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		err = f.repo.DeletePhoto(f.ctx, owner.ID, ph.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound, "second delete")
	})
}

func testCascades(t *testing.T, newRepo Factory) {
	t.Run("delete project returns exactly its keys", func(t *testing.T) {
		f := fixture{repo: newRepo(t), ctx: context.Background()}
		owner := f.account(t, "owner@example.com")
		p := f.project(t, owner.ID, "doomed")
		keep := f.project(t, owner.ID, "kept")

		var want []string
		for range 3 {
			want = append(want, f.photo(t, p).BlobKey)
		}
		kept := f.photo(t, keep)

		keys, err := f.repo.DeleteProject(f.ctx, owner.ID, p.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, keys)

		_, err = f.repo.GetProject(f.ctx, owner.ID, p.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		items, err := f.repo.ListPhotos(f.ctx, owner.ID, p.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, items, "photos cascaded")

		_, err = f.repo.GetPhoto(f.ctx, owner.ID, keep.ID, kept.ID)
		assert.NoError(t, err, "sibling project untouched")

		_, err = f.repo.DeleteProject(f.ctx, owner.ID, p.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
	})

	t.Run("delete empty project returns no keys", func(t *testing.T) {
		f := fixture{repo: newRepo(t), ctx: context.Background()}
		owner := f.account(t, "owner@example.com")
		p := f.project(t, owner.ID, "empty")

		keys, err := f.repo.DeleteProject(f.ctx, owner.ID, p.ID)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("delete account cascades through projects and photos", func(t *testing.T) {
		f := fixture{repo: newRepo(t), ctx: context.Background()}
		owner := f.account(t, "owner@example.com")
		bystander := f.account(t, "bystander@example.com")

		var want []string
		for i := range 2 {
			p := f.project(t, owner.ID, fmt.Sprintf("p%d", i))
			for range 2 {
				want = append(want, f.photo(t, p).BlobKey)
			}
		}
		theirs := f.project(t, bystander.ID, "theirs")
		theirPhoto := f.photo(t, theirs)

		keys, err := f.repo.DeleteAccount(f.ctx, owner.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, keys)

		_, err = f.repo.GetAccount(f.ctx, owner.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)

		projects, err := f.repo.ListProjects(f.ctx, owner.ID, photoshelf.Page{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, projects)

		_, err = f.repo.GetPhoto(f.ctx, bystander.ID, theirs.ID, theirPhoto.ID)
		assert.NoError(t, err)

		_, err = f.repo.DeleteAccount(f.ctx, owner.ID)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
	})
}
