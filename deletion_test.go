package photoshelf_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/blobstore/memory"
)

func putKeys(t *testing.T, blobs *memory.Store, n int) []string {
	t.Helper()
	keys := make([]string, n)
	for i := range keys {
		keys[i] = photoshelf.NewBlobKey(uuid.New(), fmt.Sprintf("%d.jpg", i))
		require.NoError(t, blobs.Put(context.Background(), keys[i], strings.NewReader("x"), 1, "image/jpeg"))
	}
	return keys
}

func TestOrchestrator_DeletePhoto(t *testing.T) {
	ctx := context.Background()

	t.Run("success - row then blob", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		key := putKeys(t, blobs, 1)[0]
		ph := photoshelf.Photo{ID: uuid.New(), AccountID: uuid.New(), ProjectID: uuid.New(), BlobKey: key}
		repo.On("DeletePhoto", ctx, ph.AccountID, ph.ID).Return(nil)

		report, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeletePhoto(ctx, ph)
		require.NoError(t, err)
		assert.Equal(t, photoshelf.CleanupReport{Keys: 1, Deleted: 1}, report)
		assert.False(t, blobs.Has(key))
	})

	t.Run("blob failure does not fail the delete", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		key := putKeys(t, blobs, 1)[0]
		blobs.FailOn("delete", key)
		ph := photoshelf.Photo{ID: uuid.New(), AccountID: uuid.New(), BlobKey: key}
		repo.On("DeletePhoto", ctx, ph.AccountID, ph.ID).Return(nil)

		report, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeletePhoto(ctx, ph)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.True(t, blobs.Has(key), "orphan is left behind")
		repo.AssertExpectations(t)
	})

	t.Run("metadata failure leaves the blob alone", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		key := putKeys(t, blobs, 1)[0]
		ph := photoshelf.Photo{ID: uuid.New(), AccountID: uuid.New(), BlobKey: key}
		repo.On("DeletePhoto", ctx, ph.AccountID, ph.ID).Return(errors.New("deadlock"))

		_, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeletePhoto(ctx, ph)
		assert.Error(t, err)
		assert.True(t, blobs.Has(key))
	})
}

func TestOrchestrator_DeleteProject(t *testing.T) {
	ctx := context.Background()

	t.Run("success - one batch call with exactly the harvested keys", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		keys := putKeys(t, blobs, 5)
		unrelated := putKeys(t, blobs, 1)[0]
		p := photoshelf.Project{ID: uuid.New(), AccountID: uuid.New()}
		repo.On("DeleteProject", ctx, p.AccountID, p.ID).Return(keys, nil)

		report, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeleteProject(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, photoshelf.CleanupReport{Keys: 5, Deleted: 5}, report)

		calls := blobs.BatchCalls()
		require.Len(t, calls, 1)
		assert.ElementsMatch(t, keys, calls[0])
		assert.True(t, blobs.Has(unrelated))
	})

	t.Run("empty project makes no blob call", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		p := photoshelf.Project{ID: uuid.New(), AccountID: uuid.New()}
		repo.On("DeleteProject", ctx, p.AccountID, p.ID).Return([]string{}, nil)

		report, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeleteProject(ctx, p)
		require.NoError(t, err)
		assert.Zero(t, report.Keys)
		assert.Empty(t, blobs.BatchCalls())
	})

	t.Run("partial blob failure is reported, not returned", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		keys := putKeys(t, blobs, 2500)
		blobs.FailOn("delete", keys[10])
		p := photoshelf.Project{ID: uuid.New(), AccountID: uuid.New()}
		repo.On("DeleteProject", ctx, p.AccountID, p.ID).Return(keys, nil)

		report, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeleteProject(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 2500, report.Keys)
		assert.Equal(t, 1000, report.Failed)
		assert.Equal(t, 1500, report.Deleted)
		assert.Len(t, blobs.BatchCalls(), 3)
	})

	t.Run("metadata failure makes no blob call", func(t *testing.T) {
		repo := new(SpyMetadataRepo)
		blobs := memory.New()
		p := photoshelf.Project{ID: uuid.New(), AccountID: uuid.New()}
		repo.On("DeleteProject", ctx, p.AccountID, p.ID).Return(nil, photoshelf.ErrNotFound)

		_, err := photoshelf.NewOrchestrator(repo, blobs, time.Second).DeleteProject(ctx, p)
		assert.ErrorIs(t, err, photoshelf.ErrNotFound)
		assert.Empty(t, blobs.BatchCalls())
	})
}

func TestOrchestrator_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	repo := new(SpyMetadataRepo)
	blobs := memory.New()
	keys := putKeys(t, blobs, 3)
	accountID := uuid.New()
	repo.On("DeleteAccount", mock.Anything, accountID).Return(keys, nil)

	report, err := photoshelf.NewOrchestrator(repo, blobs, 0).DeleteAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, photoshelf.CleanupReport{Keys: 3, Deleted: 3}, report)
	assert.Empty(t, blobs.Keys())
}
