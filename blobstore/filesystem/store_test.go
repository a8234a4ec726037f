package filesystem_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/blobstore/filesystem"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	signer, err := filesystem.NewSigner(testSecret)
	require.NoError(t, err)

	return filesystem.NewStore(root, signer, "http://localhost:5708"), dir
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("success - nested key", func(t *testing.T) {
		store, dir := newStore(t)

		err := store.Put(ctx, "photos/a1.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "photos", "a1.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", string(data))
	})

	t.Run("success - unknown size", func(t *testing.T) {
		store, _ := newStore(t)

		err := store.Put(ctx, "photos/a2.jpg", strings.NewReader("abc"), -1, "")
		require.NoError(t, err)

		ok, err := store.Exists(ctx, "photos/a2.jpg")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("error - size mismatch leaves nothing behind", func(t *testing.T) {
		store, dir := newStore(t)

		err := store.Put(ctx, "photos/a3.jpg", strings.NewReader("abc"), 10, "")
		assert.ErrorIs(t, err, photoshelf.ErrBlobStore)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "temp file must be removed")
	})

	t.Run("error - context canceled", func(t *testing.T) {
		store, _ := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := store.Put(cctx, "photos/a4.jpg", strings.NewReader("abc"), 3, "")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("error - escaping the root", func(t *testing.T) {
		store, _ := newStore(t)

		err := store.Put(ctx, "../outside.jpg", strings.NewReader("abc"), 3, "")
		assert.Error(t, err)
	})
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	require.NoError(t, store.Put(ctx, "photos/b.png", bytes.NewReader([]byte("png!")), 4, "image/png"))

	t.Run("success", func(t *testing.T) {
		rc, info, err := store.Get(ctx, "photos/b.png")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "png!", string(body))
		assert.Equal(t, int64(4), info.Size)
		assert.Equal(t, "image/png", info.ContentType)
	})

	t.Run("missing key", func(t *testing.T) {
		_, _, err := store.Get(ctx, "photos/none.png")
		assert.ErrorIs(t, err, photoshelf.ErrBlobNotFound)
		assert.ErrorIs(t, err, photoshelf.ErrBlobStore)
	})

	t.Run("directory is not a blob", func(t *testing.T) {
		_, _, err := store.Get(ctx, "photos")
		assert.ErrorIs(t, err, photoshelf.ErrBlobNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	require.NoError(t, store.Put(ctx, "photos/c.gif", strings.NewReader("g"), 1, ""))

	require.NoError(t, store.Delete(ctx, "photos/c.gif"))
	require.NoError(t, store.Delete(ctx, "photos/c.gif"), "missing file is success")

	ok, err := store.Exists(ctx, "photos/c.gif")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CancelledContext(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Put(context.Background(), "photos/h.jpg", strings.NewReader("h"), 1, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Delete(ctx, "photos/h.jpg")
	assert.ErrorIs(t, err, photoshelf.ErrBlobStore)
	assert.ErrorIs(t, err, context.Canceled)
	var bsErr *photoshelf.BlobStoreError
	require.ErrorAs(t, err, &bsErr)
	assert.Equal(t, "delete", bsErr.Op)

	_, err = store.Exists(ctx, "photos/h.jpg")
	assert.ErrorIs(t, err, photoshelf.ErrBlobStore)
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = store.Get(ctx, "photos/h.jpg")
	assert.ErrorIs(t, err, photoshelf.ErrBlobStore)
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := store.Exists(context.Background(), "photos/h.jpg")
	require.NoError(t, err)
	assert.True(t, ok, "cancelled delete leaves the file")
}

func TestStore_DeleteMany(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	keys := make([]string, 1200)
	for i := range keys {
		keys[i] = fmt.Sprintf("photos/%04d.jpg", i)
		require.NoError(t, store.Put(ctx, keys[i], strings.NewReader("x"), 1, ""))
	}
	keys = append(keys, "photos/never-written.jpg")

	result := store.DeleteMany(ctx, keys)

	assert.Len(t, result.Deleted, 1201)
	assert.Empty(t, result.Failed)
}

func TestStore_PresignAndVerify(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	raw, err := store.Presign(ctx, "photos/d.jpg", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/photos/d.jpg", u.Path)

	key, err := filesystem.KeyFromPath(u.Path)
	require.NoError(t, err)
	assert.Equal(t, "photos/d.jpg", key)

	q := u.Query()
	assert.NoError(t, store.Verify(key, q.Get("expires"), q.Get("signature")))
	assert.ErrorIs(t, store.Verify("photos/other.jpg", q.Get("expires"), q.Get("signature")), photoshelf.ErrUnauthorized)
}

func TestStore_PresignWithoutSigner(t *testing.T) {
	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = root.Close() }()

	store := filesystem.NewStore(root, nil, "")
	_, err = store.Presign(context.Background(), "photos/x.jpg", time.Minute)
	assert.ErrorIs(t, err, photoshelf.ErrBlobStore)
	assert.ErrorIs(t, store.Verify("photos/x.jpg", "1", "ab"), photoshelf.ErrUnauthorized)
}
