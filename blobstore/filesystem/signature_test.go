package filesystem_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/blobstore/filesystem"
)

func signed(t *testing.T, s *filesystem.Signer, key string, ttl time.Duration) url.Values {
	t.Helper()
	raw, err := s.SignURL("http://example.test/", key, ttl)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "example.test", u.Host)
	return u.Query()
}

func TestNewSigner(t *testing.T) {
	_, err := filesystem.NewSigner("short")
	assert.Error(t, err)

	_, err = filesystem.NewSigner(testSecret)
	assert.NoError(t, err)
}

func TestSigner_Verify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	signer, err := filesystem.NewSigner(testSecret)
	require.NoError(t, err)
	signer.WithClock(clock)

	q := signed(t, signer, "photos/e.jpg", time.Hour)

	tests := []struct {
		name    string
		key     string
		query   url.Values
		at      time.Time
		wantErr bool
	}{
		{name: "valid", key: "photos/e.jpg", query: q, at: now},
		{name: "valid at the last second", key: "photos/e.jpg", query: q, at: now.Add(time.Hour)},
		{name: "expired", key: "photos/e.jpg", query: q, at: now.Add(time.Hour + time.Second), wantErr: true},
		{name: "other key", key: "photos/f.jpg", query: q, at: now, wantErr: true},
		{name: "missing params", key: "photos/e.jpg", query: url.Values{}, at: now, wantErr: true},
		{
			name: "tampered expiry",
			key:  "photos/e.jpg",
			query: url.Values{
				"expires":   {strconv.FormatInt(now.Add(2*time.Hour).Unix(), 10)},
				"signature": {q.Get("signature")},
			},
			at:      now,
			wantErr: true,
		},
		{
			name:    "non-hex signature",
			key:     "photos/e.jpg",
			query:   url.Values{"expires": {q.Get("expires")}, "signature": {"zz"}},
			at:      now,
			wantErr: true,
		},
		{
			name:    "non-numeric expiry",
			key:     "photos/e.jpg",
			query:   url.Values{"expires": {"soon"}, "signature": {q.Get("signature")}},
			at:      now,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			signer.WithClock(func() time.Time { return at })
			defer signer.WithClock(clock)

			err := signer.VerifyQuery(tt.key, tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, photoshelf.ErrUnauthorized)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSigner_SignURL_TTLBounds(t *testing.T) {
	signer, err := filesystem.NewSigner(testSecret)
	require.NoError(t, err)

	_, err = signer.SignURL("http://x", "photos/a.jpg", 0)
	assert.Error(t, err)

	_, err = signer.SignURL("http://x", "photos/a.jpg", 8*24*time.Hour)
	assert.Error(t, err)

	_, err = signer.SignURL("http://x", "photos/a.jpg", 7*24*time.Hour)
	assert.NoError(t, err)
}

func TestKeyFromPath(t *testing.T) {
	key, err := filesystem.KeyFromPath("/blobs/photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "photos/a.jpg", key)

	for _, p := range []string{"/photos/a.jpg", "/blobs/", "/blobs/../etc/passwd", "/blobs//a"} {
		_, err := filesystem.KeyFromPath(p)
		assert.Error(t, err, p)
	}
}

func TestSigner_SignURL_EscapedKeyRoundTrip(t *testing.T) {
	signer, err := filesystem.NewSigner(testSecret)
	require.NoError(t, err)

	for _, key := range []string{"photos/a.jpg", "photos/x.a%2e", "photos/x.a%zz", "photos/summer photo.jpg"} {
		t.Run(key, func(t *testing.T) {
			raw, err := signer.SignURL("http://example.test", key, time.Minute)
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)

			got, err := filesystem.KeyFromPath(u.Path)
			if !photoshelf.IsValidKey(key) {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, key, got)
			assert.NoError(t, signer.VerifyQuery(got, u.Query()))
		})
	}
}
