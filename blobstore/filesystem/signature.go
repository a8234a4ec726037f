package filesystem

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/photoshelf"
)

const (
	// BlobPathPrefix is the route under which signed blob links are served.
	BlobPathPrefix = "/blobs/"

	ExpiresParam   = "expires"
	SignatureParam = "signature"

	MaxExpiresSeconds = 604800 // 7 days
	minSecretLength   = 32
)

// Signer issues and verifies time-limited HMAC-SHA256 links to blobs.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("new signer: secret must be at least %d bytes", minSecretLength)
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// WithClock replaces the time source. Tests use it to pin expiry.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// SignURL builds baseURL/blobs/{key}?expires=..&signature=.. The signature
// covers the unescaped key.
func (s *Signer) SignURL(baseURL, key string, ttl time.Duration) (string, error) {
	if ttl < time.Second || ttl > MaxExpiresSeconds*time.Second {
		return "", fmt.Errorf("ttl %s out of range", ttl)
	}

	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)

	q := url.Values{}
	q.Set(ExpiresParam, expires)
	q.Set(SignatureParam, s.sign(key, expires))

	return strings.TrimRight(baseURL, "/") + BlobPathPrefix + escapeKey(key) + "?" + q.Encode(), nil
}

// escapeKey escapes each segment so the server sees the signed key after
// the request path is decoded.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Verify reports photoshelf.ErrUnauthorized for a missing, malformed, expired
// or forged signature.
func (s *Signer) Verify(key, expires, signature string) error {
	if expires == "" || signature == "" {
		return fmt.Errorf("missing signature parameters: %w", photoshelf.ErrUnauthorized)
	}

	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", ExpiresParam, photoshelf.ErrUnauthorized)
	}

	now := s.now()
	if now.Unix() > exp {
		return fmt.Errorf("signature expired: %w", photoshelf.ErrUnauthorized)
	}
	if exp-now.Unix() > MaxExpiresSeconds {
		return fmt.Errorf("expiry too far in the future: %w", photoshelf.ErrUnauthorized)
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", photoshelf.ErrUnauthorized)
	}
	want, _ := hex.DecodeString(s.sign(key, expires))
	if !hmac.Equal(got, want) {
		return fmt.Errorf("signature mismatch: %w", photoshelf.ErrUnauthorized)
	}

	return nil
}

// VerifyQuery is Verify with parameters taken from a request query.
func (s *Signer) VerifyQuery(key string, query url.Values) error {
	return s.Verify(key, query.Get(ExpiresParam), query.Get(SignatureParam))
}

func (s *Signer) sign(key, expires string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(stringToSign(key, expires)))
	return hex.EncodeToString(h.Sum(nil))
}

func stringToSign(key, expires string) string {
	return "GET\n" + BlobPathPrefix + key + "\n" + expires
}

// KeyFromPath extracts the blob key from a request path under BlobPathPrefix.
func KeyFromPath(p string) (string, error) {
	key, ok := strings.CutPrefix(p, BlobPathPrefix)
	if !ok || !photoshelf.IsValidKey(key) {
		return "", errors.New("invalid blob path")
	}
	return key, nil
}
