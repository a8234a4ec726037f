package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

// AccessTokenCookie is the cookie login sets for browser clients.
const AccessTokenCookie = "access_token"

type callerKey struct{}

// WithCaller returns a context carrying the verified account id.
func WithCaller(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFromContext returns the account id stored by AuthMiddleware.
func CallerFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerKey{}).(uuid.UUID)
	return id, ok
}

// AuthMiddleware verifies the access token from the Authorization header or the
// access_token cookie and stores the account id in the request context.
func AuthMiddleware(tokens TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				HandleError(w, ErrMissingToken)
				return
			}

			id, err := tokens.Parse(raw)
			if err != nil {
				HandleError(w, fmt.Errorf("%w: %v", photoshelf.ErrUnauthorized, err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// AccessLog logs one line per request after it completes.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}

// mustCaller returns the caller stored by AuthMiddleware. Routes mounted
// without the middleware get ErrMissingToken.
func mustCaller(r *http.Request) (uuid.UUID, error) {
	id, ok := CallerFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return id, nil
}
