// Package auth resolves the calling user into a core.Actor and carries it in
// the request context. Identity comes from the X-User-ID header set by the
// authenticating proxy and is ignored on requests that did not pass through
// it; DEV_USER_ID stands in for it during local development.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"socios/internal/core"
	applog "socios/internal/log"
	"socios/internal/ports"
)

// HeaderUserID is the header the proxy sets after authenticating the user.
const HeaderUserID = "X-User-ID"

type contextKey struct{}

// Resolver looks users up by id.
type Resolver struct {
	users     ports.UserStore
	devUserID string
	public    func(*http.Request) bool
	fromProxy func(*http.Request) bool
}

// NewResolver returns a resolver. public marks routes served without an
// identity and may be nil. fromProxy reports whether the peer is the
// authenticating proxy; when nil, X-User-ID is never honored.
func NewResolver(users ports.UserStore, devUserID string, public, fromProxy func(*http.Request) bool) *Resolver {
	return &Resolver{users: users, devUserID: strings.TrimSpace(devUserID), public: public, fromProxy: fromProxy}
}

// Resolve maps the request identity to an Actor. An unknown or missing
// identity yields the anonymous Actor.
func (a *Resolver) Resolve(ctx context.Context, r *http.Request) (core.Actor, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id != "" && (a.fromProxy == nil || !a.fromProxy(r)) {
		slog.WarnContext(ctx, "Ignoring identity header from untrusted peer",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldRemoteAddr, r.RemoteAddr)
		id = ""
	}
	if id == "" {
		id = a.devUserID
	}
	if id == "" {
		return core.Actor{}, nil
	}
	u, err := a.users.GetUser(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return core.Actor{}, nil
	}
	if err != nil {
		return core.Actor{}, err
	}
	return core.NewActor(u), nil
}

// Middleware resolves the Actor for every request. Non-public requests
// without a known user get 401.
func (a *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.public != nil && a.public(r) {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := a.Resolve(r.Context(), r)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to resolve user",
				applog.FieldComponent, applog.ComponentAuth,
				applog.FieldError, err)
			http.Error(w, "Servicio de identidad no disponible", http.StatusServiceUnavailable)
			return
		}
		if actor.Anonymous() {
			slog.WarnContext(r.Context(), "Unauthenticated request",
				applog.FieldComponent, applog.ComponentAuth,
				applog.FieldPath, r.URL.Path)
			http.Error(w, "No autenticado", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor core.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the Actor stored by Middleware, or the anonymous Actor.
func FromContext(ctx context.Context) core.Actor {
	if a, ok := ctx.Value(contextKey{}).(core.Actor); ok {
		return a
	}
	return core.Actor{}
}
