package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/sitecompliance-backend/api/validators"
)

type contextKey string

const (
	ctxActor contextKey = "actor"

	actorHeader  = "X-Actor"
	maxActorSize = 128
)

// ActorFromContext returns the caller-declared actor, or "" when none was sent.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActor).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the actor into the context for downstream handlers.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// Actor copies the X-Actor header into the request context. Authentication
// happens upstream; the value is only used for audit fields and scoping.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := validators.SanitizeString(r.Header.Get(actorHeader), maxActorSize)
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
