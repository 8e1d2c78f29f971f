package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

const viewAllHeader = "X-View-All"

type actorKey struct{}

// TokenParser turns a bearer token into the actor it was issued for.
type TokenParser interface {
	Parse(raw string) (core.Actor, error)
}

// Authenticate resolves the caller from a bearer token. It only authenticates;
// every permission check happens in the core.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health checks and swagger
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Missing bearer token")
				return
			}
			actor, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			// The flag is a display preference; the core decides whether the role honours it.
			if v, err := strconv.ParseBool(r.Header.Get(viewAllHeader)); err == nil {
				actor.ShowAllData = v
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func isPublicPath(path string) bool {
	return strings.HasPrefix(path, "/health") ||
		strings.HasPrefix(path, "/readyz") ||
		strings.HasPrefix(path, "/swagger")
}

func WithActor(ctx context.Context, a core.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the authenticated actor, or the zero actor when none is set.
func ActorFrom(ctx context.Context) core.Actor {
	a, _ := ctx.Value(actorKey{}).(core.Actor)
	return a
}
