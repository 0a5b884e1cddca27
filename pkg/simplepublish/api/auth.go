package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth"
)

// ActorHeader carries the actor id when no JWT secret is configured.
const ActorHeader = "X-Actor-ID"

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor id.
func ActorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey).(string)
	return actor, ok && actor != ""
}

// WithActor stores the actor id on ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Authenticate resolves the actor for each request. With ja set it requires a
// valid bearer token whose sub claim is the actor. Without it the actor comes
// from the X-Actor-ID header, which is only suitable for development.
func Authenticate(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	if ja == nil {
		return headerActor
	}
	verify := jwtauth.Verifier(ja)
	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				unauthorized(w, r, "invalid or missing token")
				return
			}
			sub, _ := claims["sub"].(string)
			if strings.TrimSpace(sub) == "" {
				unauthorized(w, r, "token has no subject")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), sub)))
		}))
	}
}

func headerActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			unauthorized(w, r, "missing "+ActorHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusUnauthorized, ErrorResponse{
		Code:    "unauthorized",
		Message: message,
	})
}

func actor(r *http.Request) string {
	a, _ := ActorFromContext(r.Context())
	return a
}
