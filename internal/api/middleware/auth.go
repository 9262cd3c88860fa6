package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorHeader identifies the staff member behind a request. Identity is
// asserted by the hospital's gateway upstream; this service only records
// who acted, it does not authenticate.
const ActorHeader = "X-Actor-Id"

// ActorMiddleware requires the actor header on mutating requests and
// stores its value in the request context. Reads pass through with or
// without it.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if actor == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"code":  "UNAUTHORIZED",
					"error": ActorHeader + " header is required",
				})
				return
			}
		}

		if actor != "" {
			r = r.WithContext(context.WithValue(r.Context(), actorKey, actor))
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext returns the acting staff member's id, or "".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return ""
}
