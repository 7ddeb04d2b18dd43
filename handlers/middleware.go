package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserHeader carries the caller identity set by the upstream auth layer.
const UserHeader = "X-User-ID"

// RequireUser rejects requests without a valid caller identity before any
// handler runs.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		id, err := uuid.Parse(raw)
		if raw == "" || err != nil {
			log.Printf("[WARN] Rejected %s %s: missing or invalid %s", r.Method, r.URL.Path, UserHeader)
			writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
