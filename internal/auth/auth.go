// Package auth resolves caller identity and enforces who may read which
// wrestler's data. Identity verification happens upstream; this package
// trusts the identity headers the fronting gateway injects and enforces
// the role rules on every request before the engine is invoked.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Roles.
const (
	RoleAdmin   = "admin"
	RoleCoach   = "coach"
	RoleAthlete = "athlete"
)

// Identity is the verified caller.
type Identity struct {
	UserID string
	Role   string
	// WrestlerID is the caller's own wrestler record, set for athletes.
	WrestlerID string
	// TeamWrestlerIDs are the wrestlers a coach is responsible for.
	TeamWrestlerIDs []string
}

// CanAccess reports whether the caller may read wrestlerID's data:
// admins may read anyone, coaches their team members, athletes only
// themselves.
func (id *Identity) CanAccess(wrestlerID string) bool {
	switch id.Role {
	case RoleAdmin:
		return true
	case RoleCoach:
		for _, w := range id.TeamWrestlerIDs {
			if w == wrestlerID {
				return true
			}
		}
		return false
	case RoleAthlete:
		return id.WrestlerID == wrestlerID
	default:
		return false
	}
}

// FromContext retrieves the authenticated identity from the request context.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok
}

// WithIdentity stores an identity in the context. Exposed for handler tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// Middleware reads the identity headers set by the fronting gateway and
// stores the resolved Identity in the request context. Requests without
// a user ID or with an unknown role are rejected.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing identity headers")
			return
		}

		role := r.Header.Get("X-User-Role")
		switch role {
		case RoleAdmin, RoleCoach, RoleAthlete:
		default:
			writeError(w, http.StatusUnauthorized, "unknown role")
			return
		}

		id := &Identity{
			UserID:     userID,
			Role:       role,
			WrestlerID: r.Header.Get("X-Wrestler-ID"),
		}
		if team := r.Header.Get("X-Team-Wrestlers"); team != "" {
			for _, w := range strings.Split(team, ",") {
				if w = strings.TrimSpace(w); w != "" {
					id.TeamWrestlerIDs = append(id.TeamWrestlerIDs, w)
				}
			}
		}

		ctx := WithIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"kind":    "forbidden",
			"message": message,
		},
	})
}
