// Package rbac gates HTTP routes on the session user's role.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Middleware wires role authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuth ensures a user is logged in.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentActor(r); !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole ensures the current user holds one of the given roles.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.currentActor(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			role := actor.Role
			if role == "" && m.Service != nil {
				fetched, err := m.Service.RoleOf(r.Context(), actor.ID)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("rbac role lookup", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				role = fetched
			}
			if _, ok := allowed[role]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is shorthand for RequireRole(admin).
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.RequireRole(shared.RoleAdmin)
}

func (m Middleware) currentActor(r *http.Request) (shared.Actor, bool) {
	return shared.ActorFromContext(r.Context())
}
