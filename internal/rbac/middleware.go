package rbac

import (
	"log/slog"
	"net/http"

	"github.com/meridian-sis/meridian-sis/internal/observability"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// Middleware wires menu-capability authorization for HTTP handlers. This is
// the point-of-use re-check: the resolved menu tree only advises the UI,
// every mutating route still passes through here.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireMenu ensures the current user holds the capability on the named
// menu before the wrapped handler runs.
func (m Middleware) RequireMenu(menuName, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			allowed, err := m.Service.CheckMenuCapability(r.Context(), identity.UserID, menuName, capability)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require menu",
						slog.String("menu", menuName),
						slog.String("capability", capability),
						slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m.Metrics.ObservePermissionCheck(menuName, allowed)
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
