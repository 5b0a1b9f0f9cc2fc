package auth

import (
	"net/http"
	"strings"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// Authenticator middleware extracts the bearer token and stores the verified
// identity in context. Requests without a token pass through anonymous;
// protected routes reject them downstream.
func (s *Service) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		identity, err := s.VerifyAccess(strings.TrimSpace(token))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}
