package api

import (
	"net/http"
	"strings"

	"santatrack/internal/auth"
)

// getPrincipal extracts the caller's role.
//   - AUTH_MODE=none: everyone is admin.
//   - Authorization: Bearer is checked by the verifier (dev or hmac).
//   - dev mode without a token falls back to the X-Role header, default admin.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	if s.Auth == nil || s.Auth.Mode == "none" {
		return auth.Principal{Subject: "anonymous", Role: "admin"}
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		if pr, err := s.Auth.Verify(authz[len("Bearer "):]); err == nil {
			return pr
		}
		return auth.Principal{Subject: "anonymous", Role: "viewer"}
	}
	if s.Auth.Mode == "dev" {
		role := r.Header.Get("X-Role")
		if role == "" {
			role = "admin"
		}
		return auth.Principal{Subject: "dev", Role: role}
	}
	return auth.Principal{Subject: "anonymous", Role: "viewer"}
}

// requireAdmin writes 403 and returns false unless the caller is an admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return false
	}
	return true
}
