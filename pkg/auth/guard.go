package auth

import "net/http"

// Guard returns middleware that lets a request through only when the gate
// allows role, and redirects to landing otherwise.
func Guard(g *Gate, role Role, landing string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Authorize(role) == Deny {
				http.Redirect(w, r, landing, http.StatusFound)

				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
