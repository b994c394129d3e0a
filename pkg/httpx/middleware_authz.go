package httpx

import (
	"net/http"
	"slices"
)

// RequireAnyScope admits requests whose token carries at least one of the
// listed scopes. Must run inside AuthnMiddleware.
func RequireAnyScope(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted := Scopes(r.Context())
			for _, want := range required {
				if slices.Contains(granted, want) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeBearerError(w, http.StatusForbidden, "insufficient_scope", "missing required scope")
		})
	}
}

// RequireAllScopes admits requests only when every listed scope is granted.
func RequireAllScopes(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted := Scopes(r.Context())
			for _, want := range required {
				if !slices.Contains(granted, want) {
					writeBearerError(w, http.StatusForbidden, "insufficient_scope", "missing required scope")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
