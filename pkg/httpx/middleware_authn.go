package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// AuthnOptions tune bearer-token validation beyond the signature check.
type AuthnOptions struct {
	Issuer   string
	Audience []string
}

// AuthnMiddleware authenticates requests with a Bearer access token and
// stashes the claims in the request context. Failures answer per RFC 6750.
func AuthnMiddleware(verifier jwtx.Verifier, opts AuthnOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				slogx.FromContext(r.Context()).Debug("bearer token rejected", "err", err)
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
				return
			}

			if err := claims.ValidateIssuer(opts.Issuer); err != nil {
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "issuer mismatch")
				return
			}
			if err := claims.ValidateAudience(opts.Audience); err != nil {
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "audience mismatch")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, CtxKeySubjectID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyScopes, claims.Scopes)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectID returns the authenticated subject, or "" outside the middleware.
func SubjectID(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeySubjectID).(string)
	return id
}

// Scopes returns the token scopes, or nil outside the middleware.
func Scopes(ctx context.Context) []string {
	scopes, _ := ctx.Value(CtxKeyScopes).([]string)
	return scopes
}

// Claims returns the verified claims, or nil outside the middleware.
func Claims(ctx context.Context) *jwtx.Claims {
	claims, _ := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return claims
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

func writeBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error=%q, error_description=%q`, code, desc))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"error_description":%q}`+"\n", code, desc)
}
