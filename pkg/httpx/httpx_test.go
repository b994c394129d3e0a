package httpx

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

func TestChainOrdering(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestParseSpaceDelimitedFields(t *testing.T) {
	require.Nil(t, ParseSpaceDelimitedFields(""))
	require.Equal(t, []string{"a", "b"}, ParseSpaceDelimitedFields("a  b"))
	require.Equal(t, []string{"x"}, ParseSpaceDelimitedFields("  x  "))
}

func newAuthnStack(t *testing.T) (jwtx.Signer, Middleware) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := jwtx.NewRS256Signer("test", key)
	require.NoError(t, err)

	ks := jwtx.NewKeySet()
	ks.Add(signer.Kid(), signer.Alg(), signer.Public())

	mw := AuthnMiddleware(jwtx.NewKeySetVerifier(ks), AuthnOptions{Issuer: "iss"})
	return signer, mw
}

func signToken(t *testing.T, signer jwtx.Signer, scopes []string) string {
	t.Helper()
	claims := jwtx.NewAccessClaims(
		"client-1", "sess-1", scopes, []string{jwtx.AMRClient},
		time.Minute, "iss", nil, "", time.Now().UTC(),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func TestAuthnMiddleware(t *testing.T) {
	signer, mw := newAuthnStack(t)

	var gotSubject string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_request")
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, signer, []string{"api:read"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "client-1", gotSubject)
	})
}

func TestScopeMiddleware(t *testing.T) {
	signer, authn := newAuthnStack(t)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(h http.Handler, scopes []string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, signer, scopes))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	anyH := Chain(ok, authn, RequireAnyScope("a", "b"))
	require.Equal(t, http.StatusNoContent, do(anyH, []string{"b"}))
	require.Equal(t, http.StatusForbidden, do(anyH, []string{"c"}))

	allH := Chain(ok, authn, RequireAllScopes("a", "b"))
	require.Equal(t, http.StatusNoContent, do(allH, []string{"a", "b", "c"}))
	require.Equal(t, http.StatusForbidden, do(allH, []string{"a"}))
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitProfile{Name: "TEST", RPS: 0.1, Burst: 2}, KeyByClientIP)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client has its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
