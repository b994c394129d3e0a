// Package http wires the gatehouse HTTP surface: the OAuth2 protocol
// endpoints, the admin API and the health probes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// Scopes guarding the admin API.
const (
	ScopeAdminClients = "admin:clients"
	ScopeAdminScopes  = "admin:scopes"
	ScopeAdminKeys    = "admin:keys"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keyManager   *jwtx.KeyManager
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService  *service.TokenService
	ClientService *service.ClientService
	ScopeService  *service.ScopeService

	// Optional: only set in persistent key mode.
	KeyRotationService *service.KeyRotationService
}

func NewRouter(
	keyManager *jwtx.KeyManager,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keyManager:   keyManager,
		verifier:     keyManager.Verifier(),
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerAdminClients()
	r.registerAdminScopes()
	r.registerAdminKeys()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.verifier, httpx.AuthnOptions{Issuer: r.issuer})
}

func (r *Router) registerOAuth2() {
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.ProfileStrict),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ProfileModerate),
		),
	)

	introspectHandler := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(httpx.ProfileModerate),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keyManager),
			httpx.RateLimitByIP(httpx.ProfilePublic),
		),
	)
}

func (r *Router) registerAdminClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.authn(),
			httpx.RequireAnyScope(ScopeAdminClients),
			httpx.RateLimitBySubject(httpx.ProfileLenient),
		)
	}

	r.Mux.Handle("POST /v1/admin/clients", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/admin/clients", secured(h.HandleList))
	r.Mux.Handle("GET /v1/admin/clients/{id}", secured(h.HandleGet))
	r.Mux.Handle("PATCH /v1/admin/clients/{id}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/admin/clients/{id}", secured(h.HandleDelete))
	r.Mux.Handle("POST /v1/admin/clients/{id}/rotate-secret", secured(h.HandleRotateSecret))
	r.Mux.Handle("GET /v1/admin/clients/{id}/grants", secured(h.HandleListGrants))
	r.Mux.Handle("DELETE /v1/admin/clients/{id}/grants", secured(h.HandleRevokeGrants))
}

func (r *Router) registerAdminScopes() {
	h := &ScopesHandler{ScopeService: r.ScopeService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.authn(),
			httpx.RequireAnyScope(ScopeAdminScopes),
			httpx.RateLimitBySubject(httpx.ProfileLenient),
		)
	}

	r.Mux.Handle("POST /v1/admin/scopes", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/admin/scopes", secured(h.HandleList))
	r.Mux.Handle("GET /v1/admin/scopes/{name}", secured(h.HandleGet))
	r.Mux.Handle("PATCH /v1/admin/scopes/{name}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/admin/scopes/{name}", secured(h.HandleDelete))
}

func (r *Router) registerAdminKeys() {
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	r.Mux.Handle("POST /v1/admin/keys/rotate",
		httpx.Chain(http.HandlerFunc(h.HandleRotate),
			r.authn(),
			httpx.RequireAnyScope(ScopeAdminKeys),
			httpx.RateLimitBySubject(httpx.ProfileStrict),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.buildVersion, r.startTime))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store, r.keyManager, r.buildVersion))
}
