package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token.
// Accepts application/x-www-form-urlencoded per RFC 6749.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		gatesdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		gatesdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	switch r.Form.Get("grant_type") {
	case domain.GrantTypeClientCredentials:
		h.handleClientCredentials(w, r)
	case domain.GrantTypeRefreshToken:
		h.handleRefresh(w, r)
	default:
		gatesdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleClientCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID, clientSecret, ok := clientCredentials(r)
	if !ok {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	scopes := httpx.ParseSpaceDelimitedFields(r.Form.Get("scope"))

	pair, err := h.TokenService.ExchangeClientCredentials(ctx, clientID, clientSecret, scopes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			gatesdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			gatesdk.ErrInvalidScope.WriteError(w)
		case errors.Is(err, service.ErrUnsupported):
			gatesdk.ErrUnsupportedGrantType.WriteError(w)
		default:
			log.Error("client_credentials grant failed", "err", err)
			gatesdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, r, pair)
}

func (h *TokenHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID, clientSecret, ok := clientCredentials(r)
	if !ok {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	refreshToken := strings.TrimSpace(r.Form.Get("refresh_token"))
	if refreshToken == "" {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeRefreshToken(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			gatesdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidRefresh):
			gatesdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrUnsupported):
			gatesdk.ErrUnsupportedGrantType.WriteError(w)
		default:
			log.Error("refresh_token grant failed", "err", err)
			gatesdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, r, pair)
}

// clientCredentials extracts the client id and secret from the form body or
// HTTP basic auth, preferring the body (RFC 6749 section 2.3.1 allows both).
func clientCredentials(r *http.Request) (id, secret string, ok bool) {
	id = strings.TrimSpace(r.Form.Get("client_id"))
	secret = r.Form.Get("client_secret")
	if id == "" {
		id, secret, _ = r.BasicAuth()
	}
	return id, secret, id != "" && secret != ""
}

func writeTokenResponse(w http.ResponseWriter, r *http.Request, pair *domain.TokenPair) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, r, http.StatusOK, gatesdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn),
		Scope:        strings.Join(pair.Scope, " "),
		SessionID:    pair.SessionID,
	})
}
