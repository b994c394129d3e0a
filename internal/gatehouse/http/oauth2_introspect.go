package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect per RFC 7662. The
// caller authenticates with client credentials; invalid tokens come back
// active:false rather than as errors.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		gatesdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID, clientSecret, ok := clientCredentials(r)
	if !ok {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	token := strings.TrimSpace(r.Form.Get("token"))

	info, err := h.TokenService.Introspect(r.Context(), clientID, clientSecret, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			gatesdk.ErrInvalidClient.WriteError(w)
			return
		}
		slogx.FromContext(r.Context()).Error("token introspection failed", "err", err)
		gatesdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, r, http.StatusOK, gatesdk.IntrospectionResponse{
		Active:    info.Active,
		Scope:     info.Scope,
		ClientID:  info.ClientID,
		Subject:   info.Subject,
		TokenType: info.TokenType,
		ExpiresAt: info.ExpiresAt,
		IssuedAt:  info.IssuedAt,
		Issuer:    info.Issuer,
		Audience:  info.Audience,
		JTI:       info.JTI,
		SessionID: info.SessionID,
	})
}
