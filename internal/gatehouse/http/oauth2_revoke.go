package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke per RFC 7009. Revocation of
// an unknown token still answers 200.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		gatesdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID, clientSecret, ok := clientCredentials(r)
	token := strings.TrimSpace(r.Form.Get("token"))
	if !ok || token == "" {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.Revoke(r.Context(), clientID, clientSecret, token); err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			gatesdk.ErrInvalidClient.WriteError(w)
			return
		}
		slogx.FromContext(r.Context()).Error("token revocation failed", "err", err)
		gatesdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}
