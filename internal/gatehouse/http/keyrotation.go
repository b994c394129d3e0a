package http

import (
	"net/http"

	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// KeyRotationHandler serves POST /v1/admin/keys/rotate. Only available when
// the deployment runs persistent signing keys.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	if h.KeyRotationService == nil {
		gatesdk.ErrNotFound.WriteError(w)
		return
	}

	kid, err := h.KeyRotationService.RotateNow(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("manual key rotation failed", "err", err)
		gatesdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, gatesdk.RotateKeyResponse{Kid: kid})
}
