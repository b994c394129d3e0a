package http

import (
	"net/http"

	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// JWKSHandler serves GET /.well-known/jwks.json with every currently
// verifiable public key, retired ones included.
func JWKSHandler(manager *jwtx.KeyManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, err := manager.JWKS()
		if err != nil {
			slogx.FromContext(r.Context()).Error("render jwks", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=300")
		httpx.WriteJSON(w, r, http.StatusOK, doc)
	})
}
