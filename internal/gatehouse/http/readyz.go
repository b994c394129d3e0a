package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// ReadyzHandler answers ok only while the database responds and at least
// one signing key is active.
func ReadyzHandler(st store.Store, keyManager *jwtx.KeyManager, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		unavailable := func(reason string, err error) {
			slogx.FromContext(r.Context()).Warn("readiness probe failed",
				"reason", reason, "err", err)
			httpx.WriteJSON(w, r, http.StatusServiceUnavailable, gatesdk.HealthResponse{
				Status:  "unavailable",
				Version: version,
			})
		}

		if err := st.Ping(ctx); err != nil {
			unavailable("database", err)
			return
		}
		if len(keyManager.ActiveKids()) == 0 {
			unavailable("signing keys", jwtx.ErrNoKeys)
			return
		}

		httpx.WriteJSON(w, r, http.StatusOK, gatesdk.HealthResponse{
			Status:  "ok",
			Version: version,
		})
	})
}
