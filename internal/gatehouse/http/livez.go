package http

import (
	"net/http"
	"time"

	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
)

// LivezHandler answers as soon as the process serves HTTP.
func LivezHandler(version string, startTime time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, r, http.StatusOK, gatesdk.HealthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	})
}
