package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// WriteJSON encodes v with the given status. Encoding failures are logged
// but not surfaced; headers are already on the wire.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogx.FromContext(r.Context()).Error("write json response", "err", err)
	}
}

// NoCache sets the cache-control headers required on token responses
// (RFC 6749 section 5.1).
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits a space-delimited parameter such as the
// OAuth2 "scope" value, dropping empty segments.
func ParseSpaceDelimitedFields(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
