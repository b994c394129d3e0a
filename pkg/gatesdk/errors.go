package gatesdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the RFC 6749 error body used across the API.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`

	// Status is the HTTP status the server answered with. Not part of the
	// wire body.
	Status int `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError renders the error onto an HTTP response.
func (e *ErrorResponse) WriteError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// Canonical protocol errors.
var (
	ErrInvalidRequest       = &ErrorResponse{Code: "invalid_request", Description: "the request is missing a required parameter", Status: http.StatusBadRequest}
	ErrInvalidClient        = &ErrorResponse{Code: "invalid_client", Description: "client authentication failed", Status: http.StatusUnauthorized}
	ErrInvalidGrant         = &ErrorResponse{Code: "invalid_grant", Description: "the provided grant is invalid, expired or revoked", Status: http.StatusBadRequest}
	ErrInvalidScope         = &ErrorResponse{Code: "invalid_scope", Description: "the requested scope is invalid or exceeds the client registration", Status: http.StatusBadRequest}
	ErrUnsupportedGrantType = &ErrorResponse{Code: "unsupported_grant_type", Description: "the grant type is not supported by this client or server", Status: http.StatusBadRequest}
	ErrInvalidContentType   = &ErrorResponse{Code: "invalid_request", Description: "content type must be application/x-www-form-urlencoded", Status: http.StatusBadRequest}
	ErrInvalidFormBody      = &ErrorResponse{Code: "invalid_request", Description: "malformed form body", Status: http.StatusBadRequest}
	ErrInvalidJSONBody      = &ErrorResponse{Code: "invalid_request", Description: "malformed json body", Status: http.StatusBadRequest}
	ErrNotFound             = &ErrorResponse{Code: "not_found", Description: "resource not found", Status: http.StatusNotFound}
	ErrConflict             = &ErrorResponse{Code: "conflict", Description: "resource already exists", Status: http.StatusConflict}
	ErrProtected            = &ErrorResponse{Code: "protected", Description: "seeded resources cannot be deleted", Status: http.StatusConflict}
	ErrScopeInUse           = &ErrorResponse{Code: "scope_in_use", Description: "scope is still registered on a client", Status: http.StatusConflict}
	ErrServerError          = &ErrorResponse{Code: "server_error", Description: "internal server error", Status: http.StatusInternalServerError}
)
