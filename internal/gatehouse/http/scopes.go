package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/gatesdk"
	"github.com/ferryhill/gatehouse/pkg/httpx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// ScopesHandler serves the /v1/admin/scopes endpoints.
type ScopesHandler struct {
	ScopeService *service.ScopeService
}

func (h *ScopesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req gatesdk.CreateScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	scope, err := h.ScopeService.CreateScope(r.Context(),
		req.Name, req.DisplayName, req.Description, req.Default)
	if err != nil {
		writeScopeError(w, r, err, "create scope")
		return
	}
	httpx.WriteJSON(w, r, http.StatusCreated, toScopeInfo(scope))
}

func (h *ScopesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.ScopeService.ListScopes(r.Context())
	if err != nil {
		writeScopeError(w, r, err, "list scopes")
		return
	}

	out := make([]gatesdk.Scope, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, toScopeInfo(s))
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

func (h *ScopesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scope, err := h.ScopeService.GetScope(r.Context(), r.PathValue("name"))
	if err != nil {
		writeScopeError(w, r, err, "get scope")
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, toScopeInfo(scope))
}

func (h *ScopesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req gatesdk.UpdateScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	err := h.ScopeService.UpdateScope(r.Context(), r.PathValue("name"), domain.ScopeUpdate{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Default:     req.Default,
	})
	if err != nil {
		writeScopeError(w, r, err, "update scope")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScopesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ScopeService.DeleteScope(r.Context(), r.PathValue("name")); err != nil {
		writeScopeError(w, r, err, "delete scope")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeScopeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		gatesdk.ErrNotFound.WriteError(w)
	case errors.Is(err, store.ErrAlreadyExists):
		gatesdk.ErrConflict.WriteError(w)
	case errors.Is(err, service.ErrScopeInUse):
		gatesdk.ErrScopeInUse.WriteError(w)
	case errors.Is(err, service.ErrInvalidScopeName):
		gatesdk.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error(op, "err", err)
		gatesdk.ErrServerError.WriteError(w)
	}
}

func toScopeInfo(s *domain.Scope) gatesdk.Scope {
	return gatesdk.Scope{
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Description: s.Description,
		Default:     s.Default,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
