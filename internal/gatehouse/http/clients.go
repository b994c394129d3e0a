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
	"github.com/ferryhill/gatehouse/pkg/idx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// ClientsHandler serves the /v1/admin/clients endpoints.
type ClientsHandler struct {
	ClientService *service.ClientService
}

func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req gatesdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	client, secret, err := h.ClientService.CreateClient(r.Context(),
		req.Name, req.AllowedGrantTypes, req.Scopes)
	if err != nil {
		writeClientError(w, r, err, "create client")
		return
	}

	httpx.WriteJSON(w, r, http.StatusCreated, gatesdk.CreateClientResponse{
		Client: toClientInfo(client),
		Secret: secret,
	})
}

func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		writeClientError(w, r, err, "list clients")
		return
	}

	out := make([]gatesdk.ClientInfo, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientInfo(c))
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client, err := h.ClientService.GetClient(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err, "get client")
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, toClientInfo(client))
}

func (h *ClientsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req gatesdk.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	ctx := r.Context()
	if req.Name != nil {
		if err := h.ClientService.RenameClient(ctx, id, *req.Name); err != nil {
			writeClientError(w, r, err, "rename client")
			return
		}
	}
	if req.Scopes != nil {
		if err := h.ClientService.UpdateClientScopes(ctx, id, req.Scopes); err != nil {
			writeClientError(w, r, err, "update client scopes")
			return
		}
	}
	if req.AllowedGrantTypes != nil {
		if err := h.ClientService.UpdateClientGrantTypes(ctx, id, req.AllowedGrantTypes); err != nil {
			writeClientError(w, r, err, "update client grant types")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.ClientService.DeleteClient(r.Context(), id); err != nil {
		writeClientError(w, r, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	secret, err := h.ClientService.RotateClientSecret(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err, "rotate client secret")
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, gatesdk.RotateSecretResponse{Secret: secret})
}

func (h *ClientsHandler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	grants, err := h.ClientService.ListClientGrants(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err, "list client grants")
		return
	}

	out := make([]gatesdk.Grant, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantInfo(g))
	}
	httpx.WriteJSON(w, r, http.StatusOK, out)
}

func (h *ClientsHandler) HandleRevokeGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := h.ClientService.RevokeClientGrants(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err, "revoke client grants")
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, gatesdk.RevokeGrantsResponse{Revoked: n})
}

func pathID(w http.ResponseWriter, r *http.Request) (idx.ID, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		gatesdk.ErrNotFound.WriteError(w)
		return idx.Zero, false
	}
	return id, true
}

func writeClientError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		gatesdk.ErrNotFound.WriteError(w)
	case errors.Is(err, store.ErrAlreadyExists):
		gatesdk.ErrConflict.WriteError(w)
	case errors.Is(err, service.ErrProtectedClient):
		gatesdk.ErrProtected.WriteError(w)
	case errors.Is(err, service.ErrInvalidName):
		gatesdk.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error(op, "err", err)
		gatesdk.ErrServerError.WriteError(w)
	}
}

func toClientInfo(c *domain.Client) gatesdk.ClientInfo {
	return gatesdk.ClientInfo{
		ID:                c.ID.String(),
		Name:              c.Name,
		AllowedGrantTypes: c.AllowedGrantTypes,
		Scopes:            c.Scopes,
		Protected:         c.Protected,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toGrantInfo(g *domain.Grant) gatesdk.Grant {
	out := gatesdk.Grant{
		ID:        g.ID.String(),
		Key:       g.Key,
		Type:      g.Type,
		SubjectID: g.SubjectID,
		ClientID:  g.ClientID.String(),
		SessionID: g.SessionID,
		CreatedAt: g.CreatedAt,
		ExpiresAt: g.ExpiresAt,
	}
	if g.Consumed() {
		consumed := g.ConsumedAt
		out.ConsumedAt = &consumed
	}
	return out
}
