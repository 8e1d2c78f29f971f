package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type ClientHandler struct {
	Svc core.ClientService
	Log *slog.Logger
}

func NewClientHandler(svc core.ClientService, log *slog.Logger) *ClientHandler {
	return &ClientHandler{Svc: svc, Log: log}
}

func (h *ClientHandler) Mount(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{client_id}", h.Get)
		r.Patch("/{client_id}", h.Update)
		r.Delete("/{client_id}", h.Delete)
		r.Post("/{client_id}:consent", h.GrantConsent)
	})
}

// List returns the clients in the caller's scope.
// 200: JSON.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := brokerQuery(w, r)
	if !ok {
		return
	}
	filter := core.ClientFilter{BrokerID: brokerID, Search: strings.TrimSpace(r.URL.Query().Get("q"))}

	clients, err := h.Svc.List(r.Context(), middleware.ActorFrom(r.Context()), filter)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	clients = nonNil(clients)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.Client]{Items: clients, Total: int64(len(clients))})
}

// Create registers a client under the caller's broker.
// 201: JSON; 400: invalid input; 403: registering for another broker.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.ClientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Svc.Create(r.Context(), middleware.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusCreated, c)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "client_id")
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, c)
}

// Update patches contact details.
// 200: JSON; 400: invalid field; 404: not found or outside scope.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "client_id")
	if !ok {
		return
	}
	var patch core.ClientPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	c, err := h.Svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, patch)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, c)
}

// Delete removes a client. Managers and administrators only.
// 204; 403: missing delete_client; 404: not found.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "client_id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantConsent records GDPR consent.
// 200: JSON; 409: consent already recorded.
func (h *ClientHandler) GrantConsent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "client_id")
	if !ok {
		return
	}
	c, err := h.Svc.GrantConsent(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, c)
}
