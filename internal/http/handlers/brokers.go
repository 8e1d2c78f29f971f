package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type BrokerHandler struct {
	Svc core.BrokerService
	Log *slog.Logger
}

func NewBrokerHandler(svc core.BrokerService, log *slog.Logger) *BrokerHandler {
	return &BrokerHandler{Svc: svc, Log: log}
}

func (h *BrokerHandler) Mount(r chi.Router) {
	r.Route("/brokers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{broker_id}", h.Get)
		r.Put("/{broker_id}", h.Update)
	})
}

func (h *BrokerHandler) List(w http.ResponseWriter, r *http.Request) {
	brokers, err := h.Svc.List(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	brokers = nonNil(brokers)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.Broker]{Items: brokers, Total: int64(len(brokers))})
}

func (h *BrokerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "broker_id")
	if !ok {
		return
	}
	b, err := h.Svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, b)
}

// Create onboards a broker.
// 201: JSON; 403: missing manage_brokers; 409: email taken.
func (h *BrokerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b core.Broker
	if !decodeJSON(w, r, &b) {
		return
	}
	created, err := h.Svc.Create(r.Context(), middleware.ActorFrom(r.Context()), b)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusCreated, created)
}

func (h *BrokerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "broker_id")
	if !ok {
		return
	}
	var b core.Broker
	if !decodeJSON(w, r, &b) {
		return
	}
	updated, err := h.Svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, b)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, updated)
}
