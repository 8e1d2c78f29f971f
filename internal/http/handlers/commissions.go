package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type CommissionHandler struct {
	Svc core.CommissionService
	Log *slog.Logger
}

func NewCommissionHandler(svc core.CommissionService, log *slog.Logger) *CommissionHandler {
	return &CommissionHandler{Svc: svc, Log: log}
}

func (h *CommissionHandler) Mount(r chi.Router) {
	r.Route("/commissions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{commission_id}:pay", h.MarkPaid)
		r.Post("/{commission_id}:cancel", h.Cancel)
	})
}

// List returns commissions in the caller's scope, filtered by policy_id and status.
// 200: JSON.
func (h *CommissionHandler) List(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := brokerQuery(w, r)
	if !ok {
		return
	}
	policyID, ok := queryID(w, r, "policy_id")
	if !ok {
		return
	}
	filter := core.CommissionFilter{
		BrokerID: brokerID,
		PolicyID: policyID,
		Status:   core.CommissionStatus(r.URL.Query().Get("status")),
	}

	items, err := h.Svc.List(r.Context(), middleware.ActorFrom(r.Context()), filter)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	items = nonNil(items)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.Commission]{Items: items, Total: int64(len(items))})
}

// MarkPaid settles a pending commission.
// 200: JSON; 403: missing manage_commissions; 409: not pending.
func (h *CommissionHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commission_id")
	if !ok {
		return
	}
	c, err := h.Svc.MarkPaid(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, c)
}

func (h *CommissionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commission_id")
	if !ok {
		return
	}
	c, err := h.Svc.Cancel(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, c)
}
