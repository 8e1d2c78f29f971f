package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type OfferHandler struct {
	Svc core.OfferService
	Log *slog.Logger
}

func NewOfferHandler(svc core.OfferService, log *slog.Logger) *OfferHandler {
	return &OfferHandler{Svc: svc, Log: log}
}

func (h *OfferHandler) Mount(r chi.Router) {
	r.Route("/offers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{offer_id}", h.Get)
		r.Post("/{offer_id}:reject", h.Reject)
		r.Post("/{offer_id}:convert", h.Convert)
	})
}

// List returns offers in the caller's scope. Status filters on the effective status.
// 200: JSON.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := brokerQuery(w, r)
	if !ok {
		return
	}
	clientID, ok := queryID(w, r, "client_id")
	if !ok {
		return
	}
	filter := core.OfferFilter{
		BrokerID: brokerID,
		ClientID: clientID,
		Status:   core.OfferStatus(r.URL.Query().Get("status")),
	}

	offers, err := h.Svc.List(r.Context(), middleware.ActorFrom(r.Context()), filter)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	offers = nonNil(offers)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.Offer]{Items: offers, Total: int64(len(offers))})
}

// Create stores a rated offer as PENDING with a 30 day validity.
// 201: JSON; 400: invalid input; 403: booking for another broker; 422: no GDPR consent.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.OfferInput
	if !decodeJSON(w, r, &in) {
		return
	}
	offer, err := h.Svc.Create(r.Context(), middleware.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusCreated, offer)
}

// Get retrieves an offer by ID.
// 200: JSON; 400: bad ID; 404: not found or outside scope.
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "offer_id")
	if !ok {
		return
	}
	offer, err := h.Svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, offer)
}

// Reject withdraws a pending offer.
// 200: JSON; 404: not found; 409: not pending.
func (h *OfferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "offer_id")
	if !ok {
		return
	}
	offer, err := h.Svc.Reject(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, offer)
}

// Convert accepts the offer and issues its policy.
// 201: policy JSON; 404: not found; 409: not pending; 410: expired.
func (h *OfferHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "offer_id")
	if !ok {
		return
	}
	var in core.CheckoutInput
	if !decodeJSON(w, r, &in) {
		return
	}
	policy, err := h.Svc.ConvertToPolicy(r.Context(), middleware.ActorFrom(r.Context()), id, in)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusCreated, policy)
}
