package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type QuoteHandler struct {
	Svc core.QuoteService
	Log *slog.Logger
}

func NewQuoteHandler(svc core.QuoteService, log *slog.Logger) *QuoteHandler {
	return &QuoteHandler{Svc: svc, Log: log}
}

func (h *QuoteHandler) Mount(r chi.Router) {
	r.Post("/premium/calculate", h.Calculate)
}

// Calculate prices a product for a client without storing anything.
// 200: JSON with premium and breakdown; 400: invalid inputs; 404: product or client not found.
func (h *QuoteHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req core.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.Svc.Calculate(r.Context(), middleware.ActorFrom(r.Context()), req)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, quote)
}
