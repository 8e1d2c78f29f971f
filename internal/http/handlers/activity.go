package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

type ActivityHandler struct {
	Svc core.ActivityService
	Log *slog.Logger
}

func NewActivityHandler(svc core.ActivityService, log *slog.Logger) *ActivityHandler {
	return &ActivityHandler{Svc: svc, Log: log}
}

func (h *ActivityHandler) Mount(r chi.Router) {
	r.Get("/activity", h.List)
}

// List returns an entity's timeline, newest first.
// Query: entity_type (CLIENT, OFFER, POLICY), entity_id, optional limit.
// 200: JSON; 400: bad query; 404: entity not found or outside scope.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	entityID, ok := queryID(w, r, "entity_id")
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problem.WriteProblem(w, problem.Problem{
				Status: http.StatusBadRequest,
				Title:  "Invalid Query",
				Detail: "limit must be a non-negative integer.",
				Field:  "limit",
			})
			return
		}
		limit = min(n, maxPageSize)
	}
	entityType := core.EntityType(strings.ToUpper(r.URL.Query().Get("entity_type")))

	entries, err := h.Svc.ListForEntity(r.Context(), middleware.ActorFrom(r.Context()), entityType, entityID, limit)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	entries = nonNil(entries)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.ActivityLogEntry]{Items: entries, Total: int64(len(entries))})
}
