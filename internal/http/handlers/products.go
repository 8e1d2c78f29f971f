package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
)

type ProductHandler struct {
	Svc core.ProductService
	Log *slog.Logger
}

func NewProductHandler(svc core.ProductService, log *slog.Logger) *ProductHandler {
	return &ProductHandler{Svc: svc, Log: log}
}

func (h *ProductHandler) Mount(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{product_id}", h.Get)
		r.Put("/{product_id}", h.Update)
	})
}

// List returns the catalogue, optionally narrowed by category and active flag.
// 200: JSON.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := core.ProductFilter{Category: core.Category(r.URL.Query().Get("category"))}
	if v, err := strconv.ParseBool(r.URL.Query().Get("active")); err == nil {
		filter.ActiveOnly = v
	}

	products, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	products = nonNil(products)
	writeJSON(w, h.Log, http.StatusOK, listResponse[core.Product]{Items: products, Total: int64(len(products))})
}

// Get returns one product with its custom field definitions.
// 200: JSON; 404: not found.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, p)
}

// Create defines a product. Administrators only.
// 201: JSON; 400: invalid definition; 403: not an administrator; 409: code taken.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p core.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	created, err := h.Svc.Create(r.Context(), middleware.ActorFrom(r.Context()), p)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}
	var p core.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	updated, err := h.Svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, p)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, updated)
}
