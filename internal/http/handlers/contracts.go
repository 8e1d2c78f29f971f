package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

type Mountable interface {
	Mount(r chi.Router)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

type pageResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// decodeJSON reads a request body. Numbers are kept as json.Number so custom
// field values reach the rating engine without float rounding.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			problem.Write(w, http.StatusBadRequest, "Invalid Request Body", "Request body is required.")
			return false
		}
		problem.Write(w, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}

// pathID parses a positive integer path parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problem.WriteProblem(w, problem.Problem{
			Status: http.StatusBadRequest,
			Title:  "Invalid ID",
			Detail: "Path parameter " + name + " must be a positive integer.",
			Field:  name,
		})
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter; zero means absent.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problem.WriteProblem(w, problem.Problem{
			Status: http.StatusBadRequest,
			Title:  "Invalid Query",
			Detail: "Query parameter " + name + " must be a positive integer.",
			Field:  name,
		})
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, maxPageSize)
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// brokerQuery narrows a list to one broker; the core still clamps it to the caller's scope.
func brokerQuery(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	id, ok := queryID(w, r, "broker_id")
	if !ok || id == 0 {
		return nil, ok
	}
	return &id, true
}
