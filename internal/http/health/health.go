package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is one named readiness dependency.
type Check struct {
	Name   string
	Pinger Pinger
}

type Handler struct {
	log       *slog.Logger
	checks    []Check
	opTimeout time.Duration
}

// New builds liveness and readiness endpoints. Every check must pass for /readyz to report ready.
func New(log *slog.Logger, opTimeout time.Duration, checks ...Check) *Handler {
	return &Handler{log: log, checks: checks, opTimeout: opTimeout}
}

func (h *Handler) Mount(r chi.Router) {
	// Liveness: process is up
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	// Readiness: dependencies are reachable
	r.Get("/readyz", h.ready)
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = readiness{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	)
	for _, c := range h.checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			err := c.Pinger.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Status = "not ready"
				out.Checks[c.Name] = err.Error()
				if h.log != nil {
					h.log.Warn("readiness failed", "check", c.Name, "err", err)
				}
				return
			}
			out.Checks[c.Name] = "ok"
		}(c)
	}
	wg.Wait()

	status := http.StatusOK
	if out.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}
