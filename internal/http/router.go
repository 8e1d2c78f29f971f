package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/swaggo/swag"

	_ "github.com/MrKriegler/go-brokerage/docs"
	"github.com/MrKriegler/go-brokerage/internal/http/handlers"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

const apiPrefix = "/api/v1"

// Deps bundles feature handlers that implement handlers.Mountable plus the
// cross-cutting pieces of the request chain.
type Deps struct {
	Log            *slog.Logger
	Mounts         []handlers.Mountable
	Health         handlers.Mountable
	Tokens         middleware.TokenParser
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	Redis          redis.Cmdable           // nil disables Idempotency-Key handling
	IdempotencyTTL time.Duration
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	if d.Health != nil {
		d.Health.Mount(r)
	}
	r.Get("/swagger/doc.json", swaggerDoc(d.Log))

	r.Route(apiPrefix, func(api chi.Router) {
		api.Use(middleware.BodyLimits)
		api.Use(middleware.Authenticate(d.Tokens))
		if d.Redis != nil {
			api.Use(middleware.Idempotency(d.Redis, d.IdempotencyTTL, d.Log))
		}
		api.Use(middleware.SetJSONContentType)

		// Mount each feature's routes into this router.
		for _, m := range d.Mounts {
			m.Mount(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		problem.Write(w, http.StatusNotFound, "", "No route matches the request path.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		problem.Write(w, http.StatusMethodNotAllowed, "", "Method not allowed for this route.")
	})

	return r
}

func swaggerDoc(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			if log != nil {
				log.ErrorContext(r.Context(), "failed to read swagger doc", "err", err)
			}
			problem.Write(w, http.StatusInternalServerError, "", "API documentation unavailable.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}
}
