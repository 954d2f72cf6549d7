package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/handlers"
	"github.com/baechuer/campus-coord/internal/transport/http/middleware"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Bookings  *handlers.BookingsHandler
	Resources *handlers.ResourcesHandler
	Events    *handlers.EventsHandler
	Health    *handlers.HealthHandler
}

type Limits struct {
	Enabled     bool
	IPLimit     int
	IPWindow    time.Duration
	LoginLimit  int
	LoginWindow time.Duration
}

// New wires the API. limiter may be nil, in which case login attempts are
// only covered by the per-IP limit.
func New(h Handlers, gate *middleware.Gate, limiter middleware.Limiter, lim Limits) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)

	if lim.Enabled && lim.IPLimit > 0 {
		r.Use(httprate.Limit(
			lim.IPLimit,
			lim.IPWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.RecordRateLimited("ip")
				response.Err(w, r, domain.ErrRateLimited("ip"))
			}),
		))
	}

	r.Use(gate.Handler)

	r.Get("/healthz", h.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit(limiter, lim)).Post("/login", h.Auth.Login)
		r.Post("/register", h.Auth.Register)
		r.Post("/refresh", h.Auth.Refresh)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.Bookings.Create)
		r.Get("/", h.Bookings.ListMine)
	})

	r.Route("/resources", func(r chi.Router) {
		r.Get("/", h.Resources.List)
		r.Get("/{id}/availability", h.Resources.Availability)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.Events.List)
		r.Post("/", h.Events.Create)
		r.Get("/registered", h.Events.Registered)
		r.Delete("/{id}", h.Events.Delete)
		r.Put("/{id}/approve", h.Events.Approve)
		r.Put("/{id}/reject", h.Events.Reject)
		r.Post("/{id}/register", h.Events.Register)
		r.Delete("/{id}/register", h.Events.Unregister)
		r.Get("/{id}/registrations", h.Events.Registrations)
	})

	r.Get("/admin/events/pending", h.Events.Pending)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, r, http.StatusNotFound, "route_not_found", "no route for "+r.Method+" "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	return r
}

func loginLimit(l middleware.Limiter, lim Limits) func(http.Handler) http.Handler {
	if !lim.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.LoginRateLimit(l, lim.LoginLimit, lim.LoginWindow)
}
