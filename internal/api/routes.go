package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/store"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Repo       store.Repository
	Tracker    *tracking.Service
	Hub        *tracking.Hub
	Registry   *tracking.Registry
	Dispatcher *tracking.Dispatcher
	Health     *HealthChecker
	WS         WSConfig
	StaticDir  string
	Logger     *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	api := &handlers{repo: d.Repo, tracker: d.Tracker}
	ws := &WSHandler{Hub: d.Hub, Config: d.WS.withDefaults(), logger: d.Logger.Named("ws")}
	live := &liveHandler{reg: d.Registry, dispatcher: d.Dispatcher}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/workers", api.listWorkers)
		r.Get("/workers/{id}", api.getWorker)
		r.Post("/add-worker", api.addWorker)
		r.Get("/search", api.searchWorkers)

		r.Post("/bookings", api.createBooking)
		r.Get("/bookings/{id}", api.getBooking)
		r.Get("/bookings/{id}/history", api.bookingHistory)
		r.Post("/bookings/{id}/update-location", api.updateLocation)

		r.Get("/tracking", live.ServeHTTP)
	})
	r.Get("/ws/bookings/{id}", ws.HandleWS)

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	if d.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.StaticDir)))
	}
	return r
}
