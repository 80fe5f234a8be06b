package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/catalog"
	"github.com/novadent/novadent/internal/devices"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/observability"
	"github.com/novadent/novadent/internal/patients"
	"github.com/novadent/novadent/internal/shared"
	"github.com/novadent/novadent/internal/visits"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	AuthHandler         *auth.Handler
	PatientsHandler     *patients.Handler
	CatalogHandler      *catalog.Handler
	AppointmentsHandler *appointments.Handler
	VisitsHandler       *visits.Handler
	InventoryHandler    *inventory.Handler
	DevicesHandler      *devices.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with clinic defaults. Everything under
// /api except /api/auth/login requires an authenticated session.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Route("/patients", params.PatientsHandler.MountRoutes)
			r.Route("/services", params.CatalogHandler.MountRoutes)
			r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
			r.Route("/visits", params.VisitsHandler.MountRoutes)
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
			r.Route("/devices", params.DevicesHandler.MountRoutes)
		})
	})

	return r
}
