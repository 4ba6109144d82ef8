package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolcrib/toolcrib-backend/api/controllers"
	"github.com/toolcrib/toolcrib-backend/api/middleware"
	"github.com/toolcrib/toolcrib-backend/internal/additions"
	"github.com/toolcrib/toolcrib-backend/internal/auth"
	"github.com/toolcrib/toolcrib-backend/internal/maintenance"
	"github.com/toolcrib/toolcrib-backend/internal/notifications"
	"github.com/toolcrib/toolcrib-backend/internal/reports"
	"github.com/toolcrib/toolcrib-backend/internal/requests"
	"github.com/toolcrib/toolcrib-backend/internal/tools"
	"github.com/toolcrib/toolcrib-backend/internal/users"
	"github.com/toolcrib/toolcrib-backend/pkg/auth/session"
	"github.com/toolcrib/toolcrib-backend/pkg/config"
	"github.com/toolcrib/toolcrib-backend/pkg/db"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Grouping them in a
// struct keeps main readable as services accumulate.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Sessions    session.AccessSessionChecker
	ActorSource middleware.ActorSource

	Auth          auth.Service
	Tools         tools.Service
	Users         users.Service
	Requests      requests.Service
	Additions     additions.Service
	Maintenance   maintenance.Service
	Notifications notifications.Service
	Reports       reports.Service
}

func NewRouter(d Deps) http.Handler {
	logg := d.Logger

	authCtrl := controllers.NewAuthController(d.Auth, logg)
	toolsCtrl := controllers.NewToolsController(d.Tools, logg)
	usersCtrl := controllers.NewUsersController(d.Users, d.Tools, logg)
	requestsCtrl := controllers.NewRequestsController(d.Requests, logg)
	additionsCtrl := controllers.NewAdditionsController(d.Additions, logg)
	maintenanceCtrl := controllers.NewMaintenanceController(d.Maintenance, logg)
	quickCtrl := controllers.NewQuickActionsController(d.Tools, d.Users, d.Requests, d.Additions, d.Maintenance, logg)
	reportsCtrl := controllers.NewReportsController(d.Reports, logg)
	notificationsCtrl := controllers.NewNotificationsController(d.Notifications, logg)
	healthCtrl := controllers.NewHealthController(d.DB, d.Redis, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(d.Config.App.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthCtrl.Live)
		r.Get("/ready", healthCtrl.Ready)
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(d.Redis, d.Config.AuthRateLimit, logg)).
			Post("/login", authCtrl.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Config.JWT, d.Sessions, d.ActorSource, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Post("/auth/logout", authCtrl.Logout)

		reviewer := middleware.RequireReviewer(logg)
		admin := middleware.RequireAdmin(logg)

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolsCtrl.List)
			r.With(admin).Post("/", toolsCtrl.Create)
			r.Get("/{id}", toolsCtrl.Get)
			r.With(reviewer).Put("/{id}", toolsCtrl.Update)
			r.With(reviewer).Delete("/{id}", toolsCtrl.Delete)
			r.With(reviewer).Put("/{id}/assign", toolsCtrl.Assign)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(reviewer).Get("/", usersCtrl.List)
			r.With(admin).Post("/", usersCtrl.Create)
			r.With(reviewer).Get("/stats/dashboard", usersCtrl.Stats)
			r.With(reviewer).Post("/assign-tool", usersCtrl.AssignTool)
			r.With(reviewer).Post("/export", reportsCtrl.ExportPost)
			r.With(admin).Post("/backup", reportsCtrl.Backup)
			r.Get("/{id}", usersCtrl.Get)
			r.Get("/{id}/tools", usersCtrl.Profile)
			r.Put("/{id}", usersCtrl.Update)
			r.With(admin).Delete("/{id}", usersCtrl.Deactivate)
			r.With(admin).Put("/{id}/activate", usersCtrl.Activate)
			r.With(admin).Delete("/{id}/permanent", usersCtrl.PermanentDelete)
		})

		r.Route("/tool-requests", func(r chi.Router) {
			r.Get("/", requestsCtrl.List)
			r.Post("/", requestsCtrl.Create)
			r.With(reviewer).Get("/stats/dashboard", requestsCtrl.Stats)
			r.Get("/{id}", requestsCtrl.Get)
			r.With(reviewer).Put("/{id}/review", requestsCtrl.Review)
			r.Put("/{id}/cancel", requestsCtrl.Cancel)
		})

		r.Route("/tool-addition-requests", func(r chi.Router) {
			r.Get("/", additionsCtrl.List)
			r.Post("/", additionsCtrl.Create)
			r.With(reviewer).Get("/stats/dashboard", additionsCtrl.Stats)
			r.Get("/{id}", additionsCtrl.Get)
			r.With(reviewer).Put("/{id}/review", additionsCtrl.Review)
			r.Put("/{id}/cancel", additionsCtrl.Cancel)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/", maintenanceCtrl.List)
			r.With(reviewer).Post("/", maintenanceCtrl.Schedule)
			r.Get("/stats/dashboard", maintenanceCtrl.Stats)
			r.Get("/{id}", maintenanceCtrl.Get)
			r.Put("/{id}", maintenanceCtrl.Update)
			r.With(reviewer).Delete("/{id}", maintenanceCtrl.Delete)
		})

		r.Route("/quick-actions", func(r chi.Router) {
			r.With(reviewer).Post("/assign-tool", quickCtrl.AssignTool)
			r.Post("/return-tool", quickCtrl.ReturnTool)
			r.With(reviewer).Post("/schedule-maintenance", quickCtrl.ScheduleMaintenance)
			r.With(reviewer).Get("/dashboard-stats", quickCtrl.DashboardStats)
			r.With(reviewer).Get("/search", quickCtrl.Search)
		})

		r.Route("/reports", func(r chi.Router) {
			r.With(reviewer).Get("/export/{type}", reportsCtrl.Export)
			r.With(admin).Post("/import/tools", reportsCtrl.ImportTools)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(reviewer).Post("/broadcast", notificationsCtrl.Broadcast)
			r.Get("/system-status", notificationsCtrl.SystemStatus)
		})
	})

	return r
}
