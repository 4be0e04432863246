package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sitecompliance-backend/api/controllers"
	"github.com/angelmondragon/sitecompliance-backend/api/middleware"
	"github.com/angelmondragon/sitecompliance-backend/internal/attachments"
	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/internal/clients"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/processes"
	"github.com/angelmondragon/sitecompliance-backend/internal/projects"
	"github.com/angelmondragon/sitecompliance-backend/internal/reports"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/sitecompliance-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies wires every service the router exposes. Nil services answer
// with an internal error; a nil Redis disables idempotency and rate limiting.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.HTTPMetrics
	Redis    RedisStore
	Ready    map[string]controllers.Pinger

	Clients      clients.Service
	Projects     projects.Service
	Licenses     licenses.Service
	Avcbs        avcbs.Service
	Conditionals conditionals.Service
	Processes    processes.Service
	Attachments  attachments.Service
	Calendar     calendar.Service
	Residues     residues.Service
	Reports      reports.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	writePolicy := middleware.NewRateLimitPolicy(
		"writes",
		cfg.RateLimit.Window,
		cfg.RateLimit.WriteLimit,
		cfg.RateLimit.WriteLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor())
		if deps.Redis != nil {
			r.Use(middleware.RateLimit(writePolicy, deps.Redis, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ClientList(deps.Clients, logg))
			r.Post("/", controllers.ClientCreate(deps.Clients, logg))
			r.Get("/{clientId}", controllers.ClientGet(deps.Clients, logg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(deps.Projects, logg))
			r.Post("/", controllers.ProjectCreate(deps.Projects, logg))
			r.Get("/{projectId}", controllers.ProjectGet(deps.Projects, logg))
			r.Get("/{projectId}/summary", controllers.ProjectSummary(deps.Projects, logg))
		})

		r.Route("/licenses", func(r chi.Router) {
			r.Get("/", controllers.LicenseList(deps.Licenses, logg))
			r.Post("/", controllers.LicenseCreate(deps.Licenses, logg))
			r.Get("/{licenseId}", controllers.LicenseGet(deps.Licenses, logg))
			r.Patch("/{licenseId}", controllers.LicenseUpdate(deps.Licenses, logg))
			r.Get("/{licenseId}/conditionals", controllers.ConditionalListByLicense(deps.Conditionals, logg))
			r.Post("/{licenseId}/conditionals", controllers.ConditionalCreate(deps.Conditionals, logg))
			r.Get("/{licenseId}/processes", controllers.ProcessListByLicense(deps.Processes, logg))
		})

		r.Route("/avcbs", func(r chi.Router) {
			r.Get("/", controllers.AvcbList(deps.Avcbs, logg))
			r.Post("/", controllers.AvcbCreate(deps.Avcbs, logg))
			r.Get("/{avcbId}", controllers.AvcbGet(deps.Avcbs, logg))
			r.Patch("/{avcbId}", controllers.AvcbUpdate(deps.Avcbs, logg))
		})

		r.Route("/conditionals/{conditionalId}", func(r chi.Router) {
			r.Get("/", controllers.ConditionalGet(deps.Conditionals, logg))
			r.Get("/occurrence", controllers.ConditionalOccurrence(deps.Conditionals, logg))
			r.Get("/executions", controllers.ConditionalExecutions(deps.Conditionals, logg))
			r.Post("/executions", controllers.ConditionalRecordExecution(deps.Conditionals, logg))
			r.Patch("/executions/{executionId}", controllers.ConditionalExecutionNotes(deps.Conditionals, logg))
			r.Post("/advance", controllers.ConditionalAdvance(deps.Conditionals, logg))
		})

		r.Route("/processes", func(r chi.Router) {
			r.Post("/", controllers.ProcessCreate(deps.Processes, logg))
			r.Get("/{processId}", controllers.ProcessGet(deps.Processes, logg))
			r.Post("/{processId}/timeline", controllers.ProcessAppendTimeline(deps.Processes, logg))
		})

		r.Route("/attachments", func(r chi.Router) {
			r.Get("/", controllers.AttachmentList(deps.Attachments, logg))
			r.Post("/", controllers.AttachmentUpload(deps.Attachments, cfg.Storage.MaxUploadBytes(), logg))
			r.Get("/{attachmentId}", controllers.AttachmentGet(deps.Attachments, logg))
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/sync", controllers.CalendarSync(deps.Calendar, logg))
			r.Get("/events", controllers.CalendarEvents(deps.Calendar, logg))
			r.Get("/events/{eventId}", controllers.CalendarEventGet(deps.Calendar, logg))
			r.Patch("/events/{eventId}", controllers.CalendarEventUpdate(deps.Calendar, logg))
			r.Get("/events/{eventId}/reminders", controllers.CalendarReminders(deps.Calendar, logg))
		})

		r.Route("/residues", func(r chi.Router) {
			for path, role := range map[string]enums.WasteHandlerRole{
				"/transporters": enums.WasteHandlerTransporter,
				"/recipients":   enums.WasteHandlerRecipient,
			} {
				r.Route(path, func(r chi.Router) {
					r.Get("/", controllers.WasteHandlerList(deps.Residues, role, logg))
					r.Post("/", controllers.WasteHandlerCreate(deps.Residues, role, logg))
					r.Get("/{handlerId}", controllers.WasteHandlerGet(deps.Residues, role, logg))
					r.Patch("/{handlerId}", controllers.WasteHandlerUpdate(deps.Residues, role, logg))
					r.Delete("/{handlerId}", controllers.WasteHandlerDelete(deps.Residues, role, logg))
				})
			}
		})

		r.Get("/reports/license-expiry", controllers.LicenseExpiryReport(deps.Reports, logg))

		r.Get("/dashboard", controllers.Dashboard(deps.Projects, logg))
	})

	return r
}
