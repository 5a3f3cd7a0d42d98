package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/session"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Authenticate func(http.Handler) http.Handler
	Sessions     *session.Manager
	Pages        *page.Service
	Status       *statusreg.Registry
	Metrics      *observability.Metrics
	Gatherer     prometheus.Gatherer
	Readiness    observability.ReadinessChecks
	Now          func() time.Time
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.Status == nil {
		deps.Status = statusreg.NewRegistry(nil)
	}
	h := &handlers{
		pages:    deps.Pages,
		sessions: deps.Sessions,
		status:   deps.Status,
		logger:   logger,
		now:      now,
	}

	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(observability.TracingMiddleware)

	// Public routes bypass authentication.
	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler(deps.Gatherer))
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildRequestContext(deps.Config.Identity.ClaimPaths))

		// Session endpoints manage the session themselves.
		r.Group(func(r chi.Router) {
			r.Use(RequestLogging(logger))
			r.Use(deps.Metrics.MetricsMiddleware)
			r.Post("/session", h.startSession)
			r.Delete("/session", h.endSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(Sessions(deps.Sessions, logger))
			r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
			r.Use(RequestLogging(logger))
			r.Use(deps.Metrics.MetricsMiddleware)

			r.Get("/shortage/arrivals", h.arrivals)
			r.Get("/shortage/arrivals/export.xlsx", h.exportArrivalsXLSX)
			r.Get("/shortage/arrivals/export.csv", h.exportArrivalsCSV)
			r.Post("/shortage/arrivals/{id}/receive", h.receiveArrival())
			r.Post("/shortage/arrivals/{id}/follow-up", h.followUpArrival())
			r.Get("/shortage/substitutions", h.substitutions)
			r.Post("/shortage/substitutions", h.createSubstitution)
			r.Post("/shortage/substitutions/{id}/{action}", h.substitutionAction)
			r.Post("/shortage/reports", h.createShortageReport)

			r.Get("/purchase/orders", h.purchaseOrders)
			r.Get("/purchase/orders/export.xlsx", h.exportPurchaseOrders)
			r.Get("/purchase/orders/{id}", withID(h.purchaseOrder))
			r.Post("/purchase/orders/{id}/{action}", h.purchaseOrderAction)

			r.Get("/costs/projects/{id}", withID(h.costDashboard))

			r.Get("/customers/{id}/360", withID(h.customer360))
			r.Post("/customers/{id}/follow-ups", h.createCustomerFollowUp())

			r.Get("/engineers/workload", h.workload)

			r.Get("/scheduler/dashboard", h.schedulerDashboard)
			r.Post("/scheduler/jobs/{id}/trigger", h.triggerJob)
			r.Get("/scheduler/metrics/export", h.schedulerMetricsExport)

			r.Get("/projects/{id}/stages", withID(h.projectStages))
			r.Post("/projects/{id}/stages/{stage}/advance", h.advanceStage())
			r.Get("/stages/pipeline", h.pipeline)

			r.Get("/presale/templates", h.templates)
			r.Post("/presale/templates/{id}/{action}", h.templateAction)

			r.Get("/status", h.statusDomains)
			r.Get("/status/{domain}", h.statusDomain)
		})
	})

	return r
}
