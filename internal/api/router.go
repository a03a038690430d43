package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/api/handler"
	apimw "github.com/lexops/notify/internal/api/middleware"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
	"github.com/lexops/notify/internal/webhook"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Service   *service.NotificationService
	Publisher handler.Publisher
	Directory repository.DirectoryRepository
	Payments  *webhook.PaymentAdapter
	Mode      handler.ModeSwitcher
	Migrator  handler.Migrator
	Queue     *queue.PriorityQueue
	Registry  prometheus.Gatherer
	Logger    *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(deps.Logger))

	// --- handler instances ---
	eh := handler.NewEventHandler(deps.Publisher, deps.Directory, deps.Logger)
	nh := handler.NewNotificationHandler(deps.Service, deps.Logger)
	wh := handler.NewWebhookHandler(deps.Payments, deps.Logger)
	ah := handler.NewAdminHandler(deps.Mode, deps.Migrator, deps.Logger)
	mh := handler.NewMetricsHandler(deps.Queue, deps.Service)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Post("/webhooks/payments/{tenantID}", wh.Payments)

	r.Route("/api/v1", func(r chi.Router) {
		// Events — /events/role must be registered before any future
		// /events/{id} style route so chi matches the literal segment.
		r.Post("/events/role", eh.PublishToRole)
		r.Post("/events", eh.Publish)

		// Notifications
		r.Get("/notifications", nh.List)
		r.Post("/notifications/{id}/read", nh.MarkRead)

		// Legacy transition controls
		r.Put("/admin/legacy/mode", ah.SetLegacyMode)
		r.Post("/admin/legacy/migrate", ah.MigrateLegacy)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
