package bot

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/premium-gate-bot/internal/http-server/mware"
)

// Routes обработчики http-сервера бота.
type Routes struct {
	WebhookPath  string
	Webhook      http.Handler
	Health       http.Handler
	Gatherer     prometheus.Gatherer
	WebhookRate  float64
	WebhookBurst int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, routes Routes) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Group(func(r chi.Router) {
		r.Use(mware.RateLimit(logger, routes.WebhookRate, routes.WebhookBurst))
		r.Post(routes.WebhookPath, routes.Webhook.ServeHTTP)
	})

	r.Get("/health", routes.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{}))
}
