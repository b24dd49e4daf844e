package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionari-app/visionari-backend/api/controllers"
	webhookcontrollers "github.com/visionari-app/visionari-backend/api/controllers/webhooks"
	"github.com/visionari-app/visionari-backend/api/middleware"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/internal/wizard"
	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/db"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	pkgredis "github.com/visionari-app/visionari-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	pricer pricing.Engine,
	qualityValidator imagequality.Validator,
	prober imagemeta.Prober,
	profileService profile.Service,
	ordersService printorders.Service,
	wizardService wizard.Service,
	checkoutWebhookService webhookcontrollers.CheckoutWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var cachePinger pkgredis.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/checkout", webhookcontrollers.CheckoutWebhook(checkoutWebhookService, cfg.Checkout.WebhookSecret, logg))
	})

	// A nil *Client must stay nil once behind the interface or the
	// middleware's nil check stops working.
	var idemStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity())
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/print-orders", func(r chi.Router) {
			r.Post("/quote", controllers.QuoteOrder(pricer, profileService, logg))
			r.Post("/validate-image", controllers.ValidateImage(prober, qualityValidator, logg))
			r.Get("/last-address", controllers.LastShippingAddress(ordersService, logg))
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
		})

		r.Route("/v1/wizard/sessions", func(r chi.Router) {
			r.Post("/", controllers.StartWizard(wizardService, logg))
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", controllers.GetWizardSession(wizardService, logg))
				r.Delete("/", controllers.CloseWizardSession(wizardService, logg))
				r.Put("/config", controllers.UpdateWizardConfig(wizardService, logg))
				r.Put("/shipping", controllers.UpdateWizardShipping(wizardService, logg))
				r.Post("/next", controllers.AdvanceWizard(wizardService, logg))
				r.Post("/back", controllers.RewindWizard(wizardService, logg))
				r.Post("/submit", controllers.SubmitWizard(wizardService, logg))
			})
		})
	})

	return r
}
