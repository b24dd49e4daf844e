package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/visionari-app/visionari-backend/api/routes"
	"github.com/visionari-app/visionari-backend/internal/checkoutgateway"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/internal/profile"
	checkoutwebhook "github.com/visionari-app/visionari-backend/internal/webhooks/checkout"
	"github.com/visionari-app/visionari-backend/internal/wizard"
	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/db"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/metrics"
	"github.com/visionari-app/visionari-backend/pkg/migrate"
	"github.com/visionari-app/visionari-backend/pkg/outbox"
	"github.com/visionari-app/visionari-backend/pkg/redis"
)

const (
	probeTimeout         = 10 * time.Second
	shutdownGrace        = 15 * time.Second
	webhookDedupTTL      = 24 * time.Hour
	webhookDedupScope    = "checkout"
	sessionSweepInterval = 5 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pricer, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to build pricing engine", err)
		os.Exit(1)
	}

	qualityValidator, err := imagequality.NewValidator(cfg.PrintQuality)
	if err != nil {
		logg.Error(context.Background(), "failed to build quality validator", err)
		os.Exit(1)
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	prober := imagemeta.NewClient(probeTimeout)

	ordersRepo := printorders.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersService := printorders.NewService(dbClient.DB(), ordersRepo, outboxService, logg)
	profileService := profile.NewService(ordersRepo, logg)
	gateway := checkoutgateway.NewGateway(cfg.Checkout, logg, orderMetrics)

	wizardStore := wizard.NewStore(cfg.Wizard.SessionTTL)
	wizardService := wizard.NewService(
		cfg.Wizard,
		wizardStore,
		prober,
		qualityValidator,
		pricer,
		ordersService,
		gateway,
		profileService,
		orderMetrics,
		logg,
	)

	webhookGuard, err := checkoutwebhook.NewIdempotencyGuard(redisClient, webhookDedupTTL, webhookDedupScope)
	if err != nil {
		logg.Error(context.Background(), "failed to build webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := checkoutwebhook.NewService(ordersService, webhookGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pricer,
			qualityValidator,
			prober,
			profileService,
			ordersService,
			wizardService,
			webhookService,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Sessions abandoned without an explicit close only expire lazily
	// on lookup; the sweeper reclaims the rest.
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if removed := wizardStore.Sweep(); removed > 0 {
					logg.Info(logg.WithField(ctx, "removed", removed), "expired wizard sessions swept")
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}
}
