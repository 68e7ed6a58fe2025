package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/salon-booking/cmd/mainconfig"
	"github.com/wolfman30/salon-booking/internal/admin"
	"github.com/wolfman30/salon-booking/internal/api/router"
	"github.com/wolfman30/salon-booking/internal/app/bootstrap"
	"github.com/wolfman30/salon-booking/internal/appointments"
	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/catalog"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/events"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/profiles"
	"github.com/wolfman30/salon-booking/internal/slots"
	"github.com/wolfman30/salon-booking/internal/timeslots"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const draftTTL = 24 * time.Hour

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for sessions and booking drafts", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	defer redisClient.Close()

	metricsHandler, bookingMetrics, gatherer := setupMetrics()

	// Identity
	provider, err := identity.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceRoleKey, 10*time.Second)
	if err != nil {
		logger.Error("failed to create identity provider", "error", err)
		os.Exit(1)
	}
	profileRepo := profiles.NewRepository(pool)
	adminChecker := profiles.NewCachedAdminChecker(profileRepo, redisClient, time.Minute, logger)
	holder := identity.NewHolder(adminChecker, logger.WithComponent("sessions"))
	draftStore := booking.NewRedisDraftStore(redisClient, draftTTL)

	bg := bootstrap.NewBackground(logger)
	if err := bootstrap.StartSessions(ctx, bg, bootstrap.Sessions{
		Holder:     holder,
		Store:      identity.NewRedisSessionStore(redisClient, cfg.SessionTTL),
		Drafts:     draftStore,
		AdminCache: adminChecker,
		Metrics:    bookingMetrics,
	}, logger); err != nil {
		logger.Error("failed to start sessions", "error", err)
		os.Exit(1)
	}
	refresher := identity.NewRefresher(holder, provider, cfg.TokenRefreshInterval, logger)
	bg.Go(ctx, "token-refresher", refresher.Start)

	accounts := identity.NewAccounts(provider, profileRepo, holder, logger)
	resolver := identity.NewResolver(holder, identity.NewVerifier(cfg.SupabaseJWTSecret), adminChecker, cfg.SessionCookieName, logger)
	authorizer := admin.NewAuthorizer(adminChecker, logger)

	// Catalog and booking
	catalogRepo := catalog.NewRepository(pool)
	slotRepo := timeslots.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool).WithLocation(cfg.Location())
	imageStore := setupImageStore(ctx, cfg, logger)

	bookingService := booking.NewService(booking.Deps{
		Catalog:  catalogRepo,
		Grid:     slotRepo,
		Appts:    apptRepo,
		Profiles: profileRepo,
		Drafts:   draftStore,
		Policy: slots.Policy{
			WindowDays:    cfg.BookingWindowDays,
			ClosedWeekday: cfg.BookingClosedWeekday,
			Location:      cfg.Location(),
		},
		Metrics: bookingMetrics,
		Logger:  logger.WithComponent("booking"),
	})

	adminHandler := admin.NewHandler(admin.Deps{
		Auth:         authorizer,
		Appointments: apptRepo,
		Profiles:     profileRepo,
		Users:        provider,
		Services:     catalogRepo,
		Images:       imageStore,
		Slots:        slotRepo,
		Dashboard:    admin.NewDashboardStore(sqlDB).WithGatherer(gatherer),
		Logger:       logger.WithComponent("admin"),
	})

	// Notifications are delivered from the outbox written by the repositories.
	notifier := notify.NewService(
		bootstrap.BuildEmailSender(cfg, logger),
		provider,
		profileRepo,
		notify.Config{SalonName: cfg.SalonName, NotifyEmail: cfg.SalonNotifyEmail},
		bookingMetrics,
		logger.WithComponent("notify"),
	)
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), notifier, logger).
		WithInterval(cfg.OutboxPollInterval)
	bg.Go(ctx, "outbox-deliverer", deliverer.Start)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	bg.Go(ctx, "rate-limit-evict", limiter.Run)

	r := router.New(&router.Config{
		Logger:     logger,
		Resolver:   resolver,
		Authorizer: authorizer,
		IdentityHandler: identity.NewHandler(accounts, identity.CookieConfig{
			Name:   cfg.SessionCookieName,
			TTL:    cfg.SessionTTL,
			Secure: cfg.Env == "production",
		}, logger),
		CatalogHandler:     catalog.NewHandler(catalogRepo, logger),
		BookingHandler:     booking.NewHandler(bookingService, logger),
		AppointmentHandler: appointments.NewHandler(apptRepo, cfg.Location(), logger),
		ProfileHandler:     profiles.NewHandler(profileRepo, logger),
		AdminHandler:       adminHandler,
		MetricsHandler:     metricsHandler,
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthCheck: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	bg.Wait(10 * time.Second)

	logger.Info("server stopped")
}

// setupMetrics registers booking metrics plus the runtime collectors on a
// dedicated registry and returns the scrape handler.
func setupMetrics() (http.Handler, *metrics.BookingMetrics, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m, reg
}

// setupImageStore returns an upload-capable store when a bucket is
// configured. Without one, uploads answer ErrImagesDisabled.
func setupImageStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *catalog.ImageStore {
	if cfg.ServiceImagesBucket == "" {
		logger.Info("SERVICE_IMAGES_BUCKET not set; image uploads disabled")
		return catalog.NewImageStore(nil, "", cfg.AWSRegion, "", logger)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config; image uploads disabled", "error", err)
		return catalog.NewImageStore(nil, "", cfg.AWSRegion, "", logger)
	}
	baseURL := ""
	if cfg.AWSEndpointOverride != "" {
		baseURL = strings.TrimRight(cfg.AWSEndpointOverride, "/") + "/" + cfg.ServiceImagesBucket
	}
	return catalog.NewImageStore(mainconfig.NewS3Client(awsCfg, cfg), cfg.ServiceImagesBucket, cfg.AWSRegion, baseURL, logger)
}
