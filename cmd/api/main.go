package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/access-api/internal/config"
	accessHandler "github.com/jwalitptl/access-api/internal/handler/access"
	"github.com/jwalitptl/access-api/internal/handler/health"
	"github.com/jwalitptl/access-api/internal/handler/organization"
	userHandler "github.com/jwalitptl/access-api/internal/handler/user"
	"github.com/jwalitptl/access-api/internal/middleware"
	"github.com/jwalitptl/access-api/internal/repository/cache"
	"github.com/jwalitptl/access-api/internal/repository/postgres"
	"github.com/jwalitptl/access-api/internal/router"
	eventService "github.com/jwalitptl/access-api/internal/service/event"
	loginService "github.com/jwalitptl/access-api/internal/service/login"
	officeService "github.com/jwalitptl/access-api/internal/service/office"
	scopeService "github.com/jwalitptl/access-api/internal/service/scope"
	userService "github.com/jwalitptl/access-api/internal/service/user"
	"github.com/jwalitptl/access-api/internal/worker"
	"github.com/jwalitptl/access-api/pkg/logger"
	"github.com/jwalitptl/access-api/pkg/messaging"
	"github.com/jwalitptl/access-api/pkg/messaging/redis"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	})
	appLogger.SetGlobal()
	log := appLogger.ZL

	gin.SetMode(gin.ReleaseMode)
	m := metrics.NewMetrics("access_api", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, m)

	// Directory data changes rarely and is read on every scope and login check.
	store := cache.NewStore(cache.Config{
		TTL:             cfg.Cache.DirectoryTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, m)
	offices := cache.NewOfficeRepository(store, repos.Offices)
	officeGroups := cache.NewOfficeGroupRepository(store, repos.OfficeGroups)
	securityGroups := cache.NewSecurityGroupRepository(store, repos.SecurityGroups)

	// Events are best effort; the API keeps serving without Redis.
	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.URL != "" {
		b, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, events will be dropped")
		} else {
			broker = b
		}
	}
	defer broker.Close()

	invalidator := worker.NewDirectoryInvalidator(
		broker,
		store,
		worker.DirectoryInvalidatorConfig{Channel: cfg.Redis.DirectoryChannel},
		appLogger.WithFields(map[string]interface{}{"component": "directory_invalidator"}),
		m,
	)
	go func() {
		if err := invalidator.Start(ctx); err != nil {
			log.Error().Err(err).Msg("directory invalidator stopped")
		}
	}()

	defaultZone, err := time.LoadLocation(cfg.Access.DefaultTimeZone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid default time zone")
	}

	// Initialize services
	eventSvc := eventService.NewEventService(broker, cfg.Redis.Channel, m, log.With().Str("component", "events").Logger())
	officeSvc := officeService.NewService(repos.Organizations, offices, officeGroups)
	userSvc := userService.NewService(repos.Users, offices, securityGroups, eventSvc, m)
	scopeSvc := scopeService.NewService(userSvc, officeSvc, m)
	loginSvc := loginService.NewService(
		repos.Users,
		offices,
		eventSvc,
		m,
		log.With().Str("component", "login_gate").Logger(),
		defaultZone,
	)

	// Setup router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(middleware.AuthConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		}),
		health.NewHandler(db),
		userHandler.NewHandler(userSvc),
		organization.NewHandler(officeSvc),
		accessHandler.NewHandler(scopeSvc, loginSvc),
		m,
		router.RouterConfig{
			Timeout:   middleware.TimeoutConfig{Duration: time.Duration(cfg.Server.TimeoutSeconds) * time.Second},
			SizeLimit: middleware.DefaultSizeLimitConfig(),
			Security:  middleware.DefaultSecurityConfig(),
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.LoginRequestsPerSecond),
				Burst: cfg.RateLimit.LoginBurst,
			},
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
