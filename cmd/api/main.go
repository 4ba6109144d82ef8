package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/toolcrib/toolcrib-backend/api"
	"github.com/toolcrib/toolcrib-backend/api/routes"
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
	"github.com/toolcrib/toolcrib-backend/pkg/events"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
	"github.com/toolcrib/toolcrib-backend/pkg/metrics"
	"github.com/toolcrib/toolcrib-backend/pkg/migrate"
	"github.com/toolcrib/toolcrib-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.GCP.ProjectID != "" {
		pub, err := events.NewPubSubPublisher(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to create pubsub publisher", err)
			os.Exit(1)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub publisher", err)
			}
		}()
		asyncPub := events.NewAsyncPublisher(pub, logg)
		defer asyncPub.Wait()
		publisher = asyncPub
	} else {
		logg.Warn(ctx, "no GCP project configured, dashboard events disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycle := metrics.NewLifecycleMetrics(registry)

	toolRepo := tools.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())
	additionRepo := additions.NewRepository(dbClient.DB())
	maintenanceRepo := maintenance.NewRepository(dbClient.DB())

	toolService, err := tools.NewService(toolRepo, userRepo, publisher, logg, lifecycle)
	if err != nil {
		logg.Error(ctx, "failed to create tools service", err)
		os.Exit(1)
	}
	userService, err := users.NewService(userRepo, toolService, sessionManager, publisher, logg, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	requestService, err := requests.NewService(requestRepo, toolService, publisher, logg, lifecycle)
	if err != nil {
		logg.Error(ctx, "failed to create requests service", err)
		os.Exit(1)
	}
	additionService, err := additions.NewService(additionRepo, toolService, publisher, logg, lifecycle)
	if err != nil {
		logg.Error(ctx, "failed to create additions service", err)
		os.Exit(1)
	}
	maintenanceService, err := maintenance.NewService(maintenanceRepo, toolService, publisher, logg, lifecycle)
	if err != nil {
		logg.Error(ctx, "failed to create maintenance service", err)
		os.Exit(1)
	}
	notificationService, err := notifications.NewService(toolRepo, userRepo, requestRepo, additionRepo, maintenanceRepo, publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}
	reportService, err := reports.NewService(toolRepo, userRepo, requestRepo, additionRepo, maintenanceRepo, reports.NewDirArchiver(cfg.Backup), logg)
	if err != nil {
		logg.Error(ctx, "failed to create reports service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		RateLimit:      cfg.AuthRateLimit,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Registry:      registry,
		Sessions:      sessionManager,
		ActorSource:   userRepo,
		Auth:          authService,
		Tools:         toolService,
		Users:         userService,
		Requests:      requestService,
		Additions:     additionService,
		Maintenance:   maintenanceService,
		Notifications: notificationService,
		Reports:       reportService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(addr, router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		logg.Info(ctx, "shutting down api server")
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "error during shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
