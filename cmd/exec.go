package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/redis/go-redis/v9"

	"printqueue/config"
	"printqueue/internal/display"
	"printqueue/internal/events"
	"printqueue/internal/handlers"
	"printqueue/internal/logger"
	"printqueue/internal/services"
	"printqueue/internal/store"
	_ "printqueue/migrations"
	"printqueue/models"
	"printqueue/monitoring"
	"printqueue/security"
	"printqueue/utils"
)

func Start() error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	l := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Mode:     cfg.LogMode,
		Encoding: cfg.LogEncoding,
	})
	defer l.Sync()

	app := pocketbase.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Accounts always live in the PocketBase auth collection.
	accounts := store.NewPocketBase(app)
	var st store.Store = accounts
	if cfg.StoreDriver == config.StoreDriverMemory {
		l.Warnf(ctx, "Using the in-memory queue store, data is lost on restart")
		st = store.NewMemory()
	}

	// Initialize Redis
	var (
		redisClient *redis.Client
		numberer    services.Numberer
		locker      services.DeskLocker
		limiter     security.Limiter
	)
	if cfg.RedisURL != "" {
		redisClient, err = utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		numberer = services.NewRedisNumberer(redisClient, st, "")
		locker = services.NewRedisLocker(redisClient, cfg.DeskLockTTL, cfg.DeskLockWait)
		if cfg.RateLimitPerMinute > 0 {
			limiter = security.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute)
		}
	} else if cfg.RateLimitPerMinute > 0 {
		limiter = security.NewLocalLimiter(cfg.RateLimitPerMinute)
	}

	// Initialize services
	queueService := services.NewQueueService(st, numberer, locker, services.QueueConfig{
		ClaimAttempts:   cfg.ClaimAttempts,
		ServiceTimeMode: services.ServiceTimeMode(cfg.ServiceTimeMode),
		Location:        loc,
	}, l.With("component", "queue"))
	historyService := services.NewHistoryService(st, loc, l.With("component", "history"))
	analyticsService := services.NewAnalyticsService(st, loc)
	userService := services.NewUserService(accounts, l.With("component", "users"))
	defer queueService.Stop()

	monitor := monitoring.NewMonitor()
	queueService.AddSink(monitor)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(queueService, monitor, cfg.DisplayWaiting)
	deskHandler := handlers.NewDeskHandler(queueService, monitor)
	adminHandler := handlers.NewAdminHandler(historyService, analyticsService, l)
	userHandler := handlers.NewUserHandler(userService)
	rateLimiter := security.NewRateLimiter(limiter, l)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown(ctx, cancel, l)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if cfg.KafkaEnabled {
			prod, err := events.NewSyncProducer(events.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				RetryMax:     cfg.KafkaRetryMax,
				RequiredAcks: cfg.KafkaRequiredAcks,
			})
			if err != nil {
				return err
			}
			publisher := events.NewPublisher(prod, cfg.KafkaTopicPrefix, 0, l.With("component", "kafka"))
			queueService.AddSink(publisher)
			go func() {
				publisher.Run(ctx)
				if err := publisher.Close(); err != nil {
					l.Errorf(context.Background(), "kafka producer close: %v", err)
				}
			}()
		}

		if err := queueService.Start(ctx); err != nil {
			return err
		}
		queueService.Subscribe(monitor.Observe)

		if cfg.PubNubEnabled() {
			displayCfg := display.Config{
				PublishKey:   cfg.PubNubPublishKey,
				SubscribeKey: cfg.PubNubSubscribeKey,
				SecretKey:    cfg.PubNubSecretKey,
				UserID:       cfg.PubNubUserID,
				Channel:      cfg.PubNubChannel,
				WaitingLimit: cfg.DisplayWaiting,
			}
			publisher := display.NewPublisher(display.NewPubNub(displayCfg), displayCfg, l.With("component", "display"))
			go publisher.Run(ctx)
			queueService.Subscribe(publisher.Observe)
		}

		requireAuth := apis.RequireAuth("users")
		requireStaff := handlers.RequireRole(models.RoleDesk, models.RoleAdmin)

		api := se.Router.Group("/api/v1")

		// Queue endpoints
		api.POST("/queue/entries", queueHandler.Enqueue).BindFunc(rateLimiter.EnqueueRateLimit())
		api.GET("/queue/display", queueHandler.GetDisplay)
		api.GET("/queue/stats", queueHandler.GetStats)
		api.GET("/queue/waiting", queueHandler.GetWaiting).Bind(requireAuth).BindFunc(requireStaff)
		api.POST("/queue/reset", deskHandler.ResetQueue).Bind(requireAuth).BindFunc(requireStaff)

		// Desk endpoints
		api.POST("/desks/{desk}/next", deskHandler.CallNext).Bind(requireAuth).BindFunc(requireStaff)
		api.POST("/desks/{desk}/complete", deskHandler.Complete).Bind(requireAuth).BindFunc(requireStaff)

		// Admin queue management
		api.GET("/queue/entries", queueHandler.ListEntries).Bind(requireAuth).BindFunc(handlers.RequireRole(models.RoleAdmin))
		api.DELETE("/queue/entries/{id}", queueHandler.DeleteEntry).Bind(requireAuth).BindFunc(handlers.RequireRole(models.RoleAdmin))

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Bind(requireAuth).BindFunc(handlers.RequireRole(models.RoleAdmin))
		admin.GET("/analytics", adminHandler.GetAnalytics)
		admin.GET("/history", adminHandler.GetHistory)
		admin.PATCH("/history/{id}", adminHandler.UpdateHistory)
		admin.POST("/history/delete", adminHandler.DeleteHistory)
		admin.GET("/users", userHandler.ListUsers)
		admin.POST("/users", userHandler.CreateUser)
		admin.PATCH("/users/{id}/active", userHandler.SetActive)
		admin.DELETE("/users/{id}", userHandler.DeleteUser)

		api.POST("/users/me/first-login", userHandler.CompleteFirstLogin).Bind(requireAuth)

		// Health check
		se.Router.GET("/health", healthCheck(redisClient))

		if cfg.EnableMetrics {
			go serveMetrics(ctx, cfg.MetricsPort, l)
		}

		l.Infof(ctx, "Server routes registered")
		return se.Next()
	})

	// Start server
	return app.Start()
}

func healthCheck(redisClient *redis.Client) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if redisClient != nil {
			if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func serveMetrics(ctx context.Context, port string, l logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.Infof(ctx, "Metrics listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Errorf(ctx, "metrics server: %v", err)
	}
}

// handleShutdown stops background work on SIGINT or SIGTERM. PocketBase
// shuts the HTTP server down on the same signals.
func handleShutdown(ctx context.Context, cancel context.CancelFunc, l logger.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		l.Infof(ctx, "Shutdown signal received, cleaning up...")
		cancel()
	case <-ctx.Done():
	}
}
