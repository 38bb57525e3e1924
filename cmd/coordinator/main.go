package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"huddle/internal/core/services"
	httphandlers "huddle/internal/handlers/http"
	"huddle/internal/infrastructure/middleware"
	"huddle/internal/infrastructure/monitoring"
	"huddle/internal/infrastructure/realtime"
	"huddle/internal/infrastructure/repositories"
	"huddle/pkg/config"
	"huddle/pkg/logger"
	"huddle/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/huddle/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "huddle-coordinator",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	repoFactory, err := repositories.NewFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	registry := repoFactory.CreatePresenceRegistry()
	streamRepo := repoFactory.CreateLivestreamRepository()
	userRepo := repoFactory.CreateUserRepository()
	messageRepo := repoFactory.CreateMessageRepository()

	collector := monitoring.NewPrometheusCollector()

	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	mediaTokens := services.NewMediaTokenService(cfg.Media.TokenSecret, cfg.Media.TokenTTL)

	gateway := realtime.NewGateway(cfg, registry, authService, collector, log)

	typingService := services.NewTypingService(registry, gateway, cfg.Rooms.TypingTTL, log)
	livestreamService := services.NewLivestreamService(
		registry,
		streamRepo,
		mediaTokens,
		gateway,
		collector,
		cfg.Livestream.ConnectingTimeout,
		log,
	)
	messageService := services.NewMessageService(registry, messageRepo, gateway, collector, log)
	roomService := services.NewRoomService(registry, userRepo, gateway, typingService, livestreamService, collector, log)

	gateway.Attach(roomService, messageService, typingService, livestreamService)

	// Background loops: typing-indicator sweep and the stale-stream reaper.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go typingService.Run(bgCtx, cfg.Rooms.TypingSweepInterval)
	go livestreamService.RunReaper(bgCtx, cfg.Livestream.ReaperInterval, cfg.Livestream.HeartbeatTimeout)

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("repositories", repoFactory.HealthCheck, 2*time.Second)

	// REST surface
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	authHandler := httphandlers.NewAuthHandler(authService, userRepo)
	authHandler.SetupRoutes(router)

	streamHandler := httphandlers.NewLivestreamHandler(streamRepo, mediaTokens)
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuthMiddleware(authService))
	authed := router.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(authService))
	streamHandler.SetupRoutes(api, authed)

	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": status.Status,
			"checks": status.Checks,
			"uptime": time.Since(startTime).String(),
		})
	})

	// Metrics live on their own listener so scrapes never contend with the
	// public REST surface.
	var metricsServer *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler: metricsMux,
		}
	}

	restServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Realtime surface
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", gateway.HandleWebSocket)
	wsMux.HandleFunc("/health", gateway.HealthCheck)

	realtimeServer := &http.Server{
		Addr:        cfg.Realtime.Address,
		Handler:     wsMux,
		ReadTimeout: 0, // long-lived connections manage their own deadlines
	}

	serverErr := make(chan error, 3)
	go func() {
		log.Infof("Starting coordinator REST server on %s", cfg.Server.Address)
		if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		log.Infof("Starting coordinator realtime server on %s", cfg.Realtime.Address)
		if err := realtimeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	if metricsServer != nil {
		go func() {
			log.Infof("Starting Prometheus metrics server on %s", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down coordinator...")
	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := realtimeServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during realtime server shutdown", "error", err)
		realtimeServer.Close()
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during REST server shutdown", "error", err)
		restServer.Close()
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error during metrics server shutdown", "error", err)
			metricsServer.Close()
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("Coordinator stopped")
}
