package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/config"
	"vltd-dashboard/internal/infrastructure/database/postgres"
	"vltd-dashboard/internal/inflight"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/observability/metrics"
	"vltd-dashboard/internal/routes"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/usecase/assignment"
	"vltd-dashboard/internal/usecase/onboarding"
	"vltd-dashboard/internal/usecase/tracking"
	"vltd-dashboard/pkg/mqtt"
)

const (
	statusTopic        = "vltd/dashboard/status"
	sessionSweepPeriod = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	metrics.MustRegister()

	logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to open document cache database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	trackingOpts := tracking.Options{Interval: cfg.Tracking.PollInterval, QoS: cfg.MQTT.QoS}
	var broker *mqtt.Client
	if cfg.MQTT.Broker != "" {
		broker = mqtt.NewClient(mqtt.DefaultConfig(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password))
		if err := broker.Connect(); err != nil {
			logger.Warn("MQTT unavailable, live locations will not be published", zap.Error(err))
			broker = nil
		} else {
			trackingOpts.Publisher = broker
			announce(broker, cfg.MQTT.QoS, "online")
			defer func() {
				announce(broker, cfg.MQTT.QoS, "offline")
				broker.Disconnect()
			}()
		}
	}

	guard := inflight.New()
	client := backend.New(backend.Options{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout,
		PageSize: cfg.Backend.PageSize,
		MaxPages: cfg.Backend.MaxPages,
		Logger:   logger.Named("backend"),
	}, nil)

	sessionTTL := time.Duration(cfg.Session.ExpiryHours) * time.Hour
	sessions := session.NewRegistry(session.Dependencies{
		Backend:         client,
		Guard:           guard,
		ResetDelay:      cfg.Activation.ResetDelay,
		DefaultPassword: cfg.Activation.DefaultPassword,
		Tracking:        trackingOpts,
	}, sessionTTL)
	defer sessions.Close()

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	go sessions.Run(appCtx, sessionSweepPeriod)

	deps := routes.Dependencies{
		Config:      cfg,
		DB:          db,
		Sessions:    sessions,
		Manager:     session.NewManager(cfg.Session.Secret, sessionTTL),
		Assignments: assignment.NewService(guard),
		Onboarding:  onboarding.NewService(postgres.NewDocumentRepository(db), guard, cfg.Upload.MaxBytes),
	}
	if broker != nil {
		deps.Broker = broker
	}
	router := routes.SetupRoutes(deps)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// No write timeout: the live-map stream stays open.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return appCtx },
	}
	// Cancelling the base context ends open location streams.
	server.RegisterOnShutdown(stopApp)

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func announce(broker *mqtt.Client, qos byte, state string) {
	payload := map[string]interface{}{"status": state, "at": time.Now().UTC()}
	if err := broker.PublishJSON(statusTopic, qos, true, payload); err != nil {
		logger.Warn("Failed to publish dashboard status", zap.String("status", state), zap.Error(err))
	}
}
