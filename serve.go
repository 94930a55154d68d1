package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medibook-server/internal/events"
	"medibook-server/internal/mailer"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/realtime"
	"medibook-server/internal/repository"
	"medibook-server/internal/routes"
	"medibook-server/internal/scheduler"
	"medibook-server/internal/services"
	"medibook-server/internal/utils"
)

func runServer() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.IsDevelopment()})
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	if err := models.Migrate(db); err != nil {
		log.Error().Err(err).Msg("failed to migrate database")
		return err
	}
	log.Info().Msg("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Real-time delivery: in-process hub, fanned out through Redis when configured.
	hub := realtime.NewHub()
	var rt realtime.Publisher = hub
	if cfg.Redis.URL != "" {
		redisPub, err := realtime.NewRedisPublisher(cfg.Redis.URL, cfg.Redis.Channel, hub, log)
		if err != nil {
			return err
		}
		defer redisPub.Close()
		if err := redisPub.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis not reachable, real-time delivery may be delayed")
		}
		go func() {
			if err := redisPub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("redis subscriber stopped")
			}
		}()
		rt = redisPub
	}

	eventPub := events.New(cfg.Kafka)
	defer eventPub.Close()

	appointments := repository.NewAppointmentRepository(db)
	queue := notify.NewQueue(
		repository.NewNotificationRepository(db),
		rt,
		eventPub,
		mailer.New(cfg.Mailer, log),
		log,
		cfg.Notify.QueueSize,
		cfg.Notify.Workers,
	)
	defer queue.Close()

	svc := services.NewAppointmentService(
		appointments,
		repository.NewUserRepository(db),
		queue,
		log.With().Str("component", "appointments").Logger(),
		services.WithAppURL(cfg.AppURL),
	)

	reminders, err := scheduler.Start(cfg.ReminderCron, scheduler.NewReminders(appointments, queue, log))
	if err != nil {
		return err
	}
	defer func() { <-reminders.Stop().Done() }()

	wsHandler := realtime.NewHandler(hub, func(token string) (string, error) {
		claims, err := utils.ValidateToken(token, cfg.JWTSecret)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}, cfg.Origin, log)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:           db,
		Config:       cfg,
		Appointments: svc,
		Realtime:     rt,
		Dispatcher:   queue,
		WebSocket:    wsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
