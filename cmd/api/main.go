package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/coachpulse/engage-api/internal/channel"
	"github.com/coachpulse/engage-api/internal/config"
	"github.com/coachpulse/engage-api/internal/handler"
	clientHandler "github.com/coachpulse/engage-api/internal/handler/client"
	preferenceHandler "github.com/coachpulse/engage-api/internal/handler/preference"
	recommendationHandler "github.com/coachpulse/engage-api/internal/handler/recommendation"
	triggerHandler "github.com/coachpulse/engage-api/internal/handler/trigger"
	workspaceHandler "github.com/coachpulse/engage-api/internal/handler/workspace"
	"github.com/coachpulse/engage-api/internal/middleware"
	"github.com/coachpulse/engage-api/internal/repository/postgres"
	"github.com/coachpulse/engage-api/internal/router"
	clientService "github.com/coachpulse/engage-api/internal/service/client"
	detectorService "github.com/coachpulse/engage-api/internal/service/detector"
	dispatchService "github.com/coachpulse/engage-api/internal/service/dispatch"
	engagementService "github.com/coachpulse/engage-api/internal/service/engagement"
	preferenceService "github.com/coachpulse/engage-api/internal/service/preference"
	recommendationService "github.com/coachpulse/engage-api/internal/service/recommendation"
	triggerService "github.com/coachpulse/engage-api/internal/service/trigger"
	workspaceService "github.com/coachpulse/engage-api/internal/service/workspace"
	"github.com/coachpulse/engage-api/pkg/auth"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/messaging/redis"
	"github.com/coachpulse/engage-api/pkg/metrics"
	"github.com/coachpulse/engage-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("engage", "api")

	// Repositories
	clientRepo := postgres.NewClientRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	triggerRepo := postgres.NewTriggerRepository(db)
	recommendationRepo := postgres.NewRecommendationRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)

	// Delivery channels
	senders := dispatchService.Senders{
		SMS: channel.NewSMSSender(channel.SMSConfig{
			GatewayURL: cfg.Channels.SMSGatewayURL,
			APIKey:     cfg.Channels.SMSAPIKey,
			Timeout:    10 * time.Second,
		}, appLogger),
		WebPush: channel.NewWebPushSender(channel.WebPushConfig{
			GatewayURL: cfg.Channels.PushGatewayURL,
			APIKey:     cfg.Channels.PushAPIKey,
			Timeout:    10 * time.Second,
		}, appLogger),
		InApp: channel.NewInAppSender(broker),
	}

	// Services
	detectorSvc := detectorService.NewService(triggerRepo, activityRepo, clientRepo, detectorService.Config{
		InactivityThreshold: cfg.Detector.InactivityThreshold,
		DedupWindow:         cfg.Detector.DedupWindow,
		DeviationRatio:      cfg.Detector.DeviationRatio,
		DropRatio:           cfg.Detector.DropRatio,
		Period:              cfg.Detector.Period,
		Baseline:            cfg.Detector.Baseline,
	}, appLogger, m)
	recommendationSvc := recommendationService.NewService(recommendationRepo)
	engagementSvc := engagementService.NewService(detectorSvc, recommendationSvc, appLogger)
	dispatchSvc := dispatchService.NewService(recommendationRepo, preferenceRepo, clientRepo, senders, dispatchService.Config{
		CapPolicy:      cfg.Dispatch.CapPolicy,
		ChannelRetries: cfg.Dispatch.ChannelRetries,
	}, appLogger, m)
	triggerSvc := triggerService.NewService(triggerRepo)
	preferenceSvc := preferenceService.NewService(preferenceRepo)
	clientSvc := clientService.NewService(clientRepo, activityRepo)
	workspaceSvc := workspaceService.NewService(clientRepo, activityRepo, triggerRepo, recommendationRepo, engagementSvc, recommendationSvc, appLogger, m)

	// Middleware
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour, cfg.JWT.ServiceKeyHash)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	// Handlers
	h := handler.NewHandler()
	r := router.NewRouter(authMiddleware, h, router.Config{
		RateLimit:     rate.Limit(50),
		RateBurst:     100,
		MetricsPrefix: "engage_api",
	},
		clientHandler.NewHandler(clientSvc),
		triggerHandler.NewHandler(triggerSvc, engagementSvc),
		recommendationHandler.NewHandler(recommendationSvc, dispatchSvc),
		preferenceHandler.NewHandler(preferenceSvc),
		workspaceHandler.NewHandler(workspaceSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
