package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/coachpulse/engage-api/internal/channel"
	"github.com/coachpulse/engage-api/internal/config"
	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	"github.com/coachpulse/engage-api/internal/repository/postgres"
	digestService "github.com/coachpulse/engage-api/internal/service/digest"
	dispatchService "github.com/coachpulse/engage-api/internal/service/dispatch"
	"github.com/coachpulse/engage-api/internal/worker"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/messaging/redis"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

// workerConfig is environment-driven: the worker runs headless in the same
// deployment as the API but shares nothing with its yaml config.
type workerConfig struct {
	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL     string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"50"`
	HealthPort   int           `envconfig:"HEALTH_PORT" default:"8081"`

	CapPolicy      string `envconfig:"CAP_POLICY" default:"defer"`
	ChannelRetries int    `envconfig:"CHANNEL_RETRIES" default:"1"`

	SMSGatewayURL  string `envconfig:"SMS_GATEWAY_URL"`
	SMSAPIKey      string `envconfig:"SMS_API_KEY"`
	PushGatewayURL string `envconfig:"PUSH_GATEWAY_URL"`
	PushAPIKey     string `envconfig:"PUSH_API_KEY"`

	DigestEnabled    bool   `envconfig:"DIGEST_ENABLED" default:"false"`
	DigestHour       int    `envconfig:"DIGEST_HOUR" default:"7"`
	DigestCoachID    string `envconfig:"DIGEST_COACH_ID"`
	DigestCoachEmail string `envconfig:"DIGEST_COACH_EMAIL"`
	SMTPHost         string `envconfig:"SMTP_HOST"`
	SMTPPort         int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser         string `envconfig:"SMTP_USER"`
	SMTPPass         string `envconfig:"SMTP_PASS"`
	DigestFrom       string `envconfig:"DIGEST_FROM"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("engage", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL, MaxRetries: 3, PoolSize: 10}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("engage", "worker")

	clientRepo := postgres.NewClientRepository(db)
	triggerRepo := postgres.NewTriggerRepository(db)
	recommendationRepo := postgres.NewRecommendationRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)

	senders := dispatchService.Senders{
		SMS: channel.NewSMSSender(channel.SMSConfig{
			GatewayURL: cfg.SMSGatewayURL,
			APIKey:     cfg.SMSAPIKey,
			Timeout:    10 * time.Second,
		}, appLogger),
		WebPush: channel.NewWebPushSender(channel.WebPushConfig{
			GatewayURL: cfg.PushGatewayURL,
			APIKey:     cfg.PushAPIKey,
			Timeout:    10 * time.Second,
		}, appLogger),
		InApp: channel.NewInAppSender(broker),
	}

	dispatchSvc := dispatchService.NewService(recommendationRepo, preferenceRepo, clientRepo, senders, dispatchService.Config{
		CapPolicy:      config.CapPolicy(cfg.CapPolicy),
		ChannelRetries: cfg.ChannelRetries,
	}, appLogger, m)

	scheduler := worker.NewScheduler(recommendationRepo, preferenceRepo, dispatchSvc, worker.SchedulerConfig{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
	}, appLogger, m)

	setupHealthCheck(cfg.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	if cfg.DigestEnabled {
		digestSvc := digestService.NewService(triggerRepo, recommendationRepo, digestService.Config{
			SMTPHost: cfg.SMTPHost,
			SMTPPort: cfg.SMTPPort,
			SMTPUser: cfg.SMTPUser,
			SMTPPass: cfg.SMTPPass,
			From:     cfg.DigestFrom,
		}, appLogger)
		go runDigestLoop(ctx, cfg, clientRepo, digestSvc, appLogger)
	}

	scheduler.Start(ctx)
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

// runDigestLoop mails the coach's daily summary once per day at the
// configured hour.
func runDigestLoop(ctx context.Context, cfg workerConfig, clients repository.ClientRepository, digest digestService.Service, appLogger *logger.Logger) {
	coachID, err := uuid.Parse(cfg.DigestCoachID)
	if err != nil {
		appLogger.Error(err, "invalid digest coach ID, digest disabled")
		return
	}

	for {
		next := nextDigestTime(time.Now(), cfg.DigestHour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		roster, err := clients.List(ctx, &model.ClientFilters{CoachID: coachID})
		if err != nil {
			appLogger.Error(err, "failed to load roster for digest")
			continue
		}
		if err := digest.SendDigest(ctx, cfg.DigestCoachID, cfg.DigestCoachEmail, roster); err != nil {
			appLogger.Error(err, "failed to send digest")
		}
	}
}

func nextDigestTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
