package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/harunoki/clinic-api/internal/config"
	"github.com/harunoki/clinic-api/internal/email"
	"github.com/harunoki/clinic-api/internal/repository/postgres"
	"github.com/harunoki/clinic-api/pkg/logger"
	"github.com/harunoki/clinic-api/pkg/messaging/redis"
	"github.com/harunoki/clinic-api/pkg/metrics"
	"github.com/harunoki/clinic-api/pkg/worker"
)

// workerEnv tunes the dispatcher loop. These knobs are per-instance,
// so they come from the environment rather than the shared config file.
type workerEnv struct {
	BatchSize     int           `envconfig:"WORKER_BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"WORKER_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"WORKER_RETRY_DELAY" default:"2s"`
	HealthPort    int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
}

func setupHealthCheck(port int, lg *logger.Logger) {
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
			lg.Fatal(err, "Health check server failed")
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("Failed to read worker environment")
	}

	lg := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		lg.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &log.Logger)
	if err != nil {
		lg.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	notificationRepo := postgres.NewNotificationRepository(db)

	notifier := worker.NewNotifier(
		notificationRepo,
		broker,
		mailer,
		worker.NotifierConfig{
			BatchSize:     env.BatchSize,
			PollInterval:  env.PollInterval,
			RetryAttempts: env.RetryAttempts,
			RetryDelay:    env.RetryDelay,
		},
		lg,
		metrics.NewMetrics("clinic", "notifier"),
	)

	setupHealthCheck(env.HealthPort, lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("Shutting down...")
		cancel()
	}()

	notifier.Start(ctx)
}
