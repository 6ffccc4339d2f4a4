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

	"github.com/harunoki/clinic-api/internal/config"
	"github.com/harunoki/clinic-api/internal/handler"
	authHandler "github.com/harunoki/clinic-api/internal/handler/auth"
	patientHandler "github.com/harunoki/clinic-api/internal/handler/patient"
	reservationHandler "github.com/harunoki/clinic-api/internal/handler/reservation"
	timeslotHandler "github.com/harunoki/clinic-api/internal/handler/timeslot"
	"github.com/harunoki/clinic-api/internal/middleware"
	"github.com/harunoki/clinic-api/internal/repository/postgres"
	"github.com/harunoki/clinic-api/internal/router"
	"github.com/harunoki/clinic-api/internal/schedule"
	authService "github.com/harunoki/clinic-api/internal/service/auth"
	availabilityService "github.com/harunoki/clinic-api/internal/service/availability"
	notificationService "github.com/harunoki/clinic-api/internal/service/notification"
	patientService "github.com/harunoki/clinic-api/internal/service/patient"
	reservationService "github.com/harunoki/clinic-api/internal/service/reservation"
	timeslotService "github.com/harunoki/clinic-api/internal/service/timeslot"
	jwtauth "github.com/harunoki/clinic-api/pkg/auth"
	"github.com/harunoki/clinic-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	locale, err := schedule.NewLocale(cfg.Clinic.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clinic timezone")
	}

	hours, err := cfg.Clinic.WeekSchedule()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clinic hours")
	}

	// Repositories
	slotRepo := postgres.NewTimeSlotRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Services
	tokens := jwtauth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry())
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(patientRepo, tokens, hasher)
	timeslotSvc := timeslotService.NewService(slotRepo, locale, hours)
	notifSvc := notificationService.NewService(notificationRepo, cfg.Notifier.Channel, locale)
	reservationSvc := reservationService.NewService(reservationRepo, slotRepo, patientRepo, notifSvc, locale)
	availabilitySvc := availabilityService.NewService(slotRepo, locale)
	patientSvc := patientService.NewService(patientRepo)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	h := handler.New(db)
	authH := authHandler.NewHandler(authSvc)
	timeslotH := timeslotHandler.NewHandler(timeslotSvc)
	reservationH := reservationHandler.NewHandler(reservationSvc, availabilitySvc)
	patientH := patientHandler.NewHandler(patientSvc)

	r := router.NewRouter(
		authMiddleware,
		authH,
		timeslotH,
		reservationH,
		patientH,
		h,
		router.Config{
			RateLimit:     rate.Limit(100),
			RateBurst:     200,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "clinic_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
