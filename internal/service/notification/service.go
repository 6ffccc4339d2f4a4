package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/internal/schedule"
)

// Service queues outbound messages. Delivery is the worker's problem;
// the booking paths only enqueue, and treat enqueue failure as a
// logged non-event so a notification outage can never fail a booking.
type Service interface {
	NotifyBooking(ctx context.Context, patient *model.Patient, detail *model.ReservationDetail)
	NotifyCancellation(ctx context.Context, patient *model.Patient, detail *model.ReservationDetail)
}

type service struct {
	repo    repository.NotificationRepository
	channel string
	locale  *schedule.Locale
}

func NewService(repo repository.NotificationRepository, channel string, locale *schedule.Locale) Service {
	if channel == "" {
		channel = model.NotificationChannelPush
	}
	return &service{repo: repo, channel: channel, locale: locale}
}

func (s *service) NotifyBooking(ctx context.Context, patient *model.Patient, detail *model.ReservationDetail) {
	visitType := "follow-up"
	if detail.IsFirstVisit {
		visitType = "first visit"
	}
	message := fmt.Sprintf(
		"Reservation confirmed\n\nTime: %s\nVisit type: %s\nPatient: %s %s",
		s.localTime(detail.SlotStartTime),
		visitType,
		patient.LastName, patient.FirstName,
	)
	s.enqueue(ctx, patient, "Reservation confirmed", message)
}

func (s *service) NotifyCancellation(ctx context.Context, patient *model.Patient, detail *model.ReservationDetail) {
	message := fmt.Sprintf(
		"Reservation cancelled\n\nTime: %s\nPatient: %s %s",
		s.localTime(detail.SlotStartTime),
		patient.LastName, patient.FirstName,
	)
	s.enqueue(ctx, patient, "Reservation cancelled", message)
}

// localTime renders a stored UTC instant as the clinic-local wall time
// patients see on the calendar.
func (s *service) localTime(t time.Time) string {
	return t.In(s.locale.Location()).Format("2006-01-02 15:04")
}

func (s *service) enqueue(ctx context.Context, patient *model.Patient, subject, message string) {
	n := &model.Notification{
		Channel:   s.channel,
		Recipient: patient.ProviderUserID,
		Subject:   subject,
		Message:   message,
	}
	if s.channel == model.NotificationChannelEmail {
		n.Recipient = patient.Email
	}

	if err := s.repo.Create(ctx, n); err != nil {
		log.Error().Err(err).
			Str("subject", subject).
			Str("patient_id", patient.ID.String()).
			Msg("failed to enqueue notification")
	}
}
