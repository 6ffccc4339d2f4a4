package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harunoki/clinic-api/internal/email"
	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
	"github.com/harunoki/clinic-api/pkg/logger"
	"github.com/harunoki/clinic-api/pkg/messaging"
	"github.com/harunoki/clinic-api/pkg/metrics"
)

// pushChannel is the redis pub/sub channel push notifications go out on.
const pushChannel = "clinic.notifications"

type NotifierConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Notifier drains the notification outbox and delivers each row over
// its channel. Delivery is at-least-once; rows that keep failing are
// parked as failed by the repository after the attempt limit.
type Notifier struct {
	repo    repository.NotificationRepository
	broker  messaging.Broker
	mailer  email.Service
	config  NotifierConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotifier(
	repo repository.NotificationRepository,
	broker messaging.Broker,
	mailer email.Service,
	config NotifierConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Notifier {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Notifier{
		repo:    repo,
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (n *Notifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	n.logger.Info("Starting notification dispatcher")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Shutting down notification dispatcher")
			return
		case <-ticker.C:
			if err := n.processBatch(ctx); err != nil {
				n.logger.Error(err, "Failed to process notifications")
			}
		}
	}
}

func (n *Notifier) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(n.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	pending, err := n.repo.ListPending(ctx, n.config.BatchSize)
	if err != nil {
		n.metrics.DatabaseOperations.WithLabelValues("list_pending", "error").Inc()
		return fmt.Errorf("failed to list pending notifications: %w", err)
	}
	n.metrics.DatabaseOperations.WithLabelValues("list_pending", "success").Inc()
	n.metrics.QueueSize.Set(float64(len(pending)))

	for _, notification := range pending {
		if err := n.deliver(ctx, notification); err != nil {
			n.logger.Error(err, "Failed to deliver notification",
				"notification_id", notification.ID.String(),
				"channel", notification.Channel)
			continue
		}
	}

	return nil
}

func (n *Notifier) deliver(ctx context.Context, notification *model.Notification) error {
	attempt := 0
	err := retry(n.config.RetryAttempts, n.config.RetryDelay, func() error {
		if attempt > 0 {
			n.metrics.DeliveryRetries.WithLabelValues(notification.Channel).Inc()
		}
		attempt++
		return n.send(ctx, notification)
	})

	if err != nil {
		n.metrics.NotificationsFailed.Inc()
		if markErr := n.repo.MarkFailed(ctx, notification.ID); markErr != nil {
			n.logger.Error(markErr, "Failed to mark notification failed")
		}
		return err
	}

	n.metrics.NotificationsSent.Inc()
	if err := n.repo.MarkSent(ctx, notification.ID); err != nil {
		n.logger.Error(err, "Failed to mark notification sent",
			"notification_id", notification.ID.String())
		return err
	}

	return nil
}

func (n *Notifier) send(ctx context.Context, notification *model.Notification) error {
	switch notification.Channel {
	case model.NotificationChannelPush:
		return n.broker.Publish(ctx, pushChannel, messaging.Message{
			Type:    "notification",
			Payload: notification,
		})
	case model.NotificationChannelEmail:
		return n.mailer.Send(ctx, notification.Recipient, notification.Subject, notification.Message)
	default:
		return fmt.Errorf("unknown notification channel %q", notification.Channel)
	}
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
