package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/models"
	"github.com/noah-isme/programme-booking-api/pkg/config"
	"github.com/noah-isme/programme-booking-api/pkg/jobs"
	"github.com/noah-isme/programme-booking-api/pkg/mailer"
)

// Notification kinds, also used as metric labels.
const (
	NotificationRegistrationReceived = "registration_received"
	NotificationConfirmed            = "confirmed"
	NotificationCancelled            = "cancelled"
	NotificationAdminAlert           = "admin_alert"
)

type notificationPayload struct {
	Kind         string
	Registration models.RegistrationDetail
	Choices      []models.ChoiceDetail
}

// NotificationService sends booking emails through a background worker queue.
// Delivery is strictly fire-and-forget: failures are logged and counted, but
// never surface to the request that triggered them.
type NotificationService struct {
	queue           *jobs.Queue
	mailer          mailer.Mailer
	metrics         *MetricsService
	logger          *zap.Logger
	adminRecipients []string
	location        *time.Location
	sessionDuration time.Duration
}

// NewNotificationService constructs the service and its worker queue. Call
// Start before enqueueing and Stop on shutdown.
func NewNotificationService(m mailer.Mailer, metrics *MetricsService, cfg config.Config, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Booking.DisplayTimezone)
	if err != nil {
		logger.Sugar().Warnw("unknown display timezone, falling back to UTC", "timezone", cfg.Booking.DisplayTimezone)
		location = time.UTC
	}

	s := &NotificationService{
		mailer:          m,
		metrics:         metrics,
		logger:          logger,
		adminRecipients: cfg.Mail.AdminRecipients,
		location:        location,
		sessionDuration: cfg.Booking.SessionDuration,
	}

	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: cfg.Mail.WorkerRetries,
		Logger:     logger,
	})

	return s
}

// Start launches the notification workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyRegistrationReceived queues the acknowledgement mail for a new
// registration plus an alert to the programme admins. Returns true when the
// job was handed to the dispatcher.
func (s *NotificationService) NotifyRegistrationReceived(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool {
	return s.enqueue(notificationPayload{
		Kind:         NotificationRegistrationReceived,
		Registration: *registration,
		Choices:      choices,
	})
}

// NotifyStatusChanged queues the participant mail for a confirmed or
// cancelled registration. Returns true when the job was handed to the
// dispatcher; transitions to pending send nothing.
func (s *NotificationService) NotifyStatusChanged(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool {
	var kind string
	switch registration.Status {
	case models.RegistrationStatusConfirmed:
		kind = NotificationConfirmed
	case models.RegistrationStatusCancelled:
		kind = NotificationCancelled
	default:
		return false
	}
	return s.enqueue(notificationPayload{
		Kind:         kind,
		Registration: *registration,
		Choices:      choices,
	})
}

func (s *NotificationService) enqueue(payload notificationPayload) bool {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    payload.Kind,
		Payload: payload,
	})
	if err != nil {
		s.logger.Sugar().Errorw("failed to enqueue notification",
			"kind", payload.Kind, "registration_id", payload.Registration.ID, "error", err)
		s.metrics.RecordNotification(payload.Kind, false)
		return false
	}
	return true
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationPayload)
	if !ok {
		s.logger.Sugar().Errorw("dropping notification with unexpected payload", "job_id", job.ID, "type", job.Type)
		return nil
	}

	var err error
	switch payload.Kind {
	case NotificationRegistrationReceived:
		err = s.sendReceived(ctx, payload)
	case NotificationConfirmed:
		err = s.sendConfirmed(ctx, payload)
	case NotificationCancelled:
		err = s.sendCancelled(ctx, payload)
	default:
		s.logger.Sugar().Warnw("unknown notification kind", "kind", payload.Kind)
		return nil
	}

	s.metrics.RecordNotification(payload.Kind, err == nil)
	if err != nil {
		return fmt.Errorf("send %s notification: %w", payload.Kind, err)
	}
	return nil
}

func (s *NotificationService) sendReceived(ctx context.Context, payload notificationPayload) error {
	registration := payload.Registration

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s %s,\n\n", registration.FirstName, registration.LastName)
	fmt.Fprintf(&body, "We received your registration for %s. It is pending review; you will hear from us once it is confirmed.\n\n", registration.EditionTitle)
	body.WriteString("Your chosen dates:\n")
	for _, choice := range payload.Choices {
		fmt.Fprintf(&body, "  %s\n", s.formatChoice(choice))
	}

	err := s.mailer.Send(ctx, mailer.Message{
		To:      []string{registration.Email},
		Subject: fmt.Sprintf("Registration received: %s", registration.EditionTitle),
		Body:    body.String(),
	})
	if err != nil {
		return err
	}

	if len(s.adminRecipients) > 0 {
		adminBody := fmt.Sprintf("New registration for %s from %s %s (%s), status pending.\nRegistration id: %s\n",
			registration.EditionTitle, registration.FirstName, registration.LastName, registration.Email, registration.ID)
		if err := s.mailer.Send(ctx, mailer.Message{
			To:      s.adminRecipients,
			Subject: fmt.Sprintf("New registration: %s", registration.EditionTitle),
			Body:    adminBody,
		}); err != nil {
			// Admin copy is best effort; the participant mail already went out.
			s.logger.Sugar().Warnw("failed to send admin alert", "registration_id", registration.ID, "error", err)
			s.metrics.RecordNotification(NotificationAdminAlert, false)
		} else {
			s.metrics.RecordNotification(NotificationAdminAlert, true)
		}
	}

	return nil
}

func (s *NotificationService) sendConfirmed(ctx context.Context, payload notificationPayload) error {
	registration := payload.Registration

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s %s,\n\n", registration.FirstName, registration.LastName)
	fmt.Fprintf(&body, "Your registration for %s is confirmed. We look forward to seeing you on these dates:\n\n", registration.EditionTitle)
	for _, choice := range payload.Choices {
		fmt.Fprintf(&body, "  %s\n", s.formatChoice(choice))
	}

	return s.mailer.Send(ctx, mailer.Message{
		To:      []string{registration.Email},
		Subject: fmt.Sprintf("Registration confirmed: %s", registration.EditionTitle),
		Body:    body.String(),
	})
}

func (s *NotificationService) sendCancelled(ctx context.Context, payload notificationPayload) error {
	registration := payload.Registration

	body := fmt.Sprintf("Dear %s %s,\n\nYour registration for %s has been cancelled. You are welcome to register again for any dates that still have places available. If this was unexpected, please contact us.\n",
		registration.FirstName, registration.LastName, registration.EditionTitle)

	return s.mailer.Send(ctx, mailer.Message{
		To:      []string{registration.Email},
		Subject: fmt.Sprintf("Registration cancelled: %s", registration.EditionTitle),
		Body:    body,
	})
}

// formatChoice renders one chosen date as a display line, with times in the
// configured timezone. The store keeps only the start instant; the end time is
// derived from the configured session duration.
func (s *NotificationService) formatChoice(choice models.ChoiceDetail) string {
	start := choice.StartsAt.In(s.location)
	end := start.Add(s.sessionDuration)
	return fmt.Sprintf("Session %d: %s, %s to %s (%s), %s",
		choice.SessionNumber,
		start.Format("Mon 02 Jan 2006"),
		start.Format("15:04"),
		end.Format("15:04"),
		s.location.String(),
		choice.Location,
	)
}
