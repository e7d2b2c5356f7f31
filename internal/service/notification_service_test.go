package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/models"
	"github.com/noah-isme/programme-booking-api/pkg/config"
	"github.com/noah-isme/programme-booking-api/pkg/jobs"
	"github.com/noah-isme/programme-booking-api/pkg/mailer"
)

type captureMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.messages...)
}

func notificationConfig() config.Config {
	return config.Config{
		Booking: config.BookingConfig{
			DisplayTimezone: "Europe/Amsterdam",
			SessionDuration: 90 * time.Minute,
		},
		Mail: config.MailConfig{
			AdminRecipients: []string{"admin@example.com"},
		},
	}
}

func notificationDetail() models.RegistrationDetail {
	return models.RegistrationDetail{
		Registration: models.Registration{
			ID:        "reg-1",
			FirstName: "Nora",
			LastName:  "Jansen",
			Email:     "nora@example.com",
			Status:    models.RegistrationStatusConfirmed,
		},
		EditionTitle: "Evening Programme",
	}
}

func TestConfirmedMailListsSessionDatesInDisplayTimezone(t *testing.T) {
	capture := &captureMailer{}
	svc := NewNotificationService(capture, NewMetricsService(), notificationConfig(), zap.NewNop())

	// 18:00 UTC in winter is 19:00 in Amsterdam.
	choices := []models.ChoiceDetail{{
		SessionNumber: 2,
		StartsAt:      time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		Location:      "Main hall",
	}}

	err := svc.handle(context.Background(), jobs.Job{
		Type: NotificationConfirmed,
		Payload: notificationPayload{
			Kind:         NotificationConfirmed,
			Registration: notificationDetail(),
			Choices:      choices,
		},
	})
	require.NoError(t, err)

	sent := capture.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"nora@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "confirmed")
	assert.Contains(t, sent[0].Body, "Session 2")
	assert.Contains(t, sent[0].Body, "19:00 to 20:30")
	assert.Contains(t, sent[0].Body, "Europe/Amsterdam")
	assert.Contains(t, sent[0].Body, "Main hall")
}

func TestCancelledMailOmitsSessionDetail(t *testing.T) {
	capture := &captureMailer{}
	svc := NewNotificationService(capture, NewMetricsService(), notificationConfig(), zap.NewNop())

	detail := notificationDetail()
	detail.Status = models.RegistrationStatusCancelled

	err := svc.handle(context.Background(), jobs.Job{
		Type: NotificationCancelled,
		Payload: notificationPayload{
			Kind:         NotificationCancelled,
			Registration: detail,
			Choices:      []models.ChoiceDetail{{SessionNumber: 1, Location: "Main hall"}},
		},
	})
	require.NoError(t, err)

	sent := capture.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "cancelled")
	assert.NotContains(t, sent[0].Body, "Main hall")
	assert.Contains(t, sent[0].Body, "register again")
}

func TestReceivedMailAlsoAlertsAdmins(t *testing.T) {
	capture := &captureMailer{}
	svc := NewNotificationService(capture, NewMetricsService(), notificationConfig(), zap.NewNop())

	detail := notificationDetail()
	detail.Status = models.RegistrationStatusPending

	err := svc.handle(context.Background(), jobs.Job{
		Type: NotificationRegistrationReceived,
		Payload: notificationPayload{
			Kind:         NotificationRegistrationReceived,
			Registration: detail,
		},
	})
	require.NoError(t, err)

	sent := capture.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"nora@example.com"}, sent[0].To)
	assert.Equal(t, []string{"admin@example.com"}, sent[1].To)
	assert.Contains(t, sent[1].Body, "reg-1")
}

func TestNotifyStatusChangedIgnoresPending(t *testing.T) {
	capture := &captureMailer{}
	svc := NewNotificationService(capture, NewMetricsService(), notificationConfig(), zap.NewNop())

	detail := notificationDetail()
	detail.Status = models.RegistrationStatusPending

	assert.False(t, svc.NotifyStatusChanged(&detail, nil))
}

func TestNotifyQueuesAfterStart(t *testing.T) {
	capture := &captureMailer{}
	svc := NewNotificationService(capture, NewMetricsService(), notificationConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	detail := notificationDetail()
	assert.True(t, svc.NotifyStatusChanged(&detail, nil))

	require.Eventually(t, func() bool {
		return len(capture.sent()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
