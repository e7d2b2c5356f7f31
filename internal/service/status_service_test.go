package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type mockAdminStore struct {
	detail           *models.RegistrationDetail
	statusUpdates    []models.RegistrationStatus
	updateStatusErr  error
	list             []models.RegistrationDetail
	listTotal        int
	byEdition        []models.RegistrationDetail
	choiceDetails    []models.ChoiceDetail
	choicesByEdition map[string][]models.ChoiceDetail
}

func (m *mockAdminStore) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	clone := *m.detail
	return &clone, nil
}

func (m *mockAdminStore) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	m.statusUpdates = append(m.statusUpdates, status)
	m.detail.Status = status
	return nil
}

func (m *mockAdminStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	return m.list, m.listTotal, nil
}

func (m *mockAdminStore) ListByEdition(ctx context.Context, editionID string) ([]models.RegistrationDetail, error) {
	return m.byEdition, nil
}

func (m *mockAdminStore) ChoiceDetails(ctx context.Context, registrationID string) ([]models.ChoiceDetail, error) {
	return m.choiceDetails, nil
}

func (m *mockAdminStore) ChoiceDetailsForEdition(ctx context.Context, editionID string) (map[string][]models.ChoiceDetail, error) {
	return m.choicesByEdition, nil
}

type mockEditionFinder struct {
	edition *models.Edition
}

func (m *mockEditionFinder) FindByID(ctx context.Context, id string) (*models.Edition, error) {
	if m.edition == nil {
		return nil, sql.ErrNoRows
	}
	return m.edition, nil
}

type mockStatusNotifier struct {
	calls    int
	statuses []models.RegistrationStatus
	result   bool
}

func (m *mockStatusNotifier) NotifyStatusChanged(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool {
	m.calls++
	m.statuses = append(m.statuses, registration.Status)
	return m.result
}

func pendingDetail() *models.RegistrationDetail {
	return &models.RegistrationDetail{
		Registration: models.Registration{
			ID:        "reg-1",
			EditionID: "ed-1",
			FirstName: "Nora",
			LastName:  "Jansen",
			Email:     "nora@example.com",
			Phone:     "+31612345678",
			Status:    models.RegistrationStatusPending,
			CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		EditionTitle: "Evening Programme",
		ProgrammeKey: "evening-2026",
	}
}

func newStatusService(store *mockAdminStore, editions *mockEditionFinder, notifier *mockStatusNotifier) *StatusService {
	return NewStatusService(store, editions, notifier, NewMetricsService(), nil, nil, "Europe/Amsterdam", zap.NewNop())
}

func TestSetStatusConfirmSendsNotification(t *testing.T) {
	store := &mockAdminStore{detail: pendingDetail(), choiceDetails: []models.ChoiceDetail{{SessionNumber: 1}}}
	notifier := &mockStatusNotifier{result: true}
	svc := newStatusService(store, &mockEditionFinder{}, notifier)

	result, err := svc.SetStatus(context.Background(), "reg-1", models.RegistrationStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusConfirmed, result.Registration.Status)
	assert.True(t, result.EmailSent)
	assert.Empty(t, result.Message)
	assert.Equal(t, []models.RegistrationStatus{models.RegistrationStatusConfirmed}, store.statusUpdates)
	assert.Equal(t, 1, notifier.calls)
}

func TestSetStatusRepeatIsNoOp(t *testing.T) {
	detail := pendingDetail()
	detail.Status = models.RegistrationStatusConfirmed
	store := &mockAdminStore{detail: detail}
	notifier := &mockStatusNotifier{result: true}
	svc := newStatusService(store, &mockEditionFinder{}, notifier)

	result, err := svc.SetStatus(context.Background(), "reg-1", models.RegistrationStatusConfirmed)
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.Equal(t, "status unchanged", result.Message)
	assert.Empty(t, store.statusUpdates)
	assert.Equal(t, 0, notifier.calls)
}

func TestSetStatusCancelledSendsNotification(t *testing.T) {
	store := &mockAdminStore{detail: pendingDetail()}
	notifier := &mockStatusNotifier{result: true}
	svc := newStatusService(store, &mockEditionFinder{}, notifier)

	result, err := svc.SetStatus(context.Background(), "reg-1", models.RegistrationStatusCancelled)
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.Equal(t, []models.RegistrationStatus{models.RegistrationStatusCancelled}, notifier.statuses)
}

func TestSetStatusBackToPendingSendsNothing(t *testing.T) {
	detail := pendingDetail()
	detail.Status = models.RegistrationStatusConfirmed
	store := &mockAdminStore{detail: detail}
	notifier := &mockStatusNotifier{result: true}
	svc := newStatusService(store, &mockEditionFinder{}, notifier)

	result, err := svc.SetStatus(context.Background(), "reg-1", models.RegistrationStatusPending)
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.Equal(t, 0, notifier.calls)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := newStatusService(&mockAdminStore{detail: pendingDetail()}, &mockEditionFinder{}, &mockStatusNotifier{})

	_, err := svc.SetStatus(context.Background(), "reg-1", models.RegistrationStatus("archived"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSetStatusNotFound(t *testing.T) {
	svc := newStatusService(&mockAdminStore{}, &mockEditionFinder{}, &mockStatusNotifier{})

	_, err := svc.SetStatus(context.Background(), "missing", models.RegistrationStatusConfirmed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCSVIncludesEveryRegistration(t *testing.T) {
	detail := pendingDetail()
	cancelled := pendingDetail()
	cancelled.ID = "reg-2"
	cancelled.FirstName = "Pieter"
	cancelled.Status = models.RegistrationStatusCancelled

	store := &mockAdminStore{
		byEdition: []models.RegistrationDetail{*detail, *cancelled},
		choicesByEdition: map[string][]models.ChoiceDetail{
			"reg-1": {{SessionNumber: 1, StartsAt: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), Location: "Main hall"}},
		},
	}
	editions := &mockEditionFinder{edition: &models.Edition{ID: "ed-1", ProgrammeKey: "evening-2026", Title: "Evening Programme"}}
	svc := newStatusService(store, editions, &mockStatusNotifier{})

	data, contentType, filename, err := svc.Export(context.Background(), "ed-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "evening-2026-registrations.csv", filename)

	body := string(data)
	assert.Contains(t, body, "Nora Jansen")
	assert.Contains(t, body, "Pieter Jansen")
	assert.Contains(t, body, "cancelled")
	assert.Contains(t, body, "Main hall")
}

func TestExportPDFRenders(t *testing.T) {
	store := &mockAdminStore{byEdition: []models.RegistrationDetail{*pendingDetail()}}
	editions := &mockEditionFinder{edition: &models.Edition{ID: "ed-1", ProgrammeKey: "evening-2026", Title: "Evening Programme"}}
	svc := newStatusService(store, editions, &mockStatusNotifier{})

	data, contentType, filename, err := svc.Export(context.Background(), "ed-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "evening-2026-registrations.pdf", filename)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	editions := &mockEditionFinder{edition: &models.Edition{ID: "ed-1"}}
	svc := newStatusService(&mockAdminStore{}, editions, &mockStatusNotifier{})

	_, _, _, err := svc.Export(context.Background(), "ed-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportUnknownEdition(t *testing.T) {
	svc := newStatusService(&mockAdminStore{}, &mockEditionFinder{}, &mockStatusNotifier{})

	_, _, _, err := svc.Export(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportLinkRequiresConfiguration(t *testing.T) {
	editions := &mockEditionFinder{edition: &models.Edition{ID: "ed-1"}}
	svc := newStatusService(&mockAdminStore{}, editions, &mockStatusNotifier{})

	_, err := svc.ExportLink(context.Background(), "ed-1", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
}
