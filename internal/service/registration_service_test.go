package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	"github.com/noah-isme/programme-booking-api/pkg/cache"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type mockEditionReader struct {
	edition  *models.Edition
	sessions []models.Session
	options  []models.DateOption
	findErr  error
}

func (m *mockEditionReader) FindByID(ctx context.Context, id string) (*models.Edition, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.edition, nil
}

func (m *mockEditionReader) FindActiveByProgrammeKey(ctx context.Context, key string) (*models.Edition, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.edition, nil
}

func (m *mockEditionReader) Sessions(ctx context.Context, editionID string) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockEditionReader) DateOptions(ctx context.Context, editionID string) ([]models.DateOption, error) {
	return m.options, nil
}

type mockRegistrationStore struct {
	created          *models.Registration
	insertedChoices  []string
	deleted          []string
	createErr        error
	insertChoicesErr error
	deleteErr        error
	detail           *models.RegistrationDetail
	choiceDetails    []models.ChoiceDetail
}

func (m *mockRegistrationStore) Create(ctx context.Context, registration *models.Registration) error {
	if m.createErr != nil {
		return m.createErr
	}
	if registration.ID == "" {
		registration.ID = "reg-1"
	}
	registration.Status = models.RegistrationStatusPending
	m.created = registration
	return nil
}

func (m *mockRegistrationStore) InsertChoices(ctx context.Context, registrationID string, dateOptionIDs []string) error {
	if m.insertChoicesErr != nil {
		return m.insertChoicesErr
	}
	m.insertedChoices = append(m.insertedChoices, dateOptionIDs...)
	return nil
}

func (m *mockRegistrationStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRegistrationStore) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockRegistrationStore) ChoiceDetails(ctx context.Context, registrationID string) ([]models.ChoiceDetail, error) {
	return m.choiceDetails, nil
}

type mockAvailabilityRepo struct {
	entries map[string]models.DateAvailability
	err     error
}

func (m *mockAvailabilityRepo) GetAvailability(ctx context.Context, ids []string) (map[string]models.DateAvailability, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockAvailabilityRepo) ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

type mockSeatLocker struct {
	err      error
	released bool
}

func (m *mockSeatLocker) Acquire(ctx context.Context, ids []string) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	return func() { m.released = true }, nil
}

type mockRegistrationNotifier struct {
	receivedCalls int
}

func (m *mockRegistrationNotifier) NotifyRegistrationReceived(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool {
	m.receivedCalls++
	return true
}

func bookingFixture() (*mockEditionReader, *mockAvailabilityRepo) {
	edition := &models.Edition{
		ID:          "ed-1",
		Title:       "Evening Programme",
		MaxCapacity: 8,
		IsActive:    true,
	}
	editions := &mockEditionReader{
		edition: edition,
		sessions: []models.Session{
			{ID: "s1", EditionID: "ed-1", SessionNumber: 1, Title: "Kickoff"},
			{ID: "s2", EditionID: "ed-1", SessionNumber: 2, Title: "Deep dive"},
		},
		options: []models.DateOption{
			{ID: "opt-1a", SessionID: "s1", StartsAt: time.Now(), Location: "Main hall"},
			{ID: "opt-1b", SessionID: "s1", StartsAt: time.Now(), Location: "Annex"},
			{ID: "opt-2a", SessionID: "s2", StartsAt: time.Now(), Location: "Main hall"},
		},
	}
	availability := &mockAvailabilityRepo{entries: map[string]models.DateAvailability{
		"opt-1a": {DateOptionID: "opt-1a", MaxCapacity: 8, CurrentCount: 2, RemainingSpots: 6},
		"opt-1b": {DateOptionID: "opt-1b", MaxCapacity: 8, CurrentCount: 0, RemainingSpots: 8},
		"opt-2a": {DateOptionID: "opt-2a", MaxCapacity: 8, CurrentCount: 3, RemainingSpots: 5},
	}}
	return editions, availability
}

func validRegisterRequest() dto.RegisterRequest {
	return dto.RegisterRequest{
		FirstName:   "Nora",
		LastName:    "Jansen",
		Email:       "nora@example.com",
		Phone:       "+31612345678",
		Consent:     true,
		DateChoices: []string{"opt-1a", "opt-2a"},
	}
}

func newRegistrationService(store *mockRegistrationStore, editions *mockEditionReader, availability *mockAvailabilityRepo, locker *mockSeatLocker, notifier *mockRegistrationNotifier) *RegistrationService {
	return NewRegistrationService(store, editions, availability, locker, notifier, NewMetricsService(), nil, zap.NewNop())
}

func TestRegisterSuccess(t *testing.T) {
	editions, availability := bookingFixture()
	store := &mockRegistrationStore{
		detail:        &models.RegistrationDetail{EditionTitle: "Evening Programme"},
		choiceDetails: []models.ChoiceDetail{{SessionNumber: 1}},
	}
	locker := &mockSeatLocker{}
	notifier := &mockRegistrationNotifier{}
	svc := newRegistrationService(store, editions, availability, locker, notifier)

	result, err := svc.Register(context.Background(), "ed-1", validRegisterRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.RegistrationID)
	assert.Equal(t, models.RegistrationStatusPending, result.Status)
	assert.ElementsMatch(t, []string{"opt-1a", "opt-2a"}, store.insertedChoices)
	assert.True(t, locker.released)
	assert.Equal(t, 1, notifier.receivedCalls)
}

func TestRegisterCapacityConflictListsFullDates(t *testing.T) {
	editions, availability := bookingFixture()
	availability.entries["opt-2a"] = models.DateAvailability{
		DateOptionID: "opt-2a", MaxCapacity: 8, CurrentCount: 8, RemainingSpots: 0, IsFull: true,
	}
	store := &mockRegistrationStore{}
	svc := newRegistrationService(store, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	_, err := svc.Register(context.Background(), "ed-1", validRegisterRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	details, ok := appErr.Details.(dto.ConflictDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"opt-2a"}, details.FullDates)
	assert.Nil(t, store.created)
}

func TestRegisterCollectsAllViolations(t *testing.T) {
	editions, availability := bookingFixture()
	svc := newRegistrationService(&mockRegistrationStore{}, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	req := validRegisterRequest()
	req.Email = "not-an-email"
	req.Consent = false
	req.DateChoices = []string{"opt-1a", "unknown-opt"}

	_, err := svc.Register(context.Background(), "ed-1", req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	violations, ok := appErr.Details.([]appErrors.FieldViolation)
	require.True(t, ok)

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "consent")
	assert.Contains(t, fields, "dateChoices")
}

func TestRegisterMandatorySessionsRequireEveryChoice(t *testing.T) {
	editions, availability := bookingFixture()
	editions.edition.SessionsMandatory = true
	svc := newRegistrationService(&mockRegistrationStore{}, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	req := validRegisterRequest()
	req.DateChoices = []string{"opt-1a"}

	_, err := svc.Register(context.Background(), "ed-1", req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	violations, ok := appErr.Details.([]appErrors.FieldViolation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "session 2")
}

func TestRegisterRejectsTwoChoicesForOneSession(t *testing.T) {
	editions, availability := bookingFixture()
	svc := newRegistrationService(&mockRegistrationStore{}, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	req := validRegisterRequest()
	req.DateChoices = []string{"opt-1a", "opt-1b"}

	_, err := svc.Register(context.Background(), "ed-1", req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	violations, ok := appErr.Details.([]appErrors.FieldViolation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "more than one chosen date")
}

func TestRegisterCompensatesFailedChoiceInsert(t *testing.T) {
	editions, availability := bookingFixture()
	store := &mockRegistrationStore{insertChoicesErr: fmt.Errorf("insert date choices: %w", errors.New("connection reset"))}
	notifier := &mockRegistrationNotifier{}
	svc := newRegistrationService(store, editions, availability, &mockSeatLocker{}, notifier)

	_, err := svc.Register(context.Background(), "ed-1", validRegisterRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, []string{store.created.ID}, store.deleted)
	assert.Equal(t, 0, notifier.receivedCalls)
}

func TestRegisterInactiveEditionIsHidden(t *testing.T) {
	editions, availability := bookingFixture()
	editions.edition.IsActive = false
	svc := newRegistrationService(&mockRegistrationStore{}, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	_, err := svc.Register(context.Background(), editions.edition.ID, validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterUnknownEdition(t *testing.T) {
	editions, availability := bookingFixture()
	editions.findErr = sql.ErrNoRows
	svc := newRegistrationService(&mockRegistrationStore{}, editions, availability, &mockSeatLocker{}, &mockRegistrationNotifier{})

	_, err := svc.Register(context.Background(), "does-not-exist", validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterSeatLockContention(t *testing.T) {
	editions, availability := bookingFixture()
	store := &mockRegistrationStore{}
	svc := newRegistrationService(store, editions, availability, &mockSeatLocker{err: cache.ErrSeatLockHeld}, &mockRegistrationNotifier{})

	_, err := svc.Register(context.Background(), "ed-1", validRegisterRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.True(t, strings.Contains(appErr.Message, "retry"))
	assert.Nil(t, store.created)
}
