package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	"github.com/noah-isme/programme-booking-api/pkg/cache"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type registrationStore interface {
	Create(ctx context.Context, registration *models.Registration) error
	InsertChoices(ctx context.Context, registrationID string, dateOptionIDs []string) error
	Delete(ctx context.Context, id string) error
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	ChoiceDetails(ctx context.Context, registrationID string) ([]models.ChoiceDetail, error)
}

type editionReader interface {
	FindByID(ctx context.Context, id string) (*models.Edition, error)
	FindActiveByProgrammeKey(ctx context.Context, key string) (*models.Edition, error)
	Sessions(ctx context.Context, editionID string) ([]models.Session, error)
	DateOptions(ctx context.Context, editionID string) ([]models.DateOption, error)
}

type seatLocker interface {
	Acquire(ctx context.Context, dateOptionIDs []string) (func(), error)
}

type registrationNotifier interface {
	NotifyRegistrationReceived(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool
}

// RegistrationService runs the booking flow: validate the submission against
// the edition structure, gate it on derived availability under a short seat
// lock, then write the registration and its date choices. The two writes are
// separate statements; a failed choice insert is compensated by deleting the
// registration so no half-booked rows survive.
type RegistrationService struct {
	registrations registrationStore
	editions      editionReader
	availability  availabilityRepository
	locks         seatLocker
	notifier      registrationNotifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(
	registrations registrationStore,
	editions editionReader,
	availability availabilityRepository,
	locks seatLocker,
	notifier registrationNotifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		registrations: registrations,
		editions:      editions,
		availability:  availability,
		locks:         locks,
		notifier:      notifier,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Register books a participant onto an edition identified by UUID or
// programme key.
func (s *RegistrationService) Register(ctx context.Context, idOrKey string, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	edition, err := s.resolveEdition(ctx, idOrKey)
	if err != nil {
		return nil, err
	}
	if !edition.IsActive {
		// Inactive editions are invisible to the public booking surface.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "edition not found")
	}

	violations := violationsFromValidator(s.validator.Struct(req))
	if !req.Consent {
		violations = append(violations, appErrors.FieldViolation{
			Field:   "consent",
			Rule:    "required",
			Message: "consent is required",
		})
	}

	choiceViolations, err := s.validateChoices(ctx, edition, req.DateChoices)
	if err != nil {
		return nil, err
	}
	violations = append(violations, choiceViolations...)
	if len(violations) > 0 {
		return nil, appErrors.Validation("registration validation failed", violations)
	}

	release, err := s.locks.Acquire(ctx, req.DateChoices)
	if err != nil {
		if errors.Is(err, cache.ErrSeatLockHeld) {
			return nil, appErrors.Conflict("the chosen dates are being booked by someone else, please retry", nil)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seats")
	}
	defer release()

	availability, err := s.availability.GetAvailability(ctx, req.DateChoices)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}

	var fullDates []string
	for _, optionID := range req.DateChoices {
		if entry, ok := availability[optionID]; ok && entry.IsFull {
			fullDates = append(fullDates, optionID)
		}
	}
	if len(fullDates) > 0 {
		s.metrics.RecordCapacityConflict()
		return nil, appErrors.Conflict("one or more chosen dates are fully booked", dto.ConflictDetails{FullDates: fullDates})
	}

	registration := &models.Registration{
		EditionID: edition.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		WhatsApp:  req.WhatsApp,
		Message:   req.Message,
		Consent:   req.Consent,
		Status:    models.RegistrationStatusPending,
	}

	if err := s.registrations.Create(ctx, registration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registration")
	}

	if err := s.registrations.InsertChoices(ctx, registration.ID, req.DateChoices); err != nil {
		s.compensate(ctx, registration.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store date choices")
	}

	s.metrics.RecordRegistration()
	s.notifyReceived(ctx, registration.ID)

	return &dto.RegisterResponse{
		RegistrationID: registration.ID,
		Status:         registration.Status,
	}, nil
}

// resolveEdition accepts either an edition UUID or a programme key. Keys map
// to the newest active edition.
func (s *RegistrationService) resolveEdition(ctx context.Context, idOrKey string) (*models.Edition, error) {
	var edition *models.Edition
	var err error
	if _, parseErr := uuid.Parse(idOrKey); parseErr == nil {
		edition, err = s.editions.FindByID(ctx, idOrKey)
	} else {
		edition, err = s.editions.FindActiveByProgrammeKey(ctx, idOrKey)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve edition")
	}
	return edition, nil
}

// validateChoices checks the submitted date options against the edition
// structure: options must exist, at most one per session, and with mandatory
// sessions every session must be covered.
func (s *RegistrationService) validateChoices(ctx context.Context, edition *models.Edition, choices []string) ([]appErrors.FieldViolation, error) {
	sessions, err := s.editions.Sessions(ctx, edition.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	options, err := s.editions.DateOptions(ctx, edition.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date options")
	}

	sessionByOption := make(map[string]string, len(options))
	for _, option := range options {
		sessionByOption[option.ID] = option.SessionID
	}
	sessionNumbers := make(map[string]int, len(sessions))
	for _, session := range sessions {
		sessionNumbers[session.ID] = session.SessionNumber
	}

	var violations []appErrors.FieldViolation
	chosenSessions := make(map[string]bool, len(choices))
	for _, optionID := range choices {
		sessionID, ok := sessionByOption[optionID]
		if !ok {
			violations = append(violations, appErrors.FieldViolation{
				Field:   "dateChoices",
				Rule:    "exists",
				Message: fmt.Sprintf("date option %s does not belong to this edition", optionID),
			})
			continue
		}
		if chosenSessions[sessionID] {
			violations = append(violations, appErrors.FieldViolation{
				Field:   "dateChoices",
				Rule:    "unique",
				Message: fmt.Sprintf("session %d has more than one chosen date", sessionNumbers[sessionID]),
			})
			continue
		}
		chosenSessions[sessionID] = true
	}

	if edition.SessionsMandatory {
		for _, session := range sessions {
			if !chosenSessions[session.ID] {
				violations = append(violations, appErrors.FieldViolation{
					Field:   "dateChoices",
					Rule:    "required",
					Message: fmt.Sprintf("session %d requires a date choice", session.SessionNumber),
				})
			}
		}
	}

	return violations, nil
}

// compensate removes a registration whose choice insert failed. A failed
// compensation leaves an orphan row; it is logged at error level for manual
// cleanup.
func (s *RegistrationService) compensate(ctx context.Context, registrationID string) {
	s.metrics.RecordCompensation()
	if err := s.registrations.Delete(ctx, registrationID); err != nil {
		s.logger.Sugar().Errorw("compensating delete failed, orphan registration left behind",
			"registration_id", registrationID, "error", err)
	}
}

func (s *RegistrationService) notifyReceived(ctx context.Context, registrationID string) {
	detail, err := s.registrations.FindDetailByID(ctx, registrationID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Sugar().Warnw("failed to load registration for notification", "registration_id", registrationID, "error", err)
		}
		return
	}
	choices, err := s.registrations.ChoiceDetails(ctx, registrationID)
	if err != nil {
		s.logger.Sugar().Warnw("failed to load choices for notification", "registration_id", registrationID, "error", err)
		return
	}
	s.notifier.NotifyRegistrationReceived(detail, choices)
}
