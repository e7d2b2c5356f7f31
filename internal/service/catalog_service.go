package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type editionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Edition, error)
	FindActiveByProgrammeKey(ctx context.Context, key string) (*models.Edition, error)
	List(ctx context.Context, filter models.EditionFilter) ([]models.Edition, int, error)
	Sessions(ctx context.Context, editionID string) ([]models.Session, error)
	DateOptions(ctx context.Context, editionID string) ([]models.DateOption, error)
	Create(ctx context.Context, edition *models.Edition) error
	Update(ctx context.Context, edition *models.Edition) error
	ReplaceSessions(ctx context.Context, editionID string, sessions []models.Session, options map[string][]models.DateOption) error
	Archive(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// CatalogService manages the programme catalog: editions with their sessions
// and bookable date options, plus the derived availability attached on reads.
type CatalogService struct {
	editions     editionRepository
	availability availabilityRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(editions editionRepository, availability availabilityRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{editions: editions, availability: availability, validator: validate, logger: logger}
}

// Resolve finds an edition by UUID or, failing that, by programme key. Key
// lookups only ever return the newest active edition.
func (s *CatalogService) Resolve(ctx context.Context, idOrKey string) (*models.Edition, error) {
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

// Get returns the full edition aggregate with per-option availability.
func (s *CatalogService) Get(ctx context.Context, idOrKey string) (*models.EditionDetail, error) {
	edition, err := s.Resolve(ctx, idOrKey)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, edition)
}

// List returns editions matching the filter, with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.EditionFilter) ([]models.Edition, *models.Pagination, error) {
	editions, total, err := s.editions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list editions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return editions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create validates and persists a new edition aggregate.
func (s *CatalogService) Create(ctx context.Context, req dto.UpsertEditionRequest) (*models.EditionDetail, error) {
	sessions, options, err := s.validateAggregate(req)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	edition := &models.Edition{
		ProgrammeKey:      req.ProgrammeKey,
		Title:             req.Title,
		TitleEN:           req.TitleEN,
		MaxCapacity:       req.MaxCapacity,
		IsActive:          isActive,
		SessionsMandatory: req.SessionsMandatory,
	}

	if err := s.editions.Create(ctx, edition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create edition")
	}
	if err := s.editions.ReplaceSessions(ctx, edition.ID, sessions, options); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store edition sessions")
	}

	return s.detail(ctx, edition)
}

// Update validates and applies a wholesale edition update. Sessions and date
// options absent from the request are removed.
func (s *CatalogService) Update(ctx context.Context, id string, req dto.UpsertEditionRequest) (*models.EditionDetail, error) {
	edition, err := s.editions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edition")
	}

	sessions, options, err := s.validateAggregate(req)
	if err != nil {
		return nil, err
	}

	edition.ProgrammeKey = req.ProgrammeKey
	edition.Title = req.Title
	edition.TitleEN = req.TitleEN
	edition.MaxCapacity = req.MaxCapacity
	edition.SessionsMandatory = req.SessionsMandatory
	if req.IsActive != nil {
		edition.IsActive = *req.IsActive
	}

	if err := s.editions.Update(ctx, edition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update edition")
	}
	if err := s.editions.ReplaceSessions(ctx, edition.ID, sessions, options); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace edition sessions")
	}

	return s.detail(ctx, edition)
}

// Archive soft-deletes an edition, hiding it from public reads while keeping
// its registrations on record.
func (s *CatalogService) Archive(ctx context.Context, id string) error {
	if err := s.editions.Archive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "edition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive edition")
	}
	return nil
}

// Delete hard-deletes an edition together with its sessions, date options,
// registrations and date choices.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.editions.HardDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "edition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete edition")
	}
	return nil
}

func (s *CatalogService) detail(ctx context.Context, edition *models.Edition) (*models.EditionDetail, error) {
	sessions, err := s.editions.Sessions(ctx, edition.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	options, err := s.editions.DateOptions(ctx, edition.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date options")
	}
	availability, err := s.availability.ForEdition(ctx, edition.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	optionsBySession := make(map[string][]models.DateOptionDetail)
	for _, option := range options {
		detail := models.DateOptionDetail{DateOption: option}
		if entry, ok := availability[option.ID]; ok {
			detail.Availability = entry
		} else {
			capacity := option.EffectiveCapacity(edition.MaxCapacity)
			detail.Availability = models.DateAvailability{
				DateOptionID:   option.ID,
				MaxCapacity:    capacity,
				RemainingSpots: capacity,
				IsFull:         capacity == 0,
			}
		}
		optionsBySession[option.SessionID] = append(optionsBySession[option.SessionID], detail)
	}

	result := &models.EditionDetail{Edition: *edition, Sessions: make([]models.SessionDetail, 0, len(sessions))}
	for _, session := range sessions {
		sessionOptions := optionsBySession[session.ID]
		sort.Slice(sessionOptions, func(i, j int) bool {
			return sessionOptions[i].StartsAt.Before(sessionOptions[j].StartsAt)
		})
		result.Sessions = append(result.Sessions, models.SessionDetail{
			Session:     session,
			DateOptions: sessionOptions,
		})
	}
	return result, nil
}

// validateAggregate checks the full edition payload and converts it into
// repository input. All violations are reported together.
func (s *CatalogService) validateAggregate(req dto.UpsertEditionRequest) ([]models.Session, map[string][]models.DateOption, error) {
	violations := violationsFromValidator(s.validator.Struct(req))

	seenNumbers := make(map[int]bool)
	sessions := make([]models.Session, 0, len(req.Sessions))
	options := make(map[string][]models.DateOption, len(req.Sessions))

	for i, sessionInput := range req.Sessions {
		if sessionInput.SessionNumber < 1 {
			violations = append(violations, appErrors.FieldViolation{
				Field:   fmt.Sprintf("sessions[%d].sessionNumber", i),
				Rule:    "gte",
				Message: "session number must be 1 or greater",
			})
		}
		if seenNumbers[sessionInput.SessionNumber] {
			violations = append(violations, appErrors.FieldViolation{
				Field:   fmt.Sprintf("sessions[%d].sessionNumber", i),
				Rule:    "unique",
				Message: fmt.Sprintf("session number %d appears more than once", sessionInput.SessionNumber),
			})
		}
		seenNumbers[sessionInput.SessionNumber] = true

		if sessionInput.Title == "" {
			violations = append(violations, appErrors.FieldViolation{
				Field:   fmt.Sprintf("sessions[%d].title", i),
				Rule:    "required",
				Message: "session title is required",
			})
		}
		if len(sessionInput.DateOptions) == 0 {
			violations = append(violations, appErrors.FieldViolation{
				Field:   fmt.Sprintf("sessions[%d].dateOptions", i),
				Rule:    "min",
				Message: "every session needs at least one date option",
			})
		}

		// New sessions get their id here so the options map key is unique and
		// survives the repository upsert.
		sessionID := sessionInput.ID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		session := models.Session{
			ID:            sessionID,
			SessionNumber: sessionInput.SessionNumber,
			Title:         sessionInput.Title,
			TitleEN:       sessionInput.TitleEN,
		}

		sessionOptions := make([]models.DateOption, 0, len(sessionInput.DateOptions))
		for j, optionInput := range sessionInput.DateOptions {
			if optionInput.StartsAt.IsZero() {
				violations = append(violations, appErrors.FieldViolation{
					Field:   fmt.Sprintf("sessions[%d].dateOptions[%d].startsAt", i, j),
					Rule:    "required",
					Message: "date option start time is required",
				})
			}
			if optionInput.Location == "" {
				violations = append(violations, appErrors.FieldViolation{
					Field:   fmt.Sprintf("sessions[%d].dateOptions[%d].location", i, j),
					Rule:    "required",
					Message: "date option location is required",
				})
			}
			if optionInput.MaxCapacity != nil && *optionInput.MaxCapacity < 0 {
				violations = append(violations, appErrors.FieldViolation{
					Field:   fmt.Sprintf("sessions[%d].dateOptions[%d].maxCapacity", i, j),
					Rule:    "gte",
					Message: "date option capacity must be 0 or greater",
				})
			}
			sessionOptions = append(sessionOptions, models.DateOption{
				ID:          optionInput.ID,
				StartsAt:    optionInput.StartsAt,
				Location:    optionInput.Location,
				MaxCapacity: optionInput.MaxCapacity,
			})
		}

		sessions = append(sessions, session)
		options[sessionID] = sessionOptions
	}

	if len(violations) > 0 {
		return nil, nil, appErrors.Validation("edition validation failed", violations)
	}
	return sessions, options, nil
}
