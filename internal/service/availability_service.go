package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type availabilityRepository interface {
	GetAvailability(ctx context.Context, dateOptionIDs []string) (map[string]models.DateAvailability, error)
	ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error)
}

// AvailabilityService exposes the derived seat ledger. Every call re-derives
// counts from committed rows so a cancellation frees its seat on the very
// next read.
type AvailabilityService struct {
	repo   availabilityRepository
	logger *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, logger: logger}
}

// ForDateOptions returns the ledger entry for each requested date option.
func (s *AvailabilityService) ForDateOptions(ctx context.Context, dateOptionIDs []string) (map[string]models.DateAvailability, error) {
	availability, err := s.repo.GetAvailability(ctx, dateOptionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read availability")
	}
	return availability, nil
}

// ForEdition returns the ledger for every date option of an edition.
func (s *AvailabilityService) ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error) {
	availability, err := s.repo.ForEdition(ctx, editionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read edition availability")
	}
	return availability, nil
}
