package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/programme-booking-api/internal/models"
)

// AvailabilityRepository reads the derived seat ledger. Counts come from the
// date_availability view so every call reflects the latest committed rows;
// nothing is cached or maintained as a running counter.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetAvailability returns the ledger entry for each requested date option.
// Unknown ids are simply absent from the result map.
func (r *AvailabilityRepository) GetAvailability(ctx context.Context, dateOptionIDs []string) (map[string]models.DateAvailability, error) {
	result := make(map[string]models.DateAvailability, len(dateOptionIDs))
	if len(dateOptionIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(dateOptionIDs))
	args := make([]interface{}, len(dateOptionIDs))
	for i, id := range dateOptionIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT date_option_id, max_capacity, current_count, remaining_spots, is_full FROM date_availability WHERE date_option_id IN (%s)`,
		strings.Join(placeholders, ","))

	var entries []models.DateAvailability
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("read date availability: %w", err)
	}
	for _, entry := range entries {
		result[entry.DateOptionID] = entry
	}
	return result, nil
}

// ForEdition returns the ledger for every date option of an edition.
func (r *AvailabilityRepository) ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error) {
	const query = `SELECT a.date_option_id, a.max_capacity, a.current_count, a.remaining_spots, a.is_full
        FROM date_availability a
        JOIN session_date_options o ON o.id = a.date_option_id
        JOIN edition_sessions s ON s.id = o.session_id
        WHERE s.edition_id = $1`

	var entries []models.DateAvailability
	if err := r.db.SelectContext(ctx, &entries, query, editionID); err != nil {
		return nil, fmt.Errorf("read edition availability: %w", err)
	}

	result := make(map[string]models.DateAvailability, len(entries))
	for _, entry := range entries {
		result[entry.DateOptionID] = entry
	}
	return result, nil
}
