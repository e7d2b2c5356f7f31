package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/programme-booking-api/internal/models"
)

// RegistrationRepository handles persistence of registrations and their date
// choices. The registration insert and the choice inserts are deliberately
// separate statements; the engine compensates by deleting the registration
// when choice insertion fails.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, edition_id, first_name, last_name, email, phone, whatsapp, message, consent, status, created_at, updated_at`

// Create persists a new registration row with status pending.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = now
	}
	registration.UpdatedAt = now
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusPending
	}
	const query = `INSERT INTO registrations (id, edition_id, first_name, last_name, email, phone, whatsapp, message, consent, status, created_at, updated_at)
        VALUES (:id, :edition_id, :first_name, :last_name, :email, :phone, :whatsapp, :message, :consent, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, registration); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// InsertChoices writes one date choice row per selected option in a single
// multi-row insert.
func (r *RegistrationRepository) InsertChoices(ctx context.Context, registrationID string, dateOptionIDs []string) error {
	if len(dateOptionIDs) == 0 {
		return fmt.Errorf("insert choices: no date options")
	}
	values := make([]string, len(dateOptionIDs))
	args := make([]interface{}, 0, len(dateOptionIDs)+1)
	args = append(args, registrationID)
	for i, optionID := range dateOptionIDs {
		values[i] = fmt.Sprintf("($1, $%d)", i+2)
		args = append(args, optionID)
	}
	query := fmt.Sprintf(`INSERT INTO registration_date_choices (registration_id, date_option_id) VALUES %s`, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert date choices: %w", err)
	}
	return nil
}

// Delete removes a registration and any of its choices. Used as the
// compensating action when choice insertion fails mid-flight.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM registration_date_choices WHERE registration_id = $1`, id); err != nil {
		return fmt.Errorf("delete registration choices: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindDetailByID returns a registration with its edition context.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.edition_id, r.first_name, r.last_name, r.email, r.phone, r.whatsapp, r.message, r.consent, r.status, r.created_at, r.updated_at,
        e.title AS edition_title, e.programme_key AS programme_key
        FROM registrations r
        JOIN programme_editions e ON e.id = r.edition_id
        WHERE r.id = $1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns registrations filtered by edition and status.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := `FROM registrations r JOIN programme_editions e ON e.id = r.edition_id`
	var conditions []string
	var args []interface{}

	if filter.EditionID != "" {
		conditions = append(conditions, fmt.Sprintf("r.edition_id = $%d", len(args)+1))
		args = append(args, filter.EditionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.edition_id, r.first_name, r.last_name, r.email, r.phone, r.whatsapp, r.message, r.consent, r.status, r.created_at, r.updated_at,
        e.title AS edition_title, e.programme_key AS programme_key
        %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// ListByEdition returns every registration of an edition, newest first.
// Used by exports, which must not truncate.
func (r *RegistrationRepository) ListByEdition(ctx context.Context, editionID string) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.edition_id, r.first_name, r.last_name, r.email, r.phone, r.whatsapp, r.message, r.consent, r.status, r.created_at, r.updated_at,
        e.title AS edition_title, e.programme_key AS programme_key
        FROM registrations r
        JOIN programme_editions e ON e.id = r.edition_id
        WHERE r.edition_id = $1
        ORDER BY r.created_at DESC`
	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, editionID); err != nil {
		return nil, fmt.Errorf("list edition registrations: %w", err)
	}
	return registrations, nil
}

// UpdateStatus persists a workflow transition.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return nil
}

// ChoiceDetails resolves a registration's date choices through their session
// and date option, ordered by session number for display.
func (r *RegistrationRepository) ChoiceDetails(ctx context.Context, registrationID string) ([]models.ChoiceDetail, error) {
	const query = `SELECT dc.date_option_id, s.id AS session_id, s.session_number, s.title AS session_title, o.starts_at, o.location
        FROM registration_date_choices dc
        JOIN session_date_options o ON o.id = dc.date_option_id
        JOIN edition_sessions s ON s.id = o.session_id
        WHERE dc.registration_id = $1
        ORDER BY s.session_number ASC`
	var choices []models.ChoiceDetail
	if err := r.db.SelectContext(ctx, &choices, query, registrationID); err != nil {
		return nil, fmt.Errorf("list registration choices: %w", err)
	}
	return choices, nil
}

// ChoiceDetailsForEdition resolves every registration's choices for an
// edition in one query, keyed by registration id.
func (r *RegistrationRepository) ChoiceDetailsForEdition(ctx context.Context, editionID string) (map[string][]models.ChoiceDetail, error) {
	const query = `SELECT dc.registration_id, dc.date_option_id, s.id AS session_id, s.session_number, s.title AS session_title, o.starts_at, o.location
        FROM registration_date_choices dc
        JOIN session_date_options o ON o.id = dc.date_option_id
        JOIN edition_sessions s ON s.id = o.session_id
        WHERE s.edition_id = $1
        ORDER BY dc.registration_id, s.session_number ASC`

	rows, err := r.db.QueryxContext(ctx, query, editionID)
	if err != nil {
		return nil, fmt.Errorf("list edition choices: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.ChoiceDetail)
	for rows.Next() {
		var registrationID string
		var choice models.ChoiceDetail
		if err := rows.Scan(&registrationID, &choice.DateOptionID, &choice.SessionID, &choice.SessionNumber, &choice.SessionTitle, &choice.StartsAt, &choice.Location); err != nil {
			return nil, fmt.Errorf("scan edition choice: %w", err)
		}
		result[registrationID] = append(result[registrationID], choice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edition choices: %w", err)
	}
	return result, nil
}
