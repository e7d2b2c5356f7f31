package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/programme-booking-api/internal/models"
)

// EditionRepository owns the catalog aggregate: editions, their sessions and
// session date options.
type EditionRepository struct {
	db *sqlx.DB
}

// NewEditionRepository constructs the repository.
func NewEditionRepository(db *sqlx.DB) *EditionRepository {
	return &EditionRepository{db: db}
}

const editionColumns = `id, programme_key, title, title_en, max_capacity, is_active, sessions_mandatory, created_at, updated_at`

// FindByID returns an edition by its primary key.
func (r *EditionRepository) FindByID(ctx context.Context, id string) (*models.Edition, error) {
	query := fmt.Sprintf(`SELECT %s FROM programme_editions WHERE id = $1`, editionColumns)
	var edition models.Edition
	if err := r.db.GetContext(ctx, &edition, query, id); err != nil {
		return nil, err
	}
	return &edition, nil
}

// FindActiveByProgrammeKey resolves a human-readable programme key to its most
// recent active edition.
func (r *EditionRepository) FindActiveByProgrammeKey(ctx context.Context, key string) (*models.Edition, error) {
	query := fmt.Sprintf(`SELECT %s FROM programme_editions WHERE programme_key = $1 AND is_active = TRUE ORDER BY created_at DESC LIMIT 1`, editionColumns)
	var edition models.Edition
	if err := r.db.GetContext(ctx, &edition, query, key); err != nil {
		return nil, err
	}
	return &edition, nil
}

// List returns editions filtered by the provided criteria.
func (r *EditionRepository) List(ctx context.Context, filter models.EditionFilter) ([]models.Edition, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ProgrammeKey != "" {
		conditions = append(conditions, fmt.Sprintf("programme_key = $%d", len(args)+1))
		args = append(args, filter.ProgrammeKey)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
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

	query := fmt.Sprintf(`SELECT %s FROM programme_editions%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		editionColumns, clause, size, offset)

	var editions []models.Edition
	if err := r.db.SelectContext(ctx, &editions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list editions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM programme_editions%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count editions: %w", err)
	}
	return editions, total, nil
}

// Sessions returns the sessions of an edition ordered by session number.
func (r *EditionRepository) Sessions(ctx context.Context, editionID string) ([]models.Session, error) {
	const query = `SELECT id, edition_id, session_number, title, title_en FROM edition_sessions WHERE edition_id = $1 ORDER BY session_number ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, editionID); err != nil {
		return nil, fmt.Errorf("list edition sessions: %w", err)
	}
	return sessions, nil
}

// DateOptions returns every date option of an edition, ordered
// chronologically.
func (r *EditionRepository) DateOptions(ctx context.Context, editionID string) ([]models.DateOption, error) {
	const query = `SELECT o.id, o.session_id, o.starts_at, o.location, o.max_capacity
        FROM session_date_options o
        JOIN edition_sessions s ON s.id = o.session_id
        WHERE s.edition_id = $1
        ORDER BY o.starts_at ASC`
	var options []models.DateOption
	if err := r.db.SelectContext(ctx, &options, query, editionID); err != nil {
		return nil, fmt.Errorf("list date options: %w", err)
	}
	return options, nil
}

// Create persists a new edition row.
func (r *EditionRepository) Create(ctx context.Context, edition *models.Edition) error {
	if edition.ID == "" {
		edition.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if edition.CreatedAt.IsZero() {
		edition.CreatedAt = now
	}
	edition.UpdatedAt = now
	const query = `INSERT INTO programme_editions (id, programme_key, title, title_en, max_capacity, is_active, sessions_mandatory, created_at, updated_at)
        VALUES (:id, :programme_key, :title, :title_en, :max_capacity, :is_active, :sessions_mandatory, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, edition); err != nil {
		return fmt.Errorf("create edition: %w", err)
	}
	return nil
}

// Update modifies the core fields of an existing edition.
func (r *EditionRepository) Update(ctx context.Context, edition *models.Edition) error {
	edition.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programme_editions SET programme_key = :programme_key, title = :title, title_en = :title_en,
        max_capacity = :max_capacity, is_active = :is_active, sessions_mandatory = :sessions_mandatory, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, edition); err != nil {
		return fmt.Errorf("update edition: %w", err)
	}
	return nil
}

// ReplaceSessions applies wholesale session replacement for an edition inside
// one transaction: incoming sessions and date options are upserted by id,
// existing rows absent from the input are deleted. The diff is an explicit
// set difference, independent of store-level cascades.
func (r *EditionRepository) ReplaceSessions(ctx context.Context, editionID string, sessions []models.Session, options map[string][]models.DateOption) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace sessions tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existingSessions := map[string]bool{}
	var sessionIDs []string
	if err = tx.SelectContext(ctx, &sessionIDs, `SELECT id FROM edition_sessions WHERE edition_id = $1`, editionID); err != nil {
		return fmt.Errorf("load existing sessions: %w", err)
	}
	for _, id := range sessionIDs {
		existingSessions[id] = true
	}

	existingOptions := map[string]bool{}
	var optionIDs []string
	if err = tx.SelectContext(ctx, &optionIDs, `SELECT o.id FROM session_date_options o JOIN edition_sessions s ON s.id = o.session_id WHERE s.edition_id = $1`, editionID); err != nil {
		return fmt.Errorf("load existing date options: %w", err)
	}
	for _, id := range optionIDs {
		existingOptions[id] = true
	}

	keptSessions := map[string]bool{}
	keptOptions := map[string]bool{}

	for i := range sessions {
		session := &sessions[i]
		incomingOptions := options[session.ID]
		session.EditionID = editionID
		if session.ID != "" && existingSessions[session.ID] {
			if _, err = tx.ExecContext(ctx, `UPDATE edition_sessions SET session_number = $2, title = $3, title_en = $4 WHERE id = $1`,
				session.ID, session.SessionNumber, session.Title, session.TitleEN); err != nil {
				return fmt.Errorf("update session: %w", err)
			}
		} else {
			if session.ID == "" {
				session.ID = uuid.NewString()
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO edition_sessions (id, edition_id, session_number, title, title_en) VALUES ($1, $2, $3, $4, $5)`,
				session.ID, editionID, session.SessionNumber, session.Title, session.TitleEN); err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
		}
		keptSessions[session.ID] = true

		for j := range incomingOptions {
			option := &incomingOptions[j]
			option.SessionID = session.ID
			if option.ID != "" && existingOptions[option.ID] {
				if _, err = tx.ExecContext(ctx, `UPDATE session_date_options SET session_id = $2, starts_at = $3, location = $4, max_capacity = $5 WHERE id = $1`,
					option.ID, session.ID, option.StartsAt, option.Location, option.MaxCapacity); err != nil {
					return fmt.Errorf("update date option: %w", err)
				}
			} else {
				if option.ID == "" {
					option.ID = uuid.NewString()
				}
				if _, err = tx.ExecContext(ctx, `INSERT INTO session_date_options (id, session_id, starts_at, location, max_capacity) VALUES ($1, $2, $3, $4, $5)`,
					option.ID, session.ID, option.StartsAt, option.Location, option.MaxCapacity); err != nil {
					return fmt.Errorf("insert date option: %w", err)
				}
			}
			keptOptions[option.ID] = true
		}
	}

	for id := range existingOptions {
		if keptOptions[id] {
			continue
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM registration_date_choices WHERE date_option_id = $1`, id); err != nil {
			return fmt.Errorf("delete choices of removed option: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM session_date_options WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete removed date option: %w", err)
		}
	}

	for id := range existingSessions {
		if keptSessions[id] {
			continue
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM edition_sessions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete removed session: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE programme_editions SET updated_at = $2 WHERE id = $1`, editionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch edition: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace sessions tx: %w", err)
	}
	return nil
}

// Archive soft-deletes an edition, hiding it from the public catalog while
// keeping every row in place.
func (r *EditionRepository) Archive(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE programme_editions SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive edition: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HardDelete removes an edition and everything hanging off it: date choices,
// registrations, date options, sessions, then the edition row. Deletion order
// follows the foreign keys explicitly instead of leaning on cascades.
func (r *EditionRepository) HardDelete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hard delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM registration_date_choices WHERE registration_id IN (SELECT id FROM registrations WHERE edition_id = $1)`, id); err != nil {
		return fmt.Errorf("delete edition date choices: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM registrations WHERE edition_id = $1`, id); err != nil {
		return fmt.Errorf("delete edition registrations: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_date_options WHERE session_id IN (SELECT id FROM edition_sessions WHERE edition_id = $1)`, id); err != nil {
		return fmt.Errorf("delete edition date options: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM edition_sessions WHERE edition_id = $1`, id); err != nil {
		return fmt.Errorf("delete edition sessions: %w", err)
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM programme_editions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete edition: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit hard delete tx: %w", err)
	}
	return nil
}
