package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryGetAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"date_option_id", "max_capacity", "current_count", "remaining_spots", "is_full"}).
		AddRow("opt-1", 8, 8, 0, true).
		AddRow("opt-2", 8, 3, 5, false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT date_option_id, max_capacity, current_count, remaining_spots, is_full FROM date_availability WHERE date_option_id IN ($1,$2)")).
		WithArgs("opt-1", "opt-2").
		WillReturnRows(rows)

	result, err := repo.GetAvailability(context.Background(), []string{"opt-1", "opt-2"})
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.True(t, result["opt-1"].IsFull)
	assert.Equal(t, 0, result["opt-1"].RemainingSpots)
	// The raw count is preserved even when it matches capacity.
	assert.Equal(t, 8, result["opt-1"].CurrentCount)
	assert.False(t, result["opt-2"].IsFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryGetAvailabilityEmptyInput(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	result, err := repo.GetAvailability(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAvailabilityRepositoryForEdition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"date_option_id", "max_capacity", "current_count", "remaining_spots", "is_full"}).
		AddRow("opt-1", 10, 1, 9, false)
	mock.ExpectQuery("SELECT a.date_option_id, a.max_capacity, a.current_count, a.remaining_spots, a.is_full").
		WithArgs("ed-1").
		WillReturnRows(rows)

	result, err := repo.ForEdition(context.Background(), "ed-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 9, result["opt-1"].RemainingSpots)
	assert.NoError(t, mock.ExpectationsWereMet())
}
