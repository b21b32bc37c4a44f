package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderClause(t *testing.T) {
	cases := []struct {
		sort string
		want string
	}{
		{"", "t.departure_time ASC"},
		{"departure_time", "t.departure_time ASC"},
		{"-departure_time", "t.departure_time DESC"},
		{"price", "t.price_cents ASC"},
		{"-price", "t.price_cents DESC"},
		{"created_at", "t.created_at ASC"},
		{"-created_at", "t.created_at DESC"},
		// unknown keys fall back instead of reaching the SQL string
		{"id; DROP TABLE trips", "t.departure_time ASC"},
		{"-bogus", "t.departure_time ASC"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, orderClause(c.sort), "sort=%q", c.sort)
	}
}

func TestSearchActiveAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "bus_number", "location_from", "location_to", "departure_time", "arrival_time", "price_cents", "capacity"}
	mock.ExpectQuery(`LOWER\(ro\.location_from\) LIKE .+ LOWER\(ro\.location_to\) LIKE`).
		WithArgs("scheduled", "%bengaluru%", "%chennai%").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "KA-01-F-1001", "Bengaluru", "Chennai", "2026-02-01 08:00:00", "2026-02-01 14:00:00", 89900, 40))

	repo := NewTripRepo(db)
	rows, err := repo.SearchActive(context.Background(), TripSearchQuery{From: "Bengaluru", To: "Chennai"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bengaluru → Chennai", rows[0].RouteName)
	assert.Equal(t, 899.0, rows[0].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchActiveTextFilterMatchesBusAndRouteName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "bus_number", "location_from", "location_to", "departure_time", "arrival_time", "price_cents", "capacity"}
	mock.ExpectQuery(`LOWER\(b\.bus_number\) LIKE .+ OR LOWER\(CONCAT`).
		WithArgs("scheduled", "%ka-01%", "%ka-01%").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewTripRepo(db)
	rows, err := repo.SearchActive(context.Background(), TripSearchQuery{Text: "KA-01"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveRowHidesInactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "bus_number", "location_from", "location_to", "departure_time", "arrival_time", "price_cents", "capacity"}
	mock.ExpectQuery(`WHERE t\.id = \? AND t\.is_active = 1`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewTripRepo(db)
	_, err = repo.GetActiveRow(context.Background(), 9)
	assert.ErrorIs(t, err, ErrTripNotFound)
}
