package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markers-api/internal/geo"
	"markers-api/internal/marker/domain"
)

var markerCols = []string{
	"id", "title", "description", "latitude", "longitude", "address", "image_url",
	"user_id", "created_at", "updated_at", "u_id", "name", "email", "avatar",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()
	desc := "Main square"

	t.Run("found with owner", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM markers m JOIN users u ON u.id = m.user_id WHERE m.id = \$1`).
			WithArgs("m1").
			WillReturnRows(pgxmock.NewRows(markerCols).
				AddRow("m1", "Maidan", &desc, 50.4501, 30.5234, nil, nil, "u1", now, now, "u1", "John Doe", "john@example.com", nil))

		m, err := NewPostgresRepository(mock).GetByID(context.Background(), "m1")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "Maidan", m.Title)
		assert.Equal(t, &desc, m.Description)
		assert.Nil(t, m.Address)
		require.NotNil(t, m.Owner)
		assert.Equal(t, "John Doe", m.Owner.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found returns nil", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE m.id = \$1`).WithArgs("m1").WillReturnRows(pgxmock.NewRows(markerCols))

		m, err := NewPostgresRepository(mock).GetByID(context.Background(), "m1")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE m.id = \$1`).WithArgs("m1").WillReturnError(errors.New("connection reset"))

		_, err := NewPostgresRepository(mock).GetByID(context.Background(), "m1")
		require.Error(t, err)
	})
}

func TestPostgresRepository_ListWithBoxAndUser(t *testing.T) {
	now := time.Now().UTC()
	box := geo.Box{MinLat: 50, MaxLat: 51, MinLng: 30, MaxLng: 31}
	mock := newMock(t)
	mock.ExpectQuery(`WHERE m.user_id = \$1 AND m.latitude BETWEEN \$2 AND \$3 AND m.longitude BETWEEN \$4 AND \$5 ORDER BY m.created_at DESC, m.id DESC LIMIT \$6 OFFSET \$7`).
		WithArgs("u1", 50.0, 51.0, 30.0, 31.0, 10, 20).
		WillReturnRows(pgxmock.NewRows(markerCols).
			AddRow("m2", "Lavra", nil, 50.4344, 30.5571, nil, nil, "u1", now, now, "u1", "John Doe", "john@example.com", nil).
			AddRow("m1", "Maidan", nil, 50.4501, 30.5234, nil, nil, "u1", now.Add(-time.Hour), now, "u1", "John Doe", "john@example.com", nil))

	got, err := NewPostgresRepository(mock).List(context.Background(), Filter{UserID: "u1", Box: &box}, 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListUnfiltered(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`JOIN users u ON u.id = m.user_id ORDER BY m.created_at DESC, m.id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(markerCols))

	got, err := NewPostgresRepository(mock).List(context.Background(), Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Count(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM markers m WHERE m.user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := NewPostgresRepository(mock).Count(context.Background(), Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostgresRepository_CreateUpdateDelete(t *testing.T) {
	now := time.Now().UTC()
	m := &domain.Marker{ID: "m1", Title: "Maidan", Latitude: 50.45, Longitude: 30.52, UserID: "u1", CreatedAt: now, UpdatedAt: now}

	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO markers`).
		WithArgs("m1", "Maidan", m.Description, 50.45, 30.52, m.Address, m.ImageURL, "u1", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE markers SET`).
		WithArgs("m1", "Maidan", m.Description, 50.45, 30.52, m.Address, m.ImageURL, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM markers WHERE id = \$1`).
		WithArgs("m1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewPostgresRepository(mock)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.Update(ctx, m))
	require.NoError(t, repo.Delete(ctx, "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateInvalid(t *testing.T) {
	mock := newMock(t)
	err := NewPostgresRepository(mock).Create(context.Background(), &domain.Marker{ID: "m1", UserID: "u1", Title: "x", Latitude: 100})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
