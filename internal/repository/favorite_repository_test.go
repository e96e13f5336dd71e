package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockFavorites(t *testing.T) (*FavoriteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFavoriteRepository(db), mock
}

func TestFavoriteList(t *testing.T) {
	repo, mock := newMockFavorites(t)
	added := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT icao, label, created_at FROM favorite_aerodromes ORDER BY icao`).
		WillReturnRows(sqlmock.NewRows([]string{"icao", "label", "created_at"}).
			AddRow("SBBE", "Belem", added).
			AddRow("SBMQ", "", added))

	favs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "SBBE", favs[0].ICAO)
	assert.Equal(t, "Belem", favs[0].Label)
	assert.True(t, favs[1].CreatedAt.Equal(added))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteListEmpty(t *testing.T) {
	repo, mock := newMockFavorites(t)

	mock.ExpectQuery(`FROM favorite_aerodromes`).
		WillReturnRows(sqlmock.NewRows([]string{"icao", "label", "created_at"}))

	favs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)
}

func TestFavoriteUpsert(t *testing.T) {
	repo, mock := newMockFavorites(t)
	added := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO favorite_aerodromes \(icao, label\)\s+VALUES \(\$1, \$2\)\s+ON CONFLICT \(icao\) DO UPDATE SET label = EXCLUDED.label\s+RETURNING created_at`).
		WithArgs("SBMQ", "Macapa").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(added))

	fav := &models.FavoriteAerodrome{ICAO: "SBMQ", Label: "Macapa"}
	require.NoError(t, repo.Upsert(context.Background(), fav))
	assert.True(t, fav.CreatedAt.Equal(added))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteUpsertError(t *testing.T) {
	repo, mock := newMockFavorites(t)

	mock.ExpectQuery(`INSERT INTO favorite_aerodromes`).
		WillReturnError(errors.New("connection reset"))

	err := repo.Upsert(context.Background(), &models.FavoriteAerodrome{ICAO: "SBMQ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save favorite SBMQ")
}

func TestFavoriteDelete(t *testing.T) {
	repo, mock := newMockFavorites(t)

	mock.ExpectExec(`DELETE FROM favorite_aerodromes WHERE icao = \$1`).
		WithArgs("SBMQ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM favorite_aerodromes WHERE icao = \$1`).
		WithArgs("SBBE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "SBMQ")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "SBBE")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteDeleteError(t *testing.T) {
	repo, mock := newMockFavorites(t)

	mock.ExpectExec(`DELETE FROM favorite_aerodromes`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Delete(context.Background(), "SBMQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete favorite SBMQ")
}
