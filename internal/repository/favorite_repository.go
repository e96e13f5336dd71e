package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IFavoriteRepository stores the aerodromes the dashboard watches.
type IFavoriteRepository interface {
	List(ctx context.Context) ([]models.FavoriteAerodrome, error)
	Upsert(ctx context.Context, fav *models.FavoriteAerodrome) error
	Delete(ctx context.Context, icao string) (bool, error)
}

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) List(ctx context.Context) ([]models.FavoriteAerodrome, error) {
	query := `SELECT icao, label, created_at FROM favorite_aerodromes ORDER BY icao`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.FavoriteAerodrome{}
	for rows.Next() {
		var f models.FavoriteAerodrome
		if err := rows.Scan(&f.ICAO, &f.Label, &f.CreatedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Upsert adds a favorite or relabels an existing one.
func (r *FavoriteRepository) Upsert(ctx context.Context, fav *models.FavoriteAerodrome) error {
	query := `
		INSERT INTO favorite_aerodromes (icao, label)
		VALUES ($1, $2)
		ON CONFLICT (icao) DO UPDATE SET label = EXCLUDED.label
		RETURNING created_at
	`

	if err := r.db.QueryRowContext(ctx, query, fav.ICAO, fav.Label).Scan(&fav.CreatedAt); err != nil {
		return fmt.Errorf("failed to save favorite %s: %w", fav.ICAO, err)
	}
	return nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, icao string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorite_aerodromes WHERE icao = $1`, icao)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite %s: %w", icao, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type GormFavoriteRepository struct {
	db *gorm.DB
}

func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

func (r *GormFavoriteRepository) List(ctx context.Context) ([]models.FavoriteAerodrome, error) {
	favorites := []models.FavoriteAerodrome{}
	if err := r.db.WithContext(ctx).Order("icao").Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	return favorites, nil
}

func (r *GormFavoriteRepository) Upsert(ctx context.Context, fav *models.FavoriteAerodrome) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "icao"}},
		DoUpdates: clause.AssignmentColumns([]string{"label"}),
	}).Create(fav).Error
	if err != nil {
		return fmt.Errorf("failed to save favorite %s: %w", fav.ICAO, err)
	}
	return nil
}

func (r *GormFavoriteRepository) Delete(ctx context.Context, icao string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.FavoriteAerodrome{}, "icao = ?", icao)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to delete favorite %s: %w", icao, result.Error)
	}
	return result.RowsAffected > 0, nil
}
